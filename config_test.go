package goOTP

import "testing"

func TestDefaultConfigValidates(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config must validate: %v", err)
	}
}

func TestConfigValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"motp digits too small", func(c *Config) { c.MOTP.Digits = 2 }},
		{"motp step zero", func(c *Config) { c.MOTP.TimeStepSeconds = 0 }},
		{"motp negative window", func(c *Config) { c.MOTP.Window = -1 }},
		{"motp search factor zero", func(c *Config) { c.MOTP.SearchFactor = 0 }},
		{"hotp digits too large", func(c *Config) { c.HOTP.Digits = 12 }},
		{"hotp bad algorithm", func(c *Config) { c.HOTP.Algorithm = "MD4" }},
		{"hotp negative window", func(c *Config) { c.HOTP.Window = -1 }},
		{"sms validity zero", func(c *Config) { c.SMS.ChallengeValidity = 0 }},
		{"push validity zero", func(c *Config) { c.Push.ChallengeValidity = 0 }},
		{"challenge validity zero", func(c *Config) { c.Challenge.DefaultValidity = 0 }},
		{"delivery timeout zero", func(c *Config) { c.Delivery.Timeout = 0 }},
		{"federation timeout zero", func(c *Config) { c.Federation.Timeout = 0 }},
	}

	for _, tc := range cases {
		cfg := DefaultConfig()
		tc.mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Fatalf("%s: expected validation error", tc.name)
		}
	}
}

func TestBuilderRequiresTokenProvider(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	if _, err := New().WithRedis(rdb).Build(); err == nil {
		t.Fatal("expected error without token provider")
	}
}

func TestBuilderRequiresStore(t *testing.T) {
	tp := newMemoryTokenProvider()
	if _, err := New().WithTokenProvider(tp).Build(); err == nil {
		t.Fatal("expected error without redis or challenge store")
	}
}

func TestBuilderSingleUse(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	builder := New().WithRedis(rdb).WithTokenProvider(newMemoryTokenProvider())
	engine, err := builder.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer engine.Close()

	if _, err := builder.Build(); err == nil {
		t.Fatal("expected second Build to fail")
	}
}
