package goOTP

import (
	"errors"
	"strings"
	"time"
)

// Config defines a public type used by goOTP APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	MOTP       MOTPConfig
	HOTP       HOTPConfig
	SMS        SMSConfig
	Push       PushConfig
	Challenge  ChallengeConfig
	Delivery   DeliveryConfig
	Federation FederationConfig
	Audit      AuditConfig
	Metrics    MetricsConfig
}

/*
====================================
MOTP CONFIG
====================================
*/

// MOTPConfig defines a public type used by goOTP APIs.
//
// MOTPConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MOTPConfig struct {
	// Digits of the truncated md5 hex digest. The mOTP protocol uses 6.
	Digits int
	// TimeStepSeconds is the slice width. The protocol fixes it at 10.
	TimeStepSeconds int
	// Window is the +/- search distance in slices around the base slice.
	// The scan widens it by SearchFactor to match deployed client drift.
	Window int
	// SearchFactor multiplies Window before scanning. The historical
	// implementation doubles the window; kept for client compatibility.
	SearchFactor int
}

/*
====================================
HOTP CONFIG
====================================
*/

// HOTPConfig defines a public type used by goOTP APIs.
//
// HOTPConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type HOTPConfig struct {
	Digits    int
	Algorithm string // "SHA1" (default), "SHA256", "SHA512"
	// Window is the forward counter search distance.
	Window int
}

/*
====================================
SMS CONFIG
====================================
*/

// SMSConfig defines a public type used by goOTP APIs.
//
// SMSConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type SMSConfig struct {
	// ChallengeValidity bounds how long an issued SMS challenge is matchable.
	ChallengeValidity time.Duration
	// ConcurrentChallenges stores the expected OTP with the challenge at
	// creation time so a response can be verified against the recorded value
	// instead of re-deriving the secret under concurrent requests.
	ConcurrentChallenges bool
	// DefaultTemplate is the message used when no smstext policy matches.
	DefaultTemplate string
	// DefaultChallengeText is the user prompt when no policy overrides it.
	DefaultChallengeText string
}

/*
====================================
PUSH CONFIG
====================================
*/

// PushConfig defines a public type used by goOTP APIs.
//
// PushConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type PushConfig struct {
	// ChallengeValidity bounds how long a pushed confirmation request stays
	// answerable.
	ChallengeValidity time.Duration
	// DefaultTemplate is the message pushed to the device; the {challenge}
	// tag carries the nonce the device must sign.
	DefaultTemplate string
	// DefaultChallengeText is the prompt returned to the requesting client
	// while the device confirmation is pending.
	DefaultChallengeText string
}

/*
====================================
CHALLENGE STORE CONFIG
====================================
*/

// ChallengeConfig defines a public type used by goOTP APIs.
//
// ChallengeConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type ChallengeConfig struct {
	RedisPrefix string
	// DefaultValidity applies when a challenge is created without one.
	DefaultValidity time.Duration
}

/*
====================================
DELIVERY CONFIG
====================================
*/

// DeliveryConfig defines a public type used by goOTP APIs.
//
// DeliveryConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type DeliveryConfig struct {
	// DefaultGateway is the system-wide channel identifier. A token-level
	// "gateway.identifier" tokeninfo entry takes priority.
	DefaultGateway string
	// Timeout bounds one outbound dispatch call.
	Timeout time.Duration
	// PhoneInfoKey is the tokeninfo key holding the static phone number.
	PhoneInfoKey string
	// DynamicPhoneInfoKey marks tokens whose phone number is resolved from
	// the user directory at dispatch time.
	DynamicPhoneInfoKey string
}

/*
====================================
FEDERATION CONFIG
====================================
*/

// FederationConfig defines a public type used by goOTP APIs.
//
// FederationConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type FederationConfig struct {
	// Timeout bounds one relay round-trip.
	Timeout time.Duration
}

/*
====================================
AUDIT CONFIG
====================================
*/

// AuditConfig defines a public type used by goOTP APIs.
//
// AuditConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

/*
====================================
METRICS CONFIG
====================================
*/

// MetricsConfig defines a public type used by goOTP APIs.
//
// MetricsConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

func defaultConfig() Config {
	return Config{
		MOTP: MOTPConfig{
			Digits:          6,
			TimeStepSeconds: 10,
			Window:          10,
			SearchFactor:    2,
		},
		HOTP: HOTPConfig{
			Digits:    6,
			Algorithm: "SHA1",
			Window:    10,
		},
		SMS: SMSConfig{
			ChallengeValidity:    5 * time.Minute,
			ConcurrentChallenges: false,
			DefaultTemplate:      "<otp>",
			DefaultChallengeText: "Enter the OTP from the SMS:",
		},
		Push: PushConfig{
			ChallengeValidity:    2 * time.Minute,
			DefaultTemplate:      "{challenge}",
			DefaultChallengeText: "Please confirm the authentication on your mobile device!",
		},
		Challenge: ChallengeConfig{
			RedisPrefix:     "oc",
			DefaultValidity: 2 * time.Minute,
		},
		Delivery: DeliveryConfig{
			DefaultGateway:      "",
			Timeout:             10 * time.Second,
			PhoneInfoKey:        "phone",
			DynamicPhoneInfoKey: "dynamic_phone",
		},
		Federation: FederationConfig{
			Timeout: 30 * time.Second,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

// DefaultConfig returns the baseline configuration used by [New].
func DefaultConfig() Config {
	return defaultConfig()
}

func cloneConfig(cfg Config) Config {
	return cfg
}

/*
====================================
VALIDATION
====================================
*/

// Validate describes the validate operation and its observable behavior.
//
// Validate may return an error when input validation, dependency calls, or security checks fail.
// Validate does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Config) Validate() error {
	// mOTP
	if c.MOTP.Digits < 4 || c.MOTP.Digits > 32 {
		return errors.New("MOTP Digits must be in [4, 32]")
	}
	if c.MOTP.TimeStepSeconds <= 0 {
		return errors.New("MOTP TimeStepSeconds must be > 0")
	}
	if c.MOTP.Window < 0 {
		return errors.New("MOTP Window must be >= 0")
	}
	if c.MOTP.SearchFactor <= 0 {
		return errors.New("MOTP SearchFactor must be > 0")
	}

	// HOTP
	if c.HOTP.Digits < 6 || c.HOTP.Digits > 10 {
		return errors.New("HOTP Digits must be in [6, 10]")
	}
	switch strings.ToUpper(c.HOTP.Algorithm) {
	case "", "SHA1", "SHA256", "SHA512":
	default:
		return errors.New("unsupported HOTP algorithm")
	}
	if c.HOTP.Window < 0 {
		return errors.New("HOTP Window must be >= 0")
	}

	// SMS
	if c.SMS.ChallengeValidity <= 0 {
		return errors.New("SMS ChallengeValidity must be > 0")
	}

	// Push
	if c.Push.ChallengeValidity <= 0 {
		return errors.New("Push ChallengeValidity must be > 0")
	}

	// Challenge store
	if c.Challenge.DefaultValidity <= 0 {
		return errors.New("Challenge DefaultValidity must be > 0")
	}

	// Delivery
	if c.Delivery.Timeout <= 0 {
		return errors.New("Delivery Timeout must be > 0")
	}

	// Federation
	if c.Federation.Timeout <= 0 {
		return errors.New("Federation Timeout must be > 0")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when Audit is enabled")
	}

	return nil
}
