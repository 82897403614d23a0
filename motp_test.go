package goOTP

import (
	"testing"
	"time"
)

var (
	motpTestKey = []byte("1234567890123456")
	motpTestPIN = []byte("1234")
)

func TestMOTPCodeDeterministic(t *testing.T) {
	a := motpCode(123456789, motpTestKey, motpTestPIN, 6)
	b := motpCode(123456789, motpTestKey, motpTestPIN, 6)
	if a != b {
		t.Fatalf("same slice produced different codes: %q vs %q", a, b)
	}
	if len(a) != 6 {
		t.Fatalf("expected 6 hex chars, got %q", a)
	}
	if c := motpCode(123456790, motpTestKey, motpTestPIN, 6); c == a {
		t.Fatalf("adjacent slices produced identical codes: %q", c)
	}
}

func TestMOTPCheckWindowBoundaries(t *testing.T) {
	const base = int64(1000000)
	const window = 10

	cases := []struct {
		name   string
		slice  int64
		expect int64
	}{
		{"at base", base, base},
		{"lower edge", base - window, base - window},
		{"upper edge", base + window, base + window},
		{"below window", base - window - 1, NotFound},
		{"above window", base + window + 1, NotFound},
	}

	for _, tc := range cases {
		code := motpCode(tc.slice, motpTestKey, motpTestPIN, 6)
		got, replay := motpCheckWindow(code, 0, base, window, motpTestKey, motpTestPIN, 6)
		if got != tc.expect {
			t.Fatalf("%s: expected %d, got %d", tc.name, tc.expect, got)
		}
		if replay {
			t.Fatalf("%s: unexpected replay flag", tc.name)
		}
	}
}

func TestMOTPCheckWindowReplayWatermark(t *testing.T) {
	const base = int64(2000000)
	const window = 10

	code := motpCode(base, motpTestKey, motpTestPIN, 6)

	matched, replay := motpCheckWindow(code, 0, base, window, motpTestKey, motpTestPIN, 6)
	if matched != base || replay {
		t.Fatalf("expected clean match at %d, got %d (replay %v)", base, matched, replay)
	}

	// Same OTP again with the watermark advanced to the match.
	if got, replay := motpCheckWindow(code, matched, base, window, motpTestKey, motpTestPIN, 6); !replay || got != base {
		t.Fatalf("expected replay flag at %d, got %d (replay %v)", base, got, replay)
	}

	// A match exactly at the watermark is also rejected; one past it is not.
	older := motpCode(base-1, motpTestKey, motpTestPIN, 6)
	if _, replay := motpCheckWindow(older, matched, base, window, motpTestKey, motpTestPIN, 6); !replay {
		t.Fatal("expected older slice to be invalidated")
	}
	newer := motpCode(base+1, motpTestKey, motpTestPIN, 6)
	if got, replay := motpCheckWindow(newer, matched, base, window, motpTestKey, motpTestPIN, 6); replay || got != base+1 {
		t.Fatalf("expected newer slice to match, got %d (replay %v)", got, replay)
	}
}

func TestMOTPSlice(t *testing.T) {
	now := time.Unix(1234567890, 0)
	if got := motpSlice(now, 10); got != 123456789 {
		t.Fatalf("expected slice 123456789, got %d", got)
	}
}
