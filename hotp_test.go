package goOTP

import (
	"crypto/hmac"
	"crypto/sha1" //nolint:gosec
	"encoding/hex"
	"testing"
)

var hotpTestSecret = []byte("12345678901234567890")

// RFC 4226 appendix D vectors.
var hotpVectors = []string{
	"755224", "287082", "359152", "969429", "338314",
	"254676", "287922", "162583", "399871", "520489",
}

func TestHOTPCodeVectors(t *testing.T) {
	for counter, want := range hotpVectors {
		got, err := hotpCode(hotpTestSecret, int64(counter), 6, "SHA1")
		if err != nil {
			t.Fatalf("hotpCode failed at counter %d: %v", counter, err)
		}
		if got != want {
			t.Fatalf("counter %d: expected %s, got %s", counter, want, got)
		}
	}
}

func TestHOTPCheckWindow(t *testing.T) {
	// Counter at 0, submitted OTP belongs to counter 7, window 10.
	matched, err := hotpCheckWindow(hotpTestSecret, hotpVectors[7], 0, 10, 6, "SHA1")
	if err != nil {
		t.Fatalf("hotpCheckWindow failed: %v", err)
	}
	if matched != 7 {
		t.Fatalf("expected match at 7, got %d", matched)
	}

	// Scanning from 8, the same OTP is behind the counter.
	matched, err = hotpCheckWindow(hotpTestSecret, hotpVectors[7], 8, 10, 6, "SHA1")
	if err != nil {
		t.Fatalf("hotpCheckWindow failed: %v", err)
	}
	if matched != NotFound {
		t.Fatalf("expected replay to miss, got %d", matched)
	}

	// Outside the window.
	matched, err = hotpCheckWindow(hotpTestSecret, hotpVectors[9], 0, 8, 6, "SHA1")
	if err != nil {
		t.Fatalf("hotpCheckWindow failed: %v", err)
	}
	if matched != NotFound {
		t.Fatalf("expected miss outside window, got %d", matched)
	}
}

func TestHOTPResponseHexUntruncated(t *testing.T) {
	challenge := []byte("keyslot-challenge-material-32byt")

	got, err := hotpResponseHex(hotpTestSecret, challenge, "SHA1")
	if err != nil {
		t.Fatalf("hotpResponseHex failed: %v", err)
	}

	mac := hmac.New(sha1.New, hotpTestSecret)
	mac.Write(challenge)
	want := hex.EncodeToString(mac.Sum(nil))

	if got != want {
		t.Fatalf("expected full digest %s, got %s", want, got)
	}
	if len(got) != 40 {
		t.Fatalf("expected untruncated SHA1 digest (40 hex chars), got %d", len(got))
	}
}

func TestIsNumericString(t *testing.T) {
	cases := []struct {
		in string
		ok bool
	}{
		{"123456", true},
		{"000000", true},
		{"", false},
		{"12a456", false},
		{"12 456", false},
	}
	for _, tc := range cases {
		if got := isNumericString(tc.in); got != tc.ok {
			t.Fatalf("isNumericString(%q) = %v, expected %v", tc.in, got, tc.ok)
		}
	}
}
