package goOTP

import (
	"crypto/hmac"
	"crypto/sha1" //nolint:gosec // RFC 4226 default
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"strings"
)

func hotpCode(secret []byte, counter int64, digits int, algorithm string) (string, error) {
	var msg [8]byte
	binary.BigEndian.PutUint64(msg[:], uint64(counter))

	hf, err := hmacFunc(algorithm)
	if err != nil {
		return "", err
	}
	mac := hmac.New(hf, secret)
	_, _ = mac.Write(msg[:])
	sum := mac.Sum(nil)

	offset := sum[len(sum)-1] & 0x0f
	bin := (int(sum[offset])&0x7f)<<24 |
		(int(sum[offset+1])&0xff)<<16 |
		(int(sum[offset+2])&0xff)<<8 |
		(int(sum[offset+3]) & 0xff)

	mod := 1
	for i := 0; i < digits; i++ {
		mod *= 10
	}

	code := bin % mod
	return fmt.Sprintf("%0*d", digits, code), nil
}

// hotpCheckWindow scans counters [counter, counter+window], comparing each
// candidate against submitted in constant time. It returns the matched
// counter or NotFound. Callers advance the stored counter to matched+1 on
// success, which is what makes a replay of the same counter fail.
func hotpCheckWindow(secret []byte, submitted string, counter int64, window, digits int, algorithm string) (int64, error) {
	if len(secret) == 0 {
		return NotFound, errors.New("empty hotp secret")
	}

	for c := counter; c <= counter+int64(window); c++ {
		if c < 0 {
			continue
		}
		candidate, err := hotpCode(secret, c, digits, algorithm)
		if err != nil {
			return NotFound, err
		}
		if subtle.ConstantTimeCompare([]byte(candidate), []byte(submitted)) == 1 {
			return c, nil
		}
	}

	return NotFound, nil
}

// hotpResponseHex computes the untruncated HMAC of an arbitrary challenge,
// hex encoded. Machine applications (disk-encryption unlock) consume the full
// digest instead of a truncated decimal code.
func hotpResponseHex(secret, challenge []byte, algorithm string) (string, error) {
	if len(secret) == 0 {
		return "", errors.New("empty hotp secret")
	}

	hf, err := hmacFunc(algorithm)
	if err != nil {
		return "", err
	}
	mac := hmac.New(hf, secret)
	_, _ = mac.Write(challenge)
	return hex.EncodeToString(mac.Sum(nil)), nil
}

func hmacFunc(algorithm string) (func() hash.Hash, error) {
	switch strings.ToUpper(algorithm) {
	case "", "SHA1":
		return sha1.New, nil
	case "SHA256":
		return sha256.New, nil
	case "SHA512":
		return sha512.New, nil
	default:
		return nil, errors.New("unsupported hotp algorithm")
	}
}

func isNumericString(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
