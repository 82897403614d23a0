package goOTP

import (
	"crypto/md5" //nolint:gosec // md5 is mandated by the mOTP protocol
	"crypto/subtle"
	"encoding/hex"
	"strconv"
	"time"
)

// motpCode derives one mOTP candidate for a time slice: the md5 hex digest of
// the decimal slice concatenated with key and pin, truncated to digits.
// Wire-compatible with the reference client implementations; the weak digest
// is a known property of the protocol and must not be changed.
func motpCode(slice int64, key, pin []byte, digits int) string {
	msg := make([]byte, 0, 20+len(key)+len(pin))
	msg = strconv.AppendInt(msg, slice, 10)
	msg = append(msg, key...)
	msg = append(msg, pin...)

	sum := md5.Sum(msg) //nolint:gosec
	code := hex.EncodeToString(sum[:])
	if digits < len(code) {
		code = code[:digits]
	}
	return code
}

// motpCheckWindow scans time slices [base-window, base+window] in increasing
// order, comparing each candidate against submitted in constant time. It
// returns the first matching slice, or NotFound.
//
// Replay watermark: a match at or below lastAccepted reports replay=true and
// must be treated as no match even though the digest matched (the slice is
// still returned so callers can log it). The watermark is a single scalar;
// skipping forward within the window permanently invalidates older slices.
// Client synchronization depends on this exact semantics.
func motpCheckWindow(submitted string, lastAccepted, base int64, window int, key, pin []byte, digits int) (matched int64, replay bool) {
	matched = motpFindSlice(submitted, base, window, key, pin, digits)
	if matched == NotFound {
		return NotFound, false
	}
	if matched <= lastAccepted {
		return matched, true
	}
	return matched, false
}

// motpFindSlice is the scan without the watermark rule: the first slice in
// [base-window, base+window] whose candidate matches submitted, or NotFound.
func motpFindSlice(submitted string, base int64, window int, key, pin []byte, digits int) int64 {
	for slice := base - int64(window); slice <= base+int64(window); slice++ {
		candidate := motpCode(slice, key, pin, digits)
		if subtle.ConstantTimeCompare([]byte(candidate), []byte(submitted)) == 1 {
			return slice
		}
	}
	return NotFound
}

// motpSlice converts a wall-clock time to a slice index.
func motpSlice(now time.Time, stepSeconds int) int64 {
	return now.Unix() / int64(stepSeconds)
}
