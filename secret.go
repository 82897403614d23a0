package goOTP

import "github.com/MrEthical07/goOTP/internal"

// PlainSecret wraps already-plaintext key material in the [Secret] contract.
// Intended for tests and self-test tooling; production integrations decrypt
// from their own at-rest encryption.
type PlainSecret []byte

// Decrypt returns a copy of the plaintext so the engine's scrub cannot zero
// the caller's backing slice.
func (s PlainSecret) Decrypt() ([]byte, error) {
	out := make([]byte, len(s))
	copy(out, s)
	return out, nil
}

// withPlaintext decrypts a secret, runs fn over the plaintext, and scrubs the
// plaintext before returning, on every exit path including errors. Plaintext
// key material never survives the verification call scope.
func withPlaintext(secret Secret, fn func(plain []byte) error) error {
	if secret == nil {
		return ErrSecretUnavailable
	}
	plain, err := secret.Decrypt()
	if err != nil {
		return ErrSecretUnavailable
	}
	defer internal.Zero(plain)

	return fn(plain)
}

// withPlaintext2 is withPlaintext over a key/pin pair (mOTP tokens carry
// separate key and PIN material).
func withPlaintext2(key, pin Secret, fn func(keyPlain, pinPlain []byte) error) error {
	return withPlaintext(key, func(keyPlain []byte) error {
		return withPlaintext(pin, func(pinPlain []byte) error {
			return fn(keyPlain, pinPlain)
		})
	})
}
