package internal

import (
	"crypto/rand"
	"encoding/hex"

	"github.com/google/uuid"
)

// NewTransactionID returns a fresh challenge correlation identifier.
func NewTransactionID() string {
	return uuid.NewString()
}

// RandomHex returns n random bytes, hex encoded.
func RandomHex(n int) (string, error) {
	raw := make([]byte, n)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return hex.EncodeToString(raw), nil
}

// Zero overwrites b. Used to scrub decrypted secret material before the
// verification call returns.
func Zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
