package session

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
)

// newRefreshToken mints an opaque refresh token from a cryptographically
// strong random source and returns both the raw value handed to the client
// and the sha256 hash that goes into the ledger.
func newRefreshToken(nBytes int) (raw string, hash string, err error) {
	b := make([]byte, nBytes)
	if _, err := rand.Read(b); err != nil {
		return "", "", err
	}
	raw = hex.EncodeToString(b)
	return raw, hashRefreshToken(raw), nil
}

// hashRefreshToken hashes a raw refresh token for storage and lookup. Raw
// token values never touch the database.
func hashRefreshToken(raw string) string {
	h := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(h[:])
}
