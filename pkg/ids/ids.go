// Package ids issues opaque identifiers and bearer credentials for the
// pool. Identifiers are short and log-friendly; tokens carry 256 bits of
// entropy and are persisted only as one-way hashes.
package ids

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
)

// NewWorkerID returns a fresh worker identifier of the form w_<12 hex>.
func NewWorkerID() string {
	return newID("w")
}

// NewTaskID returns a fresh task identifier of the form t_<12 hex>.
func NewTaskID() string {
	return newID("t")
}

func newID(prefix string) string {
	u := uuid.New()
	return prefix + "_" + hex.EncodeToString(u[:6])
}

// NewToken returns a URL-safe bearer token backed by 32 bytes of
// cryptographic randomness. The raw value is shown to the worker exactly
// once at registration.
func NewToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// HashToken returns the lowercase hex SHA-256 digest of a raw token. The
// store persists only this value.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
