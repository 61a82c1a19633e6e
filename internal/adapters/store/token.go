package store

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// NewShareToken returns a 43-character URL-safe token backed by 32 bytes of
// randomness. Tokens are unguessable; possession of one is the only
// credential needed to read a shared report.
func NewShareToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate share token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
