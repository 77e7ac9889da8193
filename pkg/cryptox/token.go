package cryptox

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

// Opaque token sizes in bytes before encoding.
const (
	// TokenSize128 gives 128 bits of entropy, enough for short-lived values.
	TokenSize128 = 16
	// TokenSize256 gives 256 bits of entropy, the size used for refresh tokens.
	TokenSize256 = 32
)

// GenerateToken returns a cryptographically random, base64url-encoded opaque
// token of the given byte length.
func GenerateToken(size int) (string, error) {
	if size <= 0 {
		return "", fmt.Errorf("cryptox: token size must be positive, got %d", size)
	}
	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("cryptox: generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// FingerprintToken returns the deterministic base64url SHA-256 fingerprint
// of an opaque token. Stores persist the fingerprint instead of the token
// value so a leaked database cannot replay refresh tokens.
func FingerprintToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
