package domain

import "time"

// TokenPair is what the token endpoint returns: a signed JWT access token
// and, when offline access was granted, an opaque refresh token.
type TokenPair struct {
	AccessToken  string        `json:"access_token"`
	RefreshToken string        `json:"refresh_token,omitempty"`
	TokenType    string        `json:"token_type,omitempty"` // always "Bearer"
	ExpiresIn    time.Duration `json:"expires_in"`           // seconds until access token expiry
	Scope        string        `json:"scope,omitempty"`      // space-delimited granted scopes
}

// RefreshToken is the stored refresh token record. Only the SHA-256
// fingerprint of the opaque value is persisted; the value itself is handed
// to the client exactly once.
type RefreshToken struct {
	ID        string
	Subject   string
	ClientID  string
	TokenHash string // base64url SHA-256 of the opaque token
	Scopes    []string
	ExpiresAt time.Time
	Consumed  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Expired reports whether the token is past its expiry at the given time.
func (t RefreshToken) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}
