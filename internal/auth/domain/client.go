package domain

import (
	"slices"
	"time"
)

// OAuth2 grant types supported by the token endpoint.
const (
	GrantPassword     = "password"
	GrantRefreshToken = "refresh_token"
)

// Client is a registered OAuth2 client. Clients are loaded once at startup
// into the registry and never mutated afterwards.
type Client struct {
	ID         string
	Name       string
	SecretHash string // argon2id PHC encoded; empty for public clients

	GrantTypes []string
	Scopes     []string

	AccessTokenTTL     time.Duration
	AllowOfflineAccess bool
}

// SupportsGrant reports whether the client may use the given grant type.
func (c Client) SupportsGrant(grant string) bool {
	return slices.Contains(c.GrantTypes, grant)
}

// AllowsScopes reports whether every requested scope is in the client's
// allowed set. An empty request is trivially allowed.
func (c Client) AllowsScopes(requested []string) bool {
	for _, s := range requested {
		if !slices.Contains(c.Scopes, s) {
			return false
		}
	}
	return true
}
