package domain

import "time"

// User is an end user of the identity service. Subject is the stable
// identifier carried in tokens; Username is only for interactive login.
type User struct {
	Subject      string
	Username     string
	Email        string
	PasswordHash string // argon2id PHC encoded; empty for federated-only users

	// Federated identity linkage, set when the user was auto-provisioned
	// from an external provider. Both empty for local users.
	ProviderName    string
	ProviderSubject string

	Claims []Claim

	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasClaim reports whether the user carries a stored claim of the given
// type and value.
func (u User) HasClaim(claimType, value string) bool {
	for _, c := range u.Claims {
		if c.Type == claimType && c.Value == value {
			return true
		}
	}
	return false
}
