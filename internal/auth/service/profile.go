package service

import (
	"github.com/eventwise/eventauth/internal/auth/domain"
	"github.com/eventwise/eventauth/internal/auth/registry"
	"github.com/eventwise/eventauth/pkg/jwtx"
)

// ProfileService decides which identity claims end up inside issued access
// tokens. It mirrors the user's stored claims into the standard OIDC claim
// slots, expands resource scopes into their scope claims, and applies any
// configured augmentation rules.
type ProfileService struct {
	Registry *registry.Registry

	// Rules add claims to matching tokens at issuance time.
	Rules []ClaimRule
}

// ClaimRule adds role or scope claims to issued tokens when every non-empty
// matcher applies. A rule with no matchers applies to all tokens.
type ClaimRule struct {
	MatchSubject string
	MatchClient  string
	MatchScope   string

	AddRoles  []string
	AddScopes []string
}

func (r ClaimRule) matches(c jwtx.Claims) bool {
	if r.MatchSubject != "" && r.MatchSubject != c.Subject {
		return false
	}
	if r.MatchClient != "" && r.MatchClient != c.ClientID {
		return false
	}
	if r.MatchScope != "" && !c.HasScope(r.MatchScope) {
		return false
	}
	return true
}

// Populate copies the user's profile and role claims into the token claims,
// then applies the augmentation rules against the claims assembled so far.
func (s *ProfileService) Populate(c *jwtx.Claims, u domain.User) {
	c.Name = firstClaim(u.Claims, domain.ClaimTypeName)
	if c.Name == "" {
		c.Name = u.Username
	}
	c.GivenName = firstClaim(u.Claims, domain.ClaimTypeGivenName)
	c.FamilyName = firstClaim(u.Claims, domain.ClaimTypeFamilyName)

	c.Email = firstClaim(u.Claims, domain.ClaimTypeEmail)
	if c.Email == "" {
		c.Email = u.Email
	}

	c.Roles = domain.ClaimsOfType(u.Claims, domain.ClaimTypeRole)

	for _, rule := range s.Rules {
		if !rule.matches(*c) {
			continue
		}
		c.Roles = append(c.Roles, rule.AddRoles...)
		c.Scopes = append(c.Scopes, rule.AddScopes...)
	}
	c.Roles = dedupe(c.Roles)
	c.Scopes = dedupe(c.Scopes)
}

// ExpandScopes returns the granted scopes plus, for every scope that names a
// registered API resource, that resource's scope claim. Resource servers
// authorize on the scope claim, not the resource name.
func (s *ProfileService) ExpandScopes(granted []string) []string {
	expanded := make([]string, 0, len(granted)+1)
	expanded = append(expanded, granted...)

	for _, res := range s.Registry.ResourcesForScopes(granted) {
		if res.ScopeClaim != "" {
			expanded = append(expanded, res.ScopeClaim)
		}
	}

	return dedupe(expanded)
}
