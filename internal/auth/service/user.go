package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/eventwise/eventauth/internal/auth/domain"
	"github.com/eventwise/eventauth/internal/auth/store"
	"github.com/eventwise/eventauth/pkg/cryptox"
	"github.com/eventwise/eventauth/pkg/idx"
)

// UserService wraps user lookup, credential validation, and federated
// auto-provisioning.
type UserService struct {
	Store store.Store
}

// ValidateCredentials checks a username/password pair against the stored
// argon2id hash. Every failure path collapses into ErrInvalidCredentials so
// callers cannot distinguish an unknown user from a wrong password.
func (s *UserService) ValidateCredentials(
	ctx context.Context,
	username, password string,
) (domain.User, error) {
	u, err := s.Store.Users().GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, ErrInvalidCredentials
		}
		return domain.User{}, fmt.Errorf("lookup user: %w", err)
	}

	if err := cryptox.VerifySecret(password, u.PasswordHash); err != nil {
		// Malformed hashes (e.g. federated users without a password) fail
		// the same way a wrong password does.
		return domain.User{}, ErrInvalidCredentials
	}

	return u, nil
}

// FindBySubject returns the user with the given subject identifier.
func (s *UserService) FindBySubject(ctx context.Context, subject string) (domain.User, error) {
	return s.Store.Users().GetUserBySubject(ctx, subject)
}

// FindByUsername returns the user with the given username.
func (s *UserService) FindByUsername(ctx context.Context, username string) (domain.User, error) {
	return s.Store.Users().GetUserByUsername(ctx, username)
}

// FindByExternalProvider returns the local user linked to an external
// identity provider account.
func (s *UserService) FindByExternalProvider(
	ctx context.Context,
	provider, providerSubject string,
) (domain.User, error) {
	return s.Store.Users().GetUserByExternalProvider(ctx, provider, providerSubject)
}

// AutoProvisionUser returns the local user for an external identity,
// creating one on first sight. The new user gets a fresh subject, carries
// the claims asserted by the provider translated to canonical types, and
// has no local password.
func (s *UserService) AutoProvisionUser(
	ctx context.Context,
	provider, providerSubject string,
	externalClaims []domain.Claim,
) (domain.User, error) {
	existing, err := s.Store.Users().GetUserByExternalProvider(ctx, provider, providerSubject)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return domain.User{}, fmt.Errorf("lookup federated user: %w", err)
	}

	claims := TranslateExternalClaims(externalClaims)

	u := domain.User{
		Subject:         idx.New().String(),
		Username:        provider + ":" + providerSubject,
		Email:           firstClaim(claims, domain.ClaimTypeEmail),
		ProviderName:    provider,
		ProviderSubject: providerSubject,
		Claims:          claims,
	}
	if err := s.Store.Users().CreateUser(ctx, u); err != nil {
		return domain.User{}, fmt.Errorf("provision federated user: %w", err)
	}

	return u, nil
}

// Legacy SOAP/WS-Fed claim type URIs some external providers still assert,
// mapped to their canonical short names.
var externalClaimTypes = map[string]string{
	"http://schemas.xmlsoap.org/ws/2005/05/identity/claims/name":         domain.ClaimTypeName,
	"http://schemas.xmlsoap.org/ws/2005/05/identity/claims/givenname":    domain.ClaimTypeGivenName,
	"http://schemas.xmlsoap.org/ws/2005/05/identity/claims/surname":      domain.ClaimTypeFamilyName,
	"http://schemas.xmlsoap.org/ws/2005/05/identity/claims/emailaddress": domain.ClaimTypeEmail,
	"http://schemas.microsoft.com/ws/2008/06/identity/claims/role":       domain.ClaimTypeRole,
	"unique_name": domain.ClaimTypeName,
	"surname":     domain.ClaimTypeFamilyName,
}

// TranslateExternalClaims maps provider-asserted claims onto canonical claim
// types. Known legacy types are renamed, everything else passes through
// unchanged, and a display name is synthesized from given and family name
// when the provider asserted neither a name nor a unique_name claim. The
// input is never mutated.
func TranslateExternalClaims(external []domain.Claim) []domain.Claim {
	out := make([]domain.Claim, 0, len(external))
	for _, c := range external {
		if canonical, ok := externalClaimTypes[c.Type]; ok {
			c.Type = canonical
		}
		out = append(out, c)
	}

	if firstClaim(out, domain.ClaimTypeName) == "" {
		given := firstClaim(out, domain.ClaimTypeGivenName)
		family := firstClaim(out, domain.ClaimTypeFamilyName)
		if name := strings.TrimSpace(given + " " + family); name != "" {
			out = append(out, domain.Claim{Type: domain.ClaimTypeName, Value: name})
		}
	}

	return out
}

// UpdatePassword rehashes and stores a new password for the user.
func (s *UserService) UpdatePassword(ctx context.Context, subject, newPassword string) error {
	hash, err := cryptox.HashSecret(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return s.Store.Users().UpdatePasswordHash(ctx, subject, hash)
}

func firstClaim(claims []domain.Claim, claimType string) string {
	for _, c := range claims {
		if c.Type == claimType {
			return c.Value
		}
	}
	return ""
}
