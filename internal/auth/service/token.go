package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/eventwise/eventauth/internal/auth/domain"
	"github.com/eventwise/eventauth/internal/auth/registry"
	"github.com/eventwise/eventauth/internal/auth/store"
	"github.com/eventwise/eventauth/pkg/cryptox"
	"github.com/eventwise/eventauth/pkg/idx"
	"github.com/eventwise/eventauth/pkg/jwtx"
)

// ScopeOfflineAccess is the scope a client must request (and be allowed) to
// receive a refresh token.
const ScopeOfflineAccess = "offline_access"

// TokenService implements the OAuth2 token grants: resource owner password
// and refresh token rotation.
type TokenService struct {
	Keys     *jwtx.KeyManager
	Store    store.Store
	Registry *registry.Registry
	Users    *UserService
	Profile  *ProfileService

	// Issuer is the iss claim stamped into every access token.
	Issuer string

	// RefreshTTL bounds refresh token lifetime. Zero means
	// jwtx.DefaultRefreshTokenTTL.
	RefreshTTL time.Duration
}

// ExchangePassword implements the resource owner password grant. Client
// authentication failures surface before scope errors, scope errors before
// credential errors, so a probing client learns as little as possible.
func (s *TokenService) ExchangePassword(
	ctx context.Context,
	clientID, clientSecret string,
	username, password string,
	requestedScopes []string,
) (domain.TokenPair, error) {
	client, err := s.authenticateClient(clientID, clientSecret)
	if err != nil {
		return domain.TokenPair{}, err
	}
	if !client.SupportsGrant(domain.GrantPassword) {
		return domain.TokenPair{}, ErrUnauthorizedClient
	}

	granted, err := s.grantScopes(client, requestedScopes)
	if err != nil {
		return domain.TokenPair{}, err
	}

	user, err := s.Users.ValidateCredentials(ctx, username, password)
	if err != nil {
		return domain.TokenPair{}, err
	}

	return s.issue(ctx, client, user, granted)
}

// ExchangeRefreshToken rotates a refresh token: the presented token is
// consumed and a new one is issued alongside a fresh access token. The
// lookup, consume, and replacement insert run in one transaction so that
// concurrent presentations of the same token produce exactly one winner.
func (s *TokenService) ExchangeRefreshToken(
	ctx context.Context,
	clientID, clientSecret string,
	refreshToken string,
) (domain.TokenPair, error) {
	client, err := s.authenticateClient(clientID, clientSecret)
	if err != nil {
		return domain.TokenPair{}, err
	}
	if !client.SupportsGrant(domain.GrantRefreshToken) {
		return domain.TokenPair{}, ErrUnauthorizedClient
	}

	hash := cryptox.FingerprintToken(refreshToken)
	now := time.Now().UTC()

	var (
		stored domain.RefreshToken
		opaque string
	)
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		stored, err = tx.RefreshTokens().GetRefreshTokenByHash(ctx, hash)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrInvalidRefresh
			}
			return fmt.Errorf("lookup refresh token: %w", err)
		}

		if stored.ClientID != client.ID {
			return ErrInvalidRefresh
		}
		if stored.Expired(now) {
			return ErrInvalidRefresh
		}
		if stored.Consumed {
			return ErrConsumedRefresh
		}

		if err := tx.RefreshTokens().ConsumeRefreshToken(ctx, hash); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				// Lost the race against a concurrent rotation.
				return ErrConsumedRefresh
			}
			return fmt.Errorf("consume refresh token: %w", err)
		}

		opaque, err = s.mintRefreshToken(ctx, tx, stored.Subject, client.ID, stored.Scopes, now)
		if err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return domain.TokenPair{}, err
	}

	user, err := s.Users.FindBySubject(ctx, stored.Subject)
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("load token subject: %w", err)
	}

	access, ttl, err := s.signAccess(client, user, stored.Scopes, now)
	if err != nil {
		return domain.TokenPair{}, err
	}

	return domain.TokenPair{
		AccessToken:  access,
		RefreshToken: opaque,
		TokenType:    "Bearer",
		ExpiresIn:    ttl,
		Scope:        strings.Join(stored.Scopes, " "),
	}, nil
}

// RevokeRefreshToken removes a refresh token. Unknown tokens revoke
// successfully, per RFC 7009.
func (s *TokenService) RevokeRefreshToken(
	ctx context.Context,
	clientID, clientSecret string,
	refreshToken string,
) error {
	if _, err := s.authenticateClient(clientID, clientSecret); err != nil {
		return err
	}

	hash := cryptox.FingerprintToken(refreshToken)
	if err := s.Store.RefreshTokens().DeleteRefreshToken(ctx, hash); err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	return nil
}

// RevokeAllForUser drops every refresh token a client holds for a subject.
func (s *TokenService) RevokeAllForUser(ctx context.Context, subject, clientID string) error {
	return s.Store.RefreshTokens().DeleteAllUserClientRefreshTokens(ctx, subject, clientID)
}

func (s *TokenService) authenticateClient(clientID, clientSecret string) (domain.Client, error) {
	client, err := s.Registry.Client(clientID)
	if err != nil {
		return domain.Client{}, ErrInvalidClient
	}
	if err := cryptox.VerifySecret(clientSecret, client.SecretHash); err != nil {
		return domain.Client{}, ErrInvalidClient
	}
	return client, nil
}

// grantScopes narrows the requested scopes to the client's allowed set. An
// empty request grants everything the client is registered for.
func (s *TokenService) grantScopes(client domain.Client, requested []string) ([]string, error) {
	if len(requested) == 0 {
		return slices.Clone(client.Scopes), nil
	}

	granted := dedupe(requested)
	if !client.AllowsScopes(granted) {
		return nil, ErrInvalidScope
	}
	return granted, nil
}

func (s *TokenService) issue(
	ctx context.Context,
	client domain.Client,
	user domain.User,
	granted []string,
) (domain.TokenPair, error) {
	now := time.Now().UTC()

	access, ttl, err := s.signAccess(client, user, granted, now)
	if err != nil {
		return domain.TokenPair{}, err
	}

	pair := domain.TokenPair{
		AccessToken: access,
		TokenType:   "Bearer",
		ExpiresIn:   ttl,
		Scope:       strings.Join(granted, " "),
	}

	if client.AllowOfflineAccess && slices.Contains(granted, ScopeOfflineAccess) {
		opaque, err := s.mintRefreshToken(ctx, s.Store, user.Subject, client.ID, granted, now)
		if err != nil {
			return domain.TokenPair{}, err
		}
		pair.RefreshToken = opaque
	}

	return pair, nil
}

// refreshTokenStore is the slice of store.Store that mintRefreshToken needs,
// satisfied by both the root store and an open transaction.
type refreshTokenStore interface {
	RefreshTokens() store.RefreshTokens
}

func (s *TokenService) mintRefreshToken(
	ctx context.Context,
	st refreshTokenStore,
	subject, clientID string,
	scopes []string,
	now time.Time,
) (string, error) {
	opaque, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return "", fmt.Errorf("generate refresh token: %w", err)
	}

	ttl := s.RefreshTTL
	if ttl <= 0 {
		ttl = jwtx.DefaultRefreshTokenTTL
	}

	err = st.RefreshTokens().CreateRefreshToken(ctx, domain.RefreshToken{
		ID:        idx.New().String(),
		Subject:   subject,
		ClientID:  clientID,
		TokenHash: cryptox.FingerprintToken(opaque),
		Scopes:    scopes,
		ExpiresAt: now.Add(ttl),
	})
	if err != nil {
		return "", fmt.Errorf("store refresh token: %w", err)
	}

	return opaque, nil
}

func (s *TokenService) signAccess(
	client domain.Client,
	user domain.User,
	granted []string,
	now time.Time,
) (string, time.Duration, error) {
	signer := s.Keys.GetSigner()
	if signer == nil {
		return "", 0, errors.New("no signing key available")
	}

	ttl := client.AccessTokenTTL
	if ttl <= 0 {
		ttl = jwtx.DefaultAccessTokenTTL
	}

	audience := make([]string, 0, 1)
	for _, res := range s.Registry.ResourcesForScopes(granted) {
		audience = append(audience, res.Name)
	}

	claims := jwtx.NewAccessClaims(
		user.Subject,
		client.ID,
		s.Profile.ExpandScopes(granted),
		ttl,
		s.Issuer,
		audience,
		now,
	)
	s.Profile.Populate(&claims, user)

	token, err := signer.Sign(claims)
	if err != nil {
		return "", 0, fmt.Errorf("sign access token: %w", err)
	}
	return token, ttl, nil
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
