package service

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/eventwise/eventauth/internal/auth/domain"
	"github.com/eventwise/eventauth/internal/auth/registry"
	"github.com/eventwise/eventauth/internal/auth/store"
	"github.com/eventwise/eventauth/internal/auth/store/drivers/sqlite"
	"github.com/eventwise/eventauth/pkg/cryptox"
	"github.com/eventwise/eventauth/pkg/jwtx"
)

const (
	testIssuer       = "https://auth.test"
	testClientID     = "resourceownerclient"
	testClientSecret = "dataEventRecordsSecret"
)

type testEnv struct {
	tokens *TokenService
	users  *UserService
	store  *sqlite.Store
	keys   *jwtx.KeyManager
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st, err := sqlite.NewStore(filepath.Join(t.TempDir(), "auth.db"))
	require.NoError(t, err)
	require.NoError(t, st.ApplyMigrations())
	t.Cleanup(func() { _ = st.Close() })

	km, err := jwtx.NewEphemeralKeyManager(jwtx.KeyManagerOptions{
		Algorithm: jwtx.AlgorithmEdDSA,
		Issuer:    testIssuer,
		NumKeys:   1,
	})
	require.NoError(t, err)

	secretHash, err := cryptox.HashSecret(testClientSecret)
	require.NoError(t, err)

	reg, err := registry.New(
		[]domain.Client{{
			ID:                 testClientID,
			Name:               "Resource Owner Client",
			SecretHash:         secretHash,
			GrantTypes:         []string{domain.GrantPassword, domain.GrantRefreshToken},
			Scopes:             []string{"dataEventRecords", ScopeOfflineAccess},
			AccessTokenTTL:     900 * time.Second,
			AllowOfflineAccess: true,
		}},
		[]domain.APIResource{{
			Name:       "dataEventRecords",
			ScopeClaim: "dataEventRecordsScope",
		}},
	)
	require.NoError(t, err)

	users := &UserService{Store: st}
	tokens := &TokenService{
		Keys:     km,
		Store:    st,
		Registry: reg,
		Users:    users,
		Profile:  &ProfileService{Registry: reg},
		Issuer:   testIssuer,
	}

	return &testEnv{tokens: tokens, users: users, store: st, keys: km}
}

func (e *testEnv) seedUser(t *testing.T, subject, username, password string, roles ...string) {
	t.Helper()

	hash, err := cryptox.HashSecret(password)
	require.NoError(t, err)

	claims := []domain.Claim{{Type: domain.ClaimTypeName, Value: username}}
	for _, r := range roles {
		claims = append(claims, domain.Claim{Type: domain.ClaimTypeRole, Value: r})
	}

	require.NoError(t, e.store.Users().CreateUser(context.Background(), domain.User{
		Subject:      subject,
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: hash,
		Claims:       claims,
	}))
}

func TestExchangePasswordIssuesTokenPair(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.seedUser(t, "123", "damienbod", "damienbod",
		"dataEventRecords.admin", "dataEventRecords.user")

	pair, err := env.tokens.ExchangePassword(ctx,
		testClientID, testClientSecret,
		"damienbod", "damienbod",
		[]string{"dataEventRecords", ScopeOfflineAccess},
	)
	require.NoError(t, err)

	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)
	require.Equal(t, "Bearer", pair.TokenType)
	require.Equal(t, 900*time.Second, pair.ExpiresIn)
	require.Equal(t, "dataEventRecords offline_access", pair.Scope)

	claims, err := env.keys.Verifier.Verify(pair.AccessToken)
	require.NoError(t, err)
	require.Equal(t, "123", claims.Subject)
	require.Equal(t, testClientID, claims.ClientID)
	require.Equal(t, testIssuer, claims.Issuer)
	require.Contains(t, []string(claims.Audience), "dataEventRecords")
	require.True(t, claims.HasScope("dataEventRecords"))
	require.True(t, claims.HasScope("dataEventRecordsScope"))
	require.True(t, claims.HasRole("dataEventRecords.admin"))
	require.True(t, claims.HasRole("dataEventRecords.user"))
	require.Equal(t, "damienbod", claims.Name)
	require.Equal(t, "damienbod@example.com", claims.Email)

	// Lifetime matches the client's configured TTL.
	lifetime := claims.ExpiresAt.Sub(claims.IssuedAt.Time)
	require.Equal(t, 900*time.Second, lifetime)
}

func TestExchangePasswordDefaultsToClientScopes(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "124", "raphael", "raphael", "dataEventRecords.user")

	pair, err := env.tokens.ExchangePassword(context.Background(),
		testClientID, testClientSecret, "raphael", "raphael", nil)
	require.NoError(t, err)
	require.Equal(t, "dataEventRecords offline_access", pair.Scope)
	require.NotEmpty(t, pair.RefreshToken)
}

func TestExchangePasswordWithoutOfflineAccess(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "124", "raphael", "raphael")

	pair, err := env.tokens.ExchangePassword(context.Background(),
		testClientID, testClientSecret, "raphael", "raphael",
		[]string{"dataEventRecords"})
	require.NoError(t, err)
	require.Empty(t, pair.RefreshToken)
}

func TestExchangePasswordErrors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedUser(t, "123", "damienbod", "damienbod")

	_, err := env.tokens.ExchangePassword(ctx,
		"unknown", testClientSecret, "damienbod", "damienbod", nil)
	require.ErrorIs(t, err, ErrInvalidClient)

	_, err = env.tokens.ExchangePassword(ctx,
		testClientID, "wrong-secret", "damienbod", "damienbod", nil)
	require.ErrorIs(t, err, ErrInvalidClient)

	_, err = env.tokens.ExchangePassword(ctx,
		testClientID, testClientSecret, "damienbod", "damienbod",
		[]string{"unregisteredScope"})
	require.ErrorIs(t, err, ErrInvalidScope)

	_, err = env.tokens.ExchangePassword(ctx,
		testClientID, testClientSecret, "damienbod", "wrong-password", nil)
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = env.tokens.ExchangePassword(ctx,
		testClientID, testClientSecret, "nobody", "damienbod", nil)
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRefreshTokenRotation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedUser(t, "123", "damienbod", "damienbod", "dataEventRecords.user")

	first, err := env.tokens.ExchangePassword(ctx,
		testClientID, testClientSecret, "damienbod", "damienbod", nil)
	require.NoError(t, err)
	require.NotEmpty(t, first.RefreshToken)

	second, err := env.tokens.ExchangeRefreshToken(ctx,
		testClientID, testClientSecret, first.RefreshToken)
	require.NoError(t, err)
	require.NotEmpty(t, second.AccessToken)
	require.NotEmpty(t, second.RefreshToken)
	require.NotEqual(t, first.RefreshToken, second.RefreshToken)
	require.Equal(t, first.Scope, second.Scope)

	claims, err := env.keys.Verifier.Verify(second.AccessToken)
	require.NoError(t, err)
	require.Equal(t, "123", claims.Subject)
	require.True(t, claims.HasRole("dataEventRecords.user"))

	// The consumed token must not be redeemable again.
	_, err = env.tokens.ExchangeRefreshToken(ctx,
		testClientID, testClientSecret, first.RefreshToken)
	require.ErrorIs(t, err, ErrConsumedRefresh)

	// The replacement still works.
	third, err := env.tokens.ExchangeRefreshToken(ctx,
		testClientID, testClientSecret, second.RefreshToken)
	require.NoError(t, err)
	require.NotEmpty(t, third.RefreshToken)
}

func TestRefreshTokenUnknownAndExpired(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedUser(t, "123", "damienbod", "damienbod")

	_, err := env.tokens.ExchangeRefreshToken(ctx,
		testClientID, testClientSecret, "not-a-real-token")
	require.ErrorIs(t, err, ErrInvalidRefresh)

	// Expired tokens are rejected before consumption.
	env.tokens.RefreshTTL = -time.Hour
	pair, err := env.tokens.ExchangePassword(ctx,
		testClientID, testClientSecret, "damienbod", "damienbod", nil)
	require.NoError(t, err)

	_, err = env.tokens.ExchangeRefreshToken(ctx,
		testClientID, testClientSecret, pair.RefreshToken)
	require.ErrorIs(t, err, ErrInvalidRefresh)
}

func TestRevokeRefreshToken(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedUser(t, "123", "damienbod", "damienbod")

	pair, err := env.tokens.ExchangePassword(ctx,
		testClientID, testClientSecret, "damienbod", "damienbod", nil)
	require.NoError(t, err)

	require.NoError(t, env.tokens.RevokeRefreshToken(ctx,
		testClientID, testClientSecret, pair.RefreshToken))

	_, err = env.tokens.ExchangeRefreshToken(ctx,
		testClientID, testClientSecret, pair.RefreshToken)
	require.ErrorIs(t, err, ErrInvalidRefresh)

	// Revoking an unknown token is still a success.
	require.NoError(t, env.tokens.RevokeRefreshToken(ctx,
		testClientID, testClientSecret, "never-issued"))

	// But client authentication is still enforced.
	err = env.tokens.RevokeRefreshToken(ctx, testClientID, "wrong", "x")
	require.ErrorIs(t, err, ErrInvalidClient)
}

func TestPasswordChangeInvalidatesOldPassword(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedUser(t, "123", "damienbod", "damienbod")

	require.NoError(t, env.users.UpdatePassword(ctx, "123", "new-password"))

	_, err := env.tokens.ExchangePassword(ctx,
		testClientID, testClientSecret, "damienbod", "damienbod", nil)
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = env.tokens.ExchangePassword(ctx,
		testClientID, testClientSecret, "damienbod", "new-password", nil)
	require.NoError(t, err)
}

func TestAutoProvisionUser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	claims := []domain.Claim{
		{Type: domain.ClaimTypeName, Value: "External User"},
		{Type: domain.ClaimTypeEmail, Value: "external@example.com"},
	}

	created, err := env.users.AutoProvisionUser(ctx, "aad", "ext-42", claims)
	require.NoError(t, err)
	require.NotEmpty(t, created.Subject)
	require.Equal(t, "aad:ext-42", created.Username)
	require.Equal(t, "external@example.com", created.Email)

	// A second provisioning call for the same identity returns the same user.
	again, err := env.users.AutoProvisionUser(ctx, "aad", "ext-42", claims)
	require.NoError(t, err)
	require.Equal(t, created.Subject, again.Subject)

	// Federated users have no local password.
	_, err = env.users.ValidateCredentials(ctx, "aad:ext-42", "anything")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestValidateCredentialsIgnoresUsernameCase(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedUser(t, "123", "damienbod", "damienbod")

	u, err := env.users.ValidateCredentials(ctx, "DamienBod", "damienbod")
	require.NoError(t, err)
	require.Equal(t, "123", u.Subject)
}

func TestTranslateExternalClaims(t *testing.T) {
	t.Parallel()

	external := []domain.Claim{
		{Type: "http://schemas.xmlsoap.org/ws/2005/05/identity/claims/givenname", Value: "Damien"},
		{Type: "surname", Value: "Bowden"},
		{Type: "http://schemas.xmlsoap.org/ws/2005/05/identity/claims/emailaddress", Value: "damien@example.com"},
		{Type: "favourite_colour", Value: "green"},
	}

	claims := TranslateExternalClaims(external)

	require.Equal(t, "Damien", firstClaim(claims, domain.ClaimTypeGivenName))
	require.Equal(t, "Bowden", firstClaim(claims, domain.ClaimTypeFamilyName))
	require.Equal(t, "damien@example.com", firstClaim(claims, domain.ClaimTypeEmail))

	// Unknown claim types pass through unchanged.
	require.Equal(t, "green", firstClaim(claims, "favourite_colour"))

	// No name claim asserted, so one is synthesized from given+family.
	require.Equal(t, "Damien Bowden", firstClaim(claims, domain.ClaimTypeName))

	// The input is not mutated.
	require.Equal(t, "surname", external[1].Type)
}

func TestProfileClaimRules(t *testing.T) {
	t.Parallel()

	profile := &ProfileService{Rules: []ClaimRule{
		{MatchClient: "resourceownerclient", AddRoles: []string{"auditor"}},
		{MatchScope: "dataEventRecords", AddScopes: []string{"dataEventRecordsScope"}},
		{MatchSubject: "999", AddRoles: []string{"someoneElse"}},
	}}

	claims := jwtx.NewAccessClaims("123", "resourceownerclient",
		[]string{"dataEventRecords"}, 15*time.Minute, "eventauth", nil,
		time.Now().UTC())
	profile.Populate(&claims, domain.User{Username: "damienbod"})

	require.Contains(t, claims.Roles, "auditor")
	require.Contains(t, claims.Scopes, "dataEventRecordsScope")
	require.NotContains(t, claims.Roles, "someoneElse")

	// Without a stored name claim the username stands in.
	require.Equal(t, "damienbod", claims.Name)
}

func TestHousekeepingSweep(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedUser(t, "123", "damienbod", "damienbod")

	env.tokens.RefreshTTL = -time.Hour
	pair, err := env.tokens.ExchangePassword(ctx,
		testClientID, testClientSecret, "damienbod", "damienbod", nil)
	require.NoError(t, err)

	hk := &HousekeepingService{Store: env.store, Interval: time.Hour}
	hk.Start()
	hk.Stop()

	hash := cryptox.FingerprintToken(pair.RefreshToken)
	_, err = env.store.RefreshTokens().GetRefreshTokenByHash(ctx, hash)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestProfileExpandScopes(t *testing.T) {
	env := newTestEnv(t)

	expanded := env.tokens.Profile.ExpandScopes(
		[]string{"dataEventRecords", ScopeOfflineAccess})
	require.ElementsMatch(t,
		[]string{"dataEventRecords", "offline_access", "dataEventRecordsScope"},
		expanded)

	// Scopes without a registered resource pass through untouched.
	require.Equal(t, []string{"offline_access"},
		env.tokens.Profile.ExpandScopes([]string{"offline_access"}))
}
