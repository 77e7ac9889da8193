package sqlite

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/eventwise/eventauth/internal/auth/domain"
	"github.com/eventwise/eventauth/internal/auth/store"
	"github.com/eventwise/eventauth/pkg/idx"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "test.db")
	s, err := NewStore(dsn)
	require.NoError(t, err)
	require.NoError(t, s.ApplyMigrations())

	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seedUser(t *testing.T, s *Store, subject, username string) domain.User {
	t.Helper()

	u := domain.User{
		Subject:      subject,
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "$argon2id$v=19$m=19456,t=2,p=1$c2FsdA$aGFzaA",
		Claims: []domain.Claim{
			{Type: domain.ClaimTypeName, Value: username},
			{Type: domain.ClaimTypeRole, Value: "dataEventRecords.user"},
		},
	}
	require.NoError(t, s.Users().CreateUser(context.Background(), u))
	return u
}

func TestUsersRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	empty, err := s.Users().IsEmpty(ctx)
	require.NoError(t, err)
	require.True(t, empty)

	seedUser(t, s, "123", "damienbod")

	got, err := s.Users().GetUserBySubject(ctx, "123")
	require.NoError(t, err)
	require.Equal(t, "damienbod", got.Username)
	require.Len(t, got.Claims, 2)
	require.True(t, got.HasClaim(domain.ClaimTypeRole, "dataEventRecords.user"))

	byName, err := s.Users().GetUserByUsername(ctx, "damienbod")
	require.NoError(t, err)
	require.Equal(t, "123", byName.Subject)

	_, err = s.Users().GetUserByUsername(ctx, "nobody")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestUsersExternalProviderLookup(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u := domain.User{
		Subject:         idx.New().String(),
		Username:        "federated-user",
		PasswordHash:    "x",
		ProviderName:    "aad",
		ProviderSubject: "external-42",
	}
	require.NoError(t, s.Users().CreateUser(ctx, u))

	got, err := s.Users().GetUserByExternalProvider(ctx, "aad", "external-42")
	require.NoError(t, err)
	require.Equal(t, u.Subject, got.Subject)

	_, err = s.Users().GetUserByExternalProvider(ctx, "aad", "unknown")
	require.ErrorIs(t, err, store.ErrNotFound)

	// Local users with empty provider fields must never match.
	seedUser(t, s, "123", "damienbod")
	_, err = s.Users().GetUserByExternalProvider(ctx, "", "")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestReplaceUserClaims(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	seedUser(t, s, "123", "damienbod")

	newClaims := []domain.Claim{
		{Type: domain.ClaimTypeRole, Value: "dataEventRecords.admin"},
		{Type: domain.ClaimTypeEmail, Value: "damienbod@example.com"},
	}
	require.NoError(t, s.Users().ReplaceUserClaims(ctx, "123", newClaims))

	got, err := s.Users().GetUserBySubject(ctx, "123")
	require.NoError(t, err)
	require.Equal(t, newClaims, got.Claims)
}

func TestDeleteUserCascadesRefreshTokens(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	seedUser(t, s, "123", "damienbod")

	rt := domain.RefreshToken{
		ID:        idx.New().String(),
		Subject:   "123",
		ClientID:  "resourceownerclient",
		TokenHash: "hash-1",
		Scopes:    []string{"dataEventRecords"},
		ExpiresAt: time.Now().UTC().Add(time.Hour),
	}
	require.NoError(t, s.RefreshTokens().CreateRefreshToken(ctx, rt))

	require.NoError(t, s.Users().DeleteUser(ctx, "123"))

	_, err := s.RefreshTokens().GetRefreshTokenByHash(ctx, "hash-1")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestRefreshTokenRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	seedUser(t, s, "123", "damienbod")

	rt := domain.RefreshToken{
		ID:        idx.New().String(),
		Subject:   "123",
		ClientID:  "resourceownerclient",
		TokenHash: "hash-rt",
		Scopes:    []string{"dataEventRecords", "offline_access"},
		ExpiresAt: time.Now().UTC().Add(time.Hour),
	}
	require.NoError(t, s.RefreshTokens().CreateRefreshToken(ctx, rt))

	got, err := s.RefreshTokens().GetRefreshTokenByHash(ctx, "hash-rt")
	require.NoError(t, err)
	require.Equal(t, rt.ID, got.ID)
	require.Equal(t, []string{"dataEventRecords", "offline_access"}, got.Scopes)
	require.False(t, got.Consumed)

	require.NoError(t, s.RefreshTokens().ConsumeRefreshToken(ctx, "hash-rt"))

	got, err = s.RefreshTokens().GetRefreshTokenByHash(ctx, "hash-rt")
	require.NoError(t, err)
	require.True(t, got.Consumed)

	// A second consume attempt must fail.
	require.ErrorIs(t, s.RefreshTokens().ConsumeRefreshToken(ctx, "hash-rt"), store.ErrNotFound)
}

func TestConsumeRefreshTokenExactlyOnce(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	seedUser(t, s, "123", "damienbod")

	require.NoError(t, s.RefreshTokens().CreateRefreshToken(ctx, domain.RefreshToken{
		ID:        idx.New().String(),
		Subject:   "123",
		ClientID:  "resourceownerclient",
		TokenHash: "hash-race",
		ExpiresAt: time.Now().UTC().Add(time.Hour),
	}))

	const workers = 8

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.RefreshTokens().ConsumeRefreshToken(ctx, "hash-race"); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 1, successes, "exactly one concurrent consume must win")
}

func TestDeleteExpiredRefreshTokens(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	seedUser(t, s, "123", "damienbod")

	now := time.Now().UTC()
	mk := func(hash string, expires time.Time) {
		require.NoError(t, s.RefreshTokens().CreateRefreshToken(ctx, domain.RefreshToken{
			ID:        idx.New().String(),
			Subject:   "123",
			ClientID:  "resourceownerclient",
			TokenHash: hash,
			ExpiresAt: expires,
		}))
	}
	mk("hash-live", now.Add(time.Hour))
	mk("hash-expired", now.Add(-time.Hour))
	mk("hash-consumed", now.Add(time.Hour))
	require.NoError(t, s.RefreshTokens().ConsumeRefreshToken(ctx, "hash-consumed"))

	require.NoError(t, s.RefreshTokens().DeleteExpiredRefreshTokens(ctx))

	_, err := s.RefreshTokens().GetRefreshTokenByHash(ctx, "hash-live")
	require.NoError(t, err)
	_, err = s.RefreshTokens().GetRefreshTokenByHash(ctx, "hash-expired")
	require.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.RefreshTokens().GetRefreshTokenByHash(ctx, "hash-consumed")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestWithTxRollsBackOnError(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	seedUser(t, s, "123", "damienbod")

	err := s.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.RefreshTokens().CreateRefreshToken(ctx, domain.RefreshToken{
			ID:        idx.New().String(),
			Subject:   "123",
			ClientID:  "resourceownerclient",
			TokenHash: "hash-tx",
			ExpiresAt: time.Now().UTC().Add(time.Hour),
		}); err != nil {
			return err
		}
		return context.Canceled // force rollback
	})
	require.Error(t, err)

	_, err = s.RefreshTokens().GetRefreshTokenByHash(ctx, "hash-tx")
	require.ErrorIs(t, err, store.ErrNotFound)
}
