package store

import (
	"context"
	"errors"

	"github.com/eventwise/eventauth/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite,
// postgres) implement this. It exposes sub-repositories to keep concerns
// tidy and testable, and to actively stop callers from accidentally opening
// transactions within transactions.
type Store interface {
	Users() Users
	RefreshTokens() RefreshTokens

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// Use it for multi-step operations that must be atomic (e.g., refresh
	// rotation). The caller MUST call Commit() or Rollback() on the
	// returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes a function within a transaction. If fn returns an
	// error, the transaction is rolled back; otherwise it is committed.
	// This is the recommended way to handle transactions.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources (optional for sqlite).
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	// GetUserBySubject returns a user with their claims by subject identifier.
	GetUserBySubject(ctx context.Context, subject string) (domain.User, error)

	// GetUserByUsername is used during the password grant.
	GetUserByUsername(ctx context.Context, username string) (domain.User, error)

	// GetUserByExternalProvider looks up a federated user by the identity
	// provider name and the subject the provider assigned them.
	GetUserByExternalProvider(ctx context.Context, provider, providerSubject string) (domain.User, error)

	// CreateUser inserts a new user and their claims (subject is provided
	// by the app via ULID or seed data).
	CreateUser(ctx context.Context, u domain.User) error

	// UpdatePasswordHash sets the password_hash (argon2) and bumps updated_at.
	UpdatePasswordHash(ctx context.Context, subject string, newHash string) error

	// ReplaceUserClaims replaces the user's stored claims wholesale.
	ReplaceUserClaims(ctx context.Context, subject string, claims []domain.Claim) error

	// DeleteUser cascades to user_claims and refresh_tokens (per schema).
	DeleteUser(ctx context.Context, subject string) error

	// IsEmpty returns true if there are no users.
	IsEmpty(ctx context.Context) (bool, error)
}

type RefreshTokens interface {
	// CreateRefreshToken stores a new refresh token record.
	CreateRefreshToken(ctx context.Context, t domain.RefreshToken) error

	// GetRefreshTokenByHash returns the token by its fingerprint.
	GetRefreshTokenByHash(ctx context.Context, hash string) (domain.RefreshToken, error)

	// ConsumeRefreshToken marks the token consumed, but only if it has not
	// been consumed already. Returns ErrNotFound when the token is missing
	// or was consumed before, so exactly one caller can win a rotation race.
	ConsumeRefreshToken(ctx context.Context, hash string) error

	// DeleteRefreshToken removes a token outright (used by revocation).
	DeleteRefreshToken(ctx context.Context, hash string) error

	// DeleteAllUserClientRefreshTokens bulk removal for a user+client pair
	// (e.g., password reset).
	DeleteAllUserClientRefreshTokens(ctx context.Context, subject, clientID string) error

	// DeleteExpiredRefreshTokens is housekeeping for expired and consumed rows.
	DeleteExpiredRefreshTokens(ctx context.Context) error
}
