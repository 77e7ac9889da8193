package sqlite

import (
	"context"
	"time"

	"github.com/eventwise/eventauth/internal/auth/domain"
	"github.com/eventwise/eventauth/internal/auth/store"
)

type refreshTokensRepo struct {
	q querier
}

func (r *refreshTokensRepo) CreateRefreshToken(ctx context.Context, t domain.RefreshToken) error {
	now := time.Now().UTC()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = now
	}

	_, err := r.q.ExecContext(ctx, `
		INSERT INTO refresh_tokens (id, subject, client_id, token_hash, scopes, expires_at, consumed, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, 0, ?, ?)`,
		t.ID, t.Subject, t.ClientID, t.TokenHash,
		joinScopes(t.Scopes), t.ExpiresAt, t.CreatedAt, t.UpdatedAt,
	)
	return err
}

func (r *refreshTokensRepo) GetRefreshTokenByHash(
	ctx context.Context,
	hash string,
) (domain.RefreshToken, error) {
	var (
		t      domain.RefreshToken
		scopes string
	)
	err := r.q.QueryRowContext(ctx, `
		SELECT id, subject, client_id, token_hash, scopes, expires_at, consumed, created_at, updated_at
		FROM refresh_tokens WHERE token_hash = ?`,
		hash,
	).Scan(
		&t.ID, &t.Subject, &t.ClientID, &t.TokenHash,
		&scopes, &t.ExpiresAt, &t.Consumed, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return domain.RefreshToken{}, mapNotFound(err)
	}
	t.Scopes = splitScopes(scopes)
	return t, nil
}

// ConsumeRefreshToken flips consumed=1, but only when the row is still
// unconsumed. The conditional update makes concurrent rotations race on a
// single row write, so exactly one caller sees success.
func (r *refreshTokensRepo) ConsumeRefreshToken(ctx context.Context, hash string) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE refresh_tokens SET consumed = 1, updated_at = ?
		WHERE token_hash = ? AND consumed = 0`,
		time.Now().UTC(), hash,
	)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *refreshTokensRepo) DeleteRefreshToken(ctx context.Context, hash string) error {
	_, err := r.q.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE token_hash = ?`, hash)
	return err
}

func (r *refreshTokensRepo) DeleteAllUserClientRefreshTokens(
	ctx context.Context,
	subject, clientID string,
) error {
	_, err := r.q.ExecContext(ctx, `
		DELETE FROM refresh_tokens WHERE subject = ? AND client_id = ?`,
		subject, clientID,
	)
	return err
}

func (r *refreshTokensRepo) DeleteExpiredRefreshTokens(ctx context.Context) error {
	_, err := r.q.ExecContext(ctx, `
		DELETE FROM refresh_tokens WHERE expires_at < ? OR consumed = 1`,
		time.Now().UTC(),
	)
	return err
}
