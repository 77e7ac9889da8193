package sqlite

import (
	"context"
	"time"

	"github.com/eventwise/eventauth/internal/auth/domain"
)

type usersRepo struct {
	q querier
}

const userColumns = `subject, username, email, password_hash, provider_name, provider_subject, created_at, updated_at`

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	now := time.Now().UTC()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	if u.UpdatedAt.IsZero() {
		u.UpdatedAt = now
	}

	_, err := r.q.ExecContext(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		u.Subject, u.Username, u.Email, u.PasswordHash,
		u.ProviderName, u.ProviderSubject, u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		return err
	}

	return r.insertClaims(ctx, u.Subject, u.Claims)
}

func (r *usersRepo) GetUserBySubject(ctx context.Context, subject string) (domain.User, error) {
	return r.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE subject = ?`, subject)
}

func (r *usersRepo) GetUserByUsername(ctx context.Context, username string) (domain.User, error) {
	return r.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE username = ?`, username)
}

func (r *usersRepo) GetUserByExternalProvider(
	ctx context.Context,
	provider, providerSubject string,
) (domain.User, error) {
	return r.getUser(ctx, `
		SELECT `+userColumns+` FROM users
		WHERE provider_name = ? AND provider_subject = ? AND provider_name != ''`,
		provider, providerSubject,
	)
}

func (r *usersRepo) getUser(ctx context.Context, query string, args ...any) (domain.User, error) {
	var u domain.User
	err := r.q.QueryRowContext(ctx, query, args...).Scan(
		&u.Subject, &u.Username, &u.Email, &u.PasswordHash,
		&u.ProviderName, &u.ProviderSubject, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}

	claims, err := r.loadClaims(ctx, u.Subject)
	if err != nil {
		return domain.User{}, err
	}
	u.Claims = claims

	return u, nil
}

func (r *usersRepo) UpdatePasswordHash(ctx context.Context, subject string, newHash string) error {
	_, err := r.q.ExecContext(ctx, `
		UPDATE users SET password_hash = ?, updated_at = ? WHERE subject = ?`,
		newHash, time.Now().UTC(), subject,
	)
	return err
}

func (r *usersRepo) ReplaceUserClaims(ctx context.Context, subject string, claims []domain.Claim) error {
	if _, err := r.q.ExecContext(ctx, `DELETE FROM user_claims WHERE user_subject = ?`, subject); err != nil {
		return err
	}
	if err := r.insertClaims(ctx, subject, claims); err != nil {
		return err
	}

	_, err := r.q.ExecContext(ctx, `UPDATE users SET updated_at = ? WHERE subject = ?`,
		time.Now().UTC(), subject)
	return err
}

func (r *usersRepo) DeleteUser(ctx context.Context, subject string) error {
	_, err := r.q.ExecContext(ctx, `DELETE FROM users WHERE subject = ?`, subject)
	return err
}

func (r *usersRepo) IsEmpty(ctx context.Context) (bool, error) {
	var count int
	if err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return false, err
	}
	return count == 0, nil
}

func (r *usersRepo) insertClaims(ctx context.Context, subject string, claims []domain.Claim) error {
	for _, c := range claims {
		_, err := r.q.ExecContext(ctx, `
			INSERT INTO user_claims (user_subject, claim_type, claim_value)
			VALUES (?, ?, ?)`,
			subject, c.Type, c.Value,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *usersRepo) loadClaims(ctx context.Context, subject string) ([]domain.Claim, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT claim_type, claim_value FROM user_claims
		WHERE user_subject = ? ORDER BY id`,
		subject,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var claims []domain.Claim
	for rows.Next() {
		var c domain.Claim
		if err := rows.Scan(&c.Type, &c.Value); err != nil {
			return nil, err
		}
		claims = append(claims, c)
	}
	return claims, rows.Err()
}
