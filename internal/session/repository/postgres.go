package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"piiwatch/internal/db"
	"piiwatch/internal/session/domain"
)

const (
	createRefreshTokenSQL = `INSERT INTO refresh_tokens (id, user_id, token_hash, expires_at, revoked, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

	getRefreshTokenSQL = `SELECT id, user_id, token_hash, expires_at, revoked, created_at, updated_at
FROM refresh_tokens WHERE id = $1`

	revokeRefreshTokenSQL = `UPDATE refresh_tokens SET revoked = TRUE, updated_at = $2
WHERE id = $1 AND revoked = FALSE AND expires_at > $2`

	revokeAllRefreshTokensSQL = `UPDATE refresh_tokens SET revoked = TRUE, updated_at = $2
WHERE user_id = $1 AND revoked = FALSE`

	deleteStaleRefreshTokensSQL = `DELETE FROM refresh_tokens
WHERE expires_at <= $1 OR (revoked = TRUE AND updated_at < $2)`
)

// PostgresRepository stores refresh token records in the refresh_tokens table.
type PostgresRepository struct {
	db db.DBTX
}

// NewPostgresRepository returns a refresh token repository that uses the given db for persistence.
func NewPostgresRepository(conn db.DBTX) *PostgresRepository {
	return &PostgresRepository{db: conn}
}

// Create persists t. The record must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, t *domain.RefreshToken) error {
	_, err := r.db.ExecContext(ctx, createRefreshTokenSQL,
		t.ID, t.UserID, t.TokenHash, t.ExpiresAt, t.Revoked, t.CreatedAt, t.UpdatedAt)
	return err
}

// GetByID returns the record for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.RefreshToken, error) {
	var t domain.RefreshToken
	err := r.db.QueryRowContext(ctx, getRefreshTokenSQL, id).Scan(
		&t.ID, &t.UserID, &t.TokenHash, &t.ExpiresAt, &t.Revoked, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

// Revoke flips revoked only when the row is still live, so concurrent callers
// presenting the same token race on a single row update and exactly one wins.
func (r *PostgresRepository) Revoke(ctx context.Context, id string, now time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, revokeRefreshTokenSQL, id, now)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// RevokeAllByUser revokes every unrevoked record for userID. Already revoked rows keep their updated_at.
func (r *PostgresRepository) RevokeAllByUser(ctx context.Context, userID string, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, revokeAllRefreshTokensSQL, userID, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DeleteStale removes expired records and records revoked before now-grace.
func (r *PostgresRepository) DeleteStale(ctx context.Context, now time.Time, grace time.Duration) (int64, error) {
	res, err := r.db.ExecContext(ctx, deleteStaleRefreshTokensSQL, now, now.Add(-grace))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
