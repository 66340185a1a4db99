package repository

import (
	"context"
	"database/sql"
	"errors"

	"piiwatch/internal/db"
	"piiwatch/internal/identity/domain"
)

const (
	getIdentitySQL = `SELECT id, user_id, provider, provider_account_id, created_at
FROM identities WHERE provider = $1 AND provider_account_id = $2`
	createIdentitySQL = `INSERT INTO identities (id, user_id, provider, provider_account_id, created_at)
VALUES ($1, $2, $3, $4, $5)`
)

// PostgresRepository stores identities in the identities table.
type PostgresRepository struct {
	db db.DBTX
}

// NewPostgresRepository returns an identity repository that uses the given db for persistence.
func NewPostgresRepository(conn db.DBTX) *PostgresRepository {
	return &PostgresRepository{db: conn}
}

// GetByProviderAccount returns the identity, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByProviderAccount(ctx context.Context, provider domain.Provider, accountID string) (*domain.Identity, error) {
	var i domain.Identity
	var p string
	err := r.db.QueryRowContext(ctx, getIdentitySQL, string(provider), accountID).Scan(
		&i.ID, &i.UserID, &p, &i.ProviderAccountID, &i.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	i.Provider = domain.Provider(p)
	return &i, nil
}

// Create persists i. Returns ErrAlreadyLinked on a unique violation.
func (r *PostgresRepository) Create(ctx context.Context, i *domain.Identity) error {
	_, err := r.db.ExecContext(ctx, createIdentitySQL, i.ID, i.UserID, string(i.Provider), i.ProviderAccountID, i.CreatedAt)
	if db.IsUniqueViolation(err) {
		return ErrAlreadyLinked
	}
	return err
}
