package repository

import (
	"context"
	"time"

	"piiwatch/internal/session/domain"
)

// Repository defines persistence for refresh token records.
type Repository interface {
	Create(ctx context.Context, t *domain.RefreshToken) error
	// GetByID returns the record for id, or nil if not found.
	GetByID(ctx context.Context, id string) (*domain.RefreshToken, error)
	// Revoke marks id revoked only if it is still unrevoked and unexpired at now.
	// It reports whether this call performed the transition.
	Revoke(ctx context.Context, id string, now time.Time) (bool, error)
	// RevokeAllByUser marks every unrevoked record of userID revoked and returns how many changed.
	RevokeAllByUser(ctx context.Context, userID string, now time.Time) (int64, error)
	// DeleteStale removes records expired at now or revoked and untouched for longer than grace.
	DeleteStale(ctx context.Context, now time.Time, grace time.Duration) (int64, error)
}
