package repository

import (
	"context"
	"errors"

	"piiwatch/internal/identity/domain"
)

// ErrAlreadyLinked is returned by Create when the provider account is linked already.
var ErrAlreadyLinked = errors.New("provider account already linked")

// Repository defines persistence for identities.
type Repository interface {
	// GetByProviderAccount returns the identity for the provider account, or nil if not linked.
	GetByProviderAccount(ctx context.Context, provider domain.Provider, accountID string) (*domain.Identity, error)
	Create(ctx context.Context, i *domain.Identity) error
}
