package repository

import (
	"context"

	"busfare/internal/domain"
)

// AccountRepository defines the persistence operations for rider accounts.
type AccountRepository interface {
	// Create persists a new account.
	Create(ctx context.Context, account *domain.Account) error

	// GetByID retrieves an account by ID.
	GetByID(ctx context.Context, id string) (*domain.Account, error)

	// GetAll retrieves all accounts.
	GetAll(ctx context.Context) ([]*domain.Account, error)

	// Update saves debt and locked balance of an existing account.
	Update(ctx context.Context, account *domain.Account) error
}
