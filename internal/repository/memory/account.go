// Package memory provides in-process implementations of the repository
// interfaces for local runs and tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"busfare/internal/domain"
	"busfare/internal/repository"
)

// AccountRepository keeps accounts in a map.
type AccountRepository struct {
	mu       sync.RWMutex
	accounts map[string]*domain.Account
}

// NewAccountRepository creates an empty account repository.
func NewAccountRepository() *AccountRepository {
	return &AccountRepository{accounts: make(map[string]*domain.Account)}
}

func (r *AccountRepository) Create(ctx context.Context, account *domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.accounts[account.ID]; ok {
		return repository.ErrAlreadyExists
	}
	stored := *account
	r.accounts[account.ID] = &stored
	return nil
}

func (r *AccountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	account, ok := r.accounts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	// Return a copy to avoid mutation issues.
	copy := *account
	return &copy, nil
}

func (r *AccountRepository) GetAll(ctx context.Context) ([]*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]*domain.Account, 0, len(r.accounts))
	for _, a := range r.accounts {
		copy := *a
		result = append(result, &copy)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result, nil
}

func (r *AccountRepository) Update(ctx context.Context, account *domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.accounts[account.ID]; !ok {
		return repository.ErrNotFound
	}
	stored := *account
	r.accounts[account.ID] = &stored
	return nil
}

var _ repository.AccountRepository = (*AccountRepository)(nil)
