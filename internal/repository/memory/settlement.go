package memory

import (
	"context"
	"fmt"
	"sync"

	"busfare/internal/domain"
	"busfare/internal/repository"
)

// SettlementStore commits settlements to separate account and history
// repositories. Commits are serialised; a failed account update skips the
// history append and a failed append puts the previous account back.
type SettlementStore struct {
	mu       sync.Mutex
	accounts repository.AccountRepository
	history  repository.HistoryRepository
}

// NewSettlementStore creates a SettlementStore over the given repositories.
func NewSettlementStore(accounts repository.AccountRepository, history repository.HistoryRepository) *SettlementStore {
	return &SettlementStore{accounts: accounts, history: history}
}

func (s *SettlementStore) Commit(ctx context.Context, account *domain.Account, record *domain.SettlementRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	previous, err := s.accounts.GetByID(ctx, account.ID)
	if err != nil {
		return fmt.Errorf("load account: %w", err)
	}
	if err := s.accounts.Update(ctx, account); err != nil {
		return fmt.Errorf("save account: %w", err)
	}
	if err := s.history.Append(ctx, record); err != nil {
		if rerr := s.accounts.Update(ctx, previous); rerr != nil {
			return fmt.Errorf("append history: %w (account restore: %v)", err, rerr)
		}
		return fmt.Errorf("append history: %w", err)
	}
	return nil
}

var _ repository.SettlementStore = (*SettlementStore)(nil)
