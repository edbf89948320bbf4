package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"busfare/internal/domain"
	"busfare/internal/repository"
)

// SettlementStore writes the account update and history record in one
// transaction.
type SettlementStore struct {
	db *sql.DB
}

// NewSettlementStore creates a new PostgreSQL settlement store.
func NewSettlementStore(db *sql.DB) *SettlementStore {
	return &SettlementStore{db: db}
}

func (s *SettlementStore) Commit(ctx context.Context, account *domain.Account, record *domain.SettlementRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin settlement: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if err := NewAccountRepositoryWithTx(tx).Update(ctx, account); err != nil {
		return fmt.Errorf("save account: %w", err)
	}
	if err := NewHistoryRepositoryWithTx(tx).Append(ctx, record); err != nil {
		return fmt.Errorf("append history: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit settlement: %w", err)
	}
	return nil
}

var _ repository.SettlementStore = (*SettlementStore)(nil)
