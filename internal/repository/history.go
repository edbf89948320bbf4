package repository

import (
	"context"

	"busfare/internal/domain"
)

// HistoryRepository is the append-only store of settlement records.
type HistoryRepository interface {
	// Append stores a new record. Records are never updated or deleted.
	Append(ctx context.Context, record *domain.SettlementRecord) error

	// List returns the most recent records, newest first.
	List(ctx context.Context, limit int) ([]*domain.SettlementRecord, error)

	// ListByAccount returns an account's records, newest first.
	ListByAccount(ctx context.Context, accountID string, limit int) ([]*domain.SettlementRecord, error)
}
