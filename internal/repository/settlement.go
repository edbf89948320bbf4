package repository

import (
	"context"

	"busfare/internal/domain"
)

// SettlementStore persists the outcome of a settlement: the updated account
// and its history record, both or neither.
type SettlementStore interface {
	Commit(ctx context.Context, account *domain.Account, record *domain.SettlementRecord) error
}
