package memory

import (
	"context"
	"sync"

	"busfare/internal/domain"
	"busfare/internal/repository"
)

// HistoryRepository is an append-only slice of settlement records.
type HistoryRepository struct {
	mu      sync.RWMutex
	records []domain.SettlementRecord
}

// NewHistoryRepository creates an empty history.
func NewHistoryRepository() *HistoryRepository {
	return &HistoryRepository{}
}

func (r *HistoryRepository) Append(ctx context.Context, record *domain.SettlementRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, *record)
	return nil
}

func (r *HistoryRepository) List(ctx context.Context, limit int) ([]*domain.SettlementRecord, error) {
	return r.collect(limit, func(*domain.SettlementRecord) bool { return true }), nil
}

func (r *HistoryRepository) ListByAccount(ctx context.Context, accountID string, limit int) ([]*domain.SettlementRecord, error) {
	return r.collect(limit, func(rec *domain.SettlementRecord) bool { return rec.AccountID == accountID }), nil
}

func (r *HistoryRepository) collect(limit int, keep func(*domain.SettlementRecord) bool) []*domain.SettlementRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*domain.SettlementRecord
	for i := len(r.records) - 1; i >= 0; i-- {
		rec := r.records[i]
		if !keep(&rec) {
			continue
		}
		out = append(out, &rec)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

// Count returns the number of stored records.
func (r *HistoryRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}

var _ repository.HistoryRepository = (*HistoryRepository)(nil)
