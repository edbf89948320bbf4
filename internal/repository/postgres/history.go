package postgres

import (
	"context"
	"database/sql"

	"busfare/internal/domain"
)

// HistoryRepository is a PostgreSQL implementation of repository.HistoryRepository.
type HistoryRepository struct {
	q Querier
}

// NewHistoryRepository creates a new PostgreSQL history repository.
func NewHistoryRepository(db *sql.DB) *HistoryRepository {
	return &HistoryRepository{q: db}
}

// NewHistoryRepositoryWithTx creates a history repository using a transaction.
func NewHistoryRepositoryWithTx(tx *sql.Tx) *HistoryRepository {
	return &HistoryRepository{q: tx}
}

const historyColumns = `
	id, kind, account_id, trip_id, route_name, start_time, end_time,
	duration_seconds, passengers, rate, raw_amount, charged_cents, total_due_cents,
	collected_cents, debt_before_cents, debt_after_cents, transaction_ref, status, created_at`

// Append stores a new settlement record.
func (r *HistoryRepository) Append(ctx context.Context, rec *domain.SettlementRecord) error {
	query := `INSERT INTO settlement_history (` + historyColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`

	var startTime, endTime sql.NullTime
	if !rec.StartTime.IsZero() {
		startTime = sql.NullTime{Time: rec.StartTime, Valid: true}
	}
	if !rec.EndTime.IsZero() {
		endTime = sql.NullTime{Time: rec.EndTime, Valid: true}
	}

	var txRef sql.NullString
	if rec.TransactionRef != nil {
		txRef = sql.NullString{String: *rec.TransactionRef, Valid: true}
	}

	_, err := r.q.ExecContext(ctx, query,
		rec.ID,
		rec.Kind,
		rec.AccountID,
		rec.TripID,
		rec.RouteName,
		startTime,
		endTime,
		rec.DurationSeconds,
		rec.Passengers,
		rec.Rate,
		rec.RawAmount,
		int64(rec.ChargedAmount),
		int64(rec.TotalDue),
		int64(rec.CollectedAmount),
		int64(rec.DebtBefore),
		int64(rec.DebtAfter),
		txRef,
		rec.Status,
		rec.CreatedAt,
	)

	return err
}

// List returns the most recent records, newest first.
func (r *HistoryRepository) List(ctx context.Context, limit int) ([]*domain.SettlementRecord, error) {
	query := `SELECT ` + historyColumns + ` FROM settlement_history
		ORDER BY created_at DESC LIMIT $1`

	return r.query(ctx, query, normalizeLimit(limit))
}

// ListByAccount returns an account's records, newest first.
func (r *HistoryRepository) ListByAccount(ctx context.Context, accountID string, limit int) ([]*domain.SettlementRecord, error) {
	query := `SELECT ` + historyColumns + ` FROM settlement_history
		WHERE account_id = $1 ORDER BY created_at DESC LIMIT $2`

	return r.query(ctx, query, accountID, normalizeLimit(limit))
}

func (r *HistoryRepository) query(ctx context.Context, query string, args ...any) ([]*domain.SettlementRecord, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*domain.SettlementRecord
	for rows.Next() {
		var rec domain.SettlementRecord
		var startTime, endTime sql.NullTime
		var txRef sql.NullString
		var charged, totalDue, collected, debtBefore, debtAfter int64

		if err := rows.Scan(
			&rec.ID,
			&rec.Kind,
			&rec.AccountID,
			&rec.TripID,
			&rec.RouteName,
			&startTime,
			&endTime,
			&rec.DurationSeconds,
			&rec.Passengers,
			&rec.Rate,
			&rec.RawAmount,
			&charged,
			&totalDue,
			&collected,
			&debtBefore,
			&debtAfter,
			&txRef,
			&rec.Status,
			&rec.CreatedAt,
		); err != nil {
			return nil, err
		}

		if startTime.Valid {
			rec.StartTime = startTime.Time
		}
		if endTime.Valid {
			rec.EndTime = endTime.Time
		}
		if txRef.Valid {
			ref := txRef.String
			rec.TransactionRef = &ref
		}
		rec.ChargedAmount = domain.Money(charged)
		rec.TotalDue = domain.Money(totalDue)
		rec.CollectedAmount = domain.Money(collected)
		rec.DebtBefore = domain.Money(debtBefore)
		rec.DebtAfter = domain.Money(debtAfter)

		records = append(records, &rec)
	}

	return records, rows.Err()
}

// normalizeLimit caps unbounded reads the same way the dashboard does.
func normalizeLimit(limit int) int {
	if limit <= 0 || limit > 500 {
		return 500
	}
	return limit
}
