package postgres

import (
	"context"
	"database/sql"

	"busfare/internal/domain"
	"busfare/internal/repository"
)

// TripRepository is a PostgreSQL implementation of repository.TripRepository.
type TripRepository struct {
	q Querier
}

// NewTripRepository creates a new PostgreSQL open-trip repository.
func NewTripRepository(db *sql.DB) *TripRepository {
	return &TripRepository{q: db}
}

// Create persists a newly opened trip.
func (r *TripRepository) Create(ctx context.Context, trip *domain.Trip) error {
	query := `
		INSERT INTO open_trips (id, account_id, start_time, passenger_count, rate, route_name, locked_cents)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.q.ExecContext(ctx, query,
		trip.ID,
		trip.AccountID,
		trip.StartTime,
		trip.PassengerCount,
		trip.Rate,
		trip.RouteName,
		int64(trip.LockedDeposit),
	)

	return err
}

// Delete removes a closed trip.
func (r *TripRepository) Delete(ctx context.Context, id string) error {
	result, err := r.q.ExecContext(ctx, `DELETE FROM open_trips WHERE id = $1`, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// GetAll retrieves every open trip.
func (r *TripRepository) GetAll(ctx context.Context) ([]*domain.Trip, error) {
	query := `
		SELECT id, account_id, start_time, passenger_count, rate, route_name, locked_cents
		FROM open_trips ORDER BY start_time
	`

	rows, err := r.q.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trips []*domain.Trip
	for rows.Next() {
		var trip domain.Trip
		var locked int64
		if err := rows.Scan(
			&trip.ID,
			&trip.AccountID,
			&trip.StartTime,
			&trip.PassengerCount,
			&trip.Rate,
			&trip.RouteName,
			&locked,
		); err != nil {
			return nil, err
		}
		trip.LockedDeposit = domain.Money(locked)
		trips = append(trips, &trip)
	}

	return trips, rows.Err()
}
