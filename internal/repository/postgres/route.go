package postgres

import (
	"context"
	"database/sql"
	"errors"

	"busfare/internal/domain"
	"busfare/internal/repository"
)

// RouteRepository is a PostgreSQL implementation of repository.RouteRepository.
type RouteRepository struct {
	q Querier
}

// NewRouteRepository creates a new PostgreSQL route repository.
func NewRouteRepository(db *sql.DB) *RouteRepository {
	return &RouteRepository{q: db}
}

// Create persists a new route.
func (r *RouteRepository) Create(ctx context.Context, route *domain.Route) error {
	query := `INSERT INTO routes (id, name, rate_per_second) VALUES ($1, $2, $3)`
	_, err := r.q.ExecContext(ctx, query, route.ID, route.Name, route.RatePerSecond)
	return err
}

// GetByID retrieves a route by ID.
func (r *RouteRepository) GetByID(ctx context.Context, id string) (*domain.Route, error) {
	query := `SELECT id, name, rate_per_second FROM routes WHERE id = $1`

	var route domain.Route
	err := r.q.QueryRowContext(ctx, query, id).Scan(&route.ID, &route.Name, &route.RatePerSecond)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	return &route, nil
}

// GetAll retrieves all routes.
func (r *RouteRepository) GetAll(ctx context.Context) ([]*domain.Route, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT id, name, rate_per_second FROM routes ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var routes []*domain.Route
	for rows.Next() {
		var route domain.Route
		if err := rows.Scan(&route.ID, &route.Name, &route.RatePerSecond); err != nil {
			return nil, err
		}
		routes = append(routes, &route)
	}
	return routes, rows.Err()
}

// Delete removes a route.
func (r *RouteRepository) Delete(ctx context.Context, id string) error {
	result, err := r.q.ExecContext(ctx, `DELETE FROM routes WHERE id = $1`, id)
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

// GetFareSettings returns the active fare settings, or nil if none are saved.
func (r *RouteRepository) GetFareSettings(ctx context.Context) (*domain.FareSettings, error) {
	query := `SELECT rate_per_second, current_route_id FROM fare_settings WHERE id = 1`

	var settings domain.FareSettings
	var routeID sql.NullString
	err := r.q.QueryRowContext(ctx, query).Scan(&settings.RatePerSecond, &routeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	settings.CurrentRouteID = routeID.String
	return &settings, nil
}

// SaveFareSettings replaces the active fare settings.
func (r *RouteRepository) SaveFareSettings(ctx context.Context, settings *domain.FareSettings) error {
	query := `
		INSERT INTO fare_settings (id, rate_per_second, current_route_id)
		VALUES (1, $1, $2)
		ON CONFLICT (id) DO UPDATE
		SET rate_per_second = EXCLUDED.rate_per_second, current_route_id = EXCLUDED.current_route_id
	`

	var routeID sql.NullString
	if settings.CurrentRouteID != "" {
		routeID = sql.NullString{String: settings.CurrentRouteID, Valid: true}
	}

	_, err := r.q.ExecContext(ctx, query, settings.RatePerSecond, routeID)
	return err
}
