package repository

import (
	"context"

	"busfare/internal/domain"
)

// RouteRepository defines the persistence operations for routes and fare settings.
type RouteRepository interface {
	// Create persists a new route.
	Create(ctx context.Context, route *domain.Route) error

	// GetByID retrieves a route by ID.
	GetByID(ctx context.Context, id string) (*domain.Route, error)

	// GetAll retrieves all routes.
	GetAll(ctx context.Context) ([]*domain.Route, error)

	// Delete removes a route.
	Delete(ctx context.Context, id string) error

	// GetFareSettings returns the active fare settings.
	// Returns nil if none have been saved yet.
	GetFareSettings(ctx context.Context) (*domain.FareSettings, error)

	// SaveFareSettings replaces the active fare settings.
	SaveFareSettings(ctx context.Context, settings *domain.FareSettings) error
}
