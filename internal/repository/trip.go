package repository

import (
	"context"

	"busfare/internal/domain"
)

// TripRepository persists open trips so they survive a restart.
type TripRepository interface {
	// Create persists a newly opened trip.
	Create(ctx context.Context, trip *domain.Trip) error

	// Delete removes a trip once it has been closed.
	Delete(ctx context.Context, id string) error

	// GetAll retrieves every open trip.
	GetAll(ctx context.Context) ([]*domain.Trip, error)
}
