package memory

import (
	"context"
	"sync"

	"busfare/internal/domain"
	"busfare/internal/repository"
)

// TripRepository keeps open trips in a map.
type TripRepository struct {
	mu    sync.RWMutex
	trips map[string]domain.Trip
}

// NewTripRepository creates an empty open-trip store.
func NewTripRepository() *TripRepository {
	return &TripRepository{trips: make(map[string]domain.Trip)}
}

func (r *TripRepository) Create(ctx context.Context, trip *domain.Trip) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.trips[trip.ID]; ok {
		return repository.ErrAlreadyExists
	}
	r.trips[trip.ID] = *trip
	return nil
}

func (r *TripRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.trips[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.trips, id)
	return nil
}

func (r *TripRepository) GetAll(ctx context.Context) ([]*domain.Trip, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]*domain.Trip, 0, len(r.trips))
	for _, t := range r.trips {
		copy := t
		result = append(result, &copy)
	}
	return result, nil
}

var _ repository.TripRepository = (*TripRepository)(nil)
