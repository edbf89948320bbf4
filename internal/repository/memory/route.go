package memory

import (
	"context"
	"sort"
	"sync"

	"busfare/internal/domain"
	"busfare/internal/repository"
)

// RouteRepository keeps routes and fare settings in memory.
type RouteRepository struct {
	mu       sync.RWMutex
	routes   map[string]domain.Route
	settings *domain.FareSettings
}

// NewRouteRepository creates an empty route store.
func NewRouteRepository() *RouteRepository {
	return &RouteRepository{routes: make(map[string]domain.Route)}
}

func (r *RouteRepository) Create(ctx context.Context, route *domain.Route) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.routes[route.ID]; ok {
		return repository.ErrAlreadyExists
	}
	r.routes[route.ID] = *route
	return nil
}

func (r *RouteRepository) GetByID(ctx context.Context, id string) (*domain.Route, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	route, ok := r.routes[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &route, nil
}

func (r *RouteRepository) GetAll(ctx context.Context) ([]*domain.Route, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]*domain.Route, 0, len(r.routes))
	for _, route := range r.routes {
		copy := route
		result = append(result, &copy)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (r *RouteRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.routes[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.routes, id)
	return nil
}

func (r *RouteRepository) GetFareSettings(ctx context.Context) (*domain.FareSettings, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.settings == nil {
		return nil, nil
	}
	copy := *r.settings
	return &copy, nil
}

func (r *RouteRepository) SaveFareSettings(ctx context.Context, settings *domain.FareSettings) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copy := *settings
	r.settings = &copy
	return nil
}

var _ repository.RouteRepository = (*RouteRepository)(nil)
