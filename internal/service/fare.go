package service

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"

	"busfare/internal/domain"
	"busfare/internal/repository"
)

// FareService manages routes and the active per-second rate.
type FareService struct {
	routes      repository.RouteRepository
	defaultRate float64
	notifier    *NotificationService
}

// NewFareService creates a new FareService. defaultRate applies until an
// operator saves fare settings.
func NewFareService(routes repository.RouteRepository, defaultRate float64, notifier *NotificationService) *FareService {
	return &FareService{
		routes:      routes,
		defaultRate: defaultRate,
		notifier:    notifier,
	}
}

// FareSnapshot is the rate and route label captured at check-in.
type FareSnapshot struct {
	Rate      float64
	RouteID   string
	RouteName string
}

// Settings returns the active fare settings, falling back to the default rate.
func (s *FareService) Settings(ctx context.Context) (*domain.FareSettings, error) {
	settings, err := s.routes.GetFareSettings(ctx)
	if err != nil {
		return nil, err
	}
	if settings == nil {
		settings = &domain.FareSettings{RatePerSecond: s.defaultRate}
	}
	return settings, nil
}

// Snapshot resolves the rate and route name a trip starting now would use.
func (s *FareService) Snapshot(ctx context.Context) (FareSnapshot, error) {
	settings, err := s.Settings(ctx)
	if err != nil {
		return FareSnapshot{}, err
	}

	snap := FareSnapshot{
		Rate:      settings.RatePerSecond,
		RouteName: domain.ManualRouteName,
	}

	if settings.CurrentRouteID == "" {
		return snap, nil
	}

	route, err := s.routes.GetByID(ctx, settings.CurrentRouteID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return snap, nil
		}
		return FareSnapshot{}, err
	}

	snap.RouteID = route.ID
	snap.RouteName = route.Name
	return snap, nil
}

// UpdateSettingsRequest contains the parameters for changing the active fare.
type UpdateSettingsRequest struct {
	RatePerSecond float64
	RouteID       string
}

// UpdateSettings changes the active rate and route. With a route and no
// explicit rate, the route's own rate is used. Open trips keep their snapshot.
func (s *FareService) UpdateSettings(ctx context.Context, req UpdateSettingsRequest) (*domain.FareSettings, error) {
	settings := &domain.FareSettings{
		RatePerSecond:  req.RatePerSecond,
		CurrentRouteID: req.RouteID,
	}

	routeName := domain.ManualRouteName
	if req.RouteID != "" {
		route, err := s.routes.GetByID(ctx, req.RouteID)
		if err != nil {
			return nil, err
		}
		routeName = route.Name
		if settings.RatePerSecond == 0 {
			settings.RatePerSecond = route.RatePerSecond
		}
	}

	if !validRate(settings.RatePerSecond) {
		return nil, ErrInvalidRate
	}

	if err := s.routes.SaveFareSettings(ctx, settings); err != nil {
		return nil, err
	}

	if s.notifier != nil {
		s.notifier.NotifyFareChanged(ctx, routeName, settings.RatePerSecond)
	}

	return settings, nil
}

// CreateRouteRequest contains the parameters for creating a route.
type CreateRouteRequest struct {
	Name          string
	RatePerSecond float64
}

// CreateRoute adds a new route.
func (s *FareService) CreateRoute(ctx context.Context, req CreateRouteRequest) (*domain.Route, error) {
	if req.Name == "" {
		return nil, ErrInvalidRouteName
	}
	if !validRate(req.RatePerSecond) {
		return nil, ErrInvalidRate
	}

	route := &domain.Route{
		ID:            uuid.New().String(),
		Name:          req.Name,
		RatePerSecond: req.RatePerSecond,
	}

	if err := s.routes.Create(ctx, route); err != nil {
		return nil, err
	}

	return route, nil
}

// ListRoutes returns all routes.
func (s *FareService) ListRoutes(ctx context.Context) ([]*domain.Route, error) {
	return s.routes.GetAll(ctx)
}

// DeleteRoute removes a route. If it was the active route the rate stays and
// the label falls back to the manual rate.
func (s *FareService) DeleteRoute(ctx context.Context, id string) error {
	if err := s.routes.Delete(ctx, id); err != nil {
		return err
	}

	settings, err := s.routes.GetFareSettings(ctx)
	if err != nil {
		return err
	}
	if settings != nil && settings.CurrentRouteID == id {
		settings.CurrentRouteID = ""
		if err := s.routes.SaveFareSettings(ctx, settings); err != nil {
			return fmt.Errorf("clear current route: %w", err)
		}
	}

	return nil
}

func validRate(rate float64) bool {
	return rate > 0 && !math.IsInf(rate, 0)
}
