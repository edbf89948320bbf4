package service

import (
	"context"

	"busfare/internal/domain"
	"busfare/internal/repository"
)

// dashboardHistoryLimit bounds the history shown on the dashboard.
const dashboardHistoryLimit = 100

// AdminService assembles the operator dashboard.
type AdminService struct {
	accounts repository.AccountRepository
	trips    *TripService
	fares    *FareService
	history  repository.HistoryRepository
	notifier *NotificationService
}

// NewAdminService creates a new AdminService.
func NewAdminService(
	accounts repository.AccountRepository,
	trips *TripService,
	fares *FareService,
	history repository.HistoryRepository,
	notifier *NotificationService,
) *AdminService {
	return &AdminService{
		accounts: accounts,
		trips:    trips,
		fares:    fares,
		history:  history,
		notifier: notifier,
	}
}

// Dashboard is the operator overview.
type Dashboard struct {
	Settings    *domain.FareSettings
	RouteName   string
	ActiveTrips []*TripStatus
	History     []*domain.SettlementRecord
	Routes      []*domain.Route
	Events      []Notification
}

// Dashboard returns fare settings, open trips with running costs, recent
// settlements and recent events.
func (s *AdminService) Dashboard(ctx context.Context) (*Dashboard, error) {
	settings, err := s.fares.Settings(ctx)
	if err != nil {
		return nil, err
	}

	snap, err := s.fares.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	active, err := s.trips.ListActiveTrips(ctx)
	if err != nil {
		return nil, err
	}

	history, err := s.history.List(ctx, dashboardHistoryLimit)
	if err != nil {
		return nil, err
	}

	routes, err := s.fares.ListRoutes(ctx)
	if err != nil {
		return nil, err
	}

	var events []Notification
	if s.notifier != nil {
		events = s.notifier.Recent()
	}

	return &Dashboard{
		Settings:    settings,
		RouteName:   snap.RouteName,
		ActiveTrips: active,
		History:     history,
		Routes:      routes,
		Events:      events,
	}, nil
}

// ListAccounts returns every rider account, newest first.
func (s *AdminService) ListAccounts(ctx context.Context) ([]*domain.Account, error) {
	return s.accounts.GetAll(ctx)
}
