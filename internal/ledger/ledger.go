// Package ledger keeps the registry of open trips.
package ledger

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"busfare/internal/domain"
)

var (
	// ErrAccountAlreadyTraveling is returned when the account already has an open trip.
	ErrAccountAlreadyTraveling = errors.New("account already traveling")

	// ErrTripNotFound is returned for an unknown or already closed trip. Not retryable.
	ErrTripNotFound = errors.New("trip not found")
)

// OpenRequest carries the check-in snapshot for a new trip.
type OpenRequest struct {
	AccountID      string
	PassengerCount int
	Rate           float64
	RouteName      string
	LockedDeposit  domain.Money
	StartTime      time.Time
}

// TripLedger is an in-memory registry of open trips, one per account.
type TripLedger struct {
	mu        sync.RWMutex
	trips     map[string]domain.Trip
	byAccount map[string]string
	newID     func() string
}

// New creates an empty TripLedger.
func New() *TripLedger {
	return &TripLedger{
		trips:     make(map[string]domain.Trip),
		byAccount: make(map[string]string),
		newID:     func() string { return uuid.New().String() },
	}
}

// Open registers a new trip and returns it with a fresh id.
func (l *TripLedger) Open(req OpenRequest) (domain.Trip, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.byAccount[req.AccountID]; ok {
		return domain.Trip{}, ErrAccountAlreadyTraveling
	}

	id := l.newID()
	for _, taken := l.trips[id]; taken; _, taken = l.trips[id] {
		id = l.newID()
	}

	trip := domain.Trip{
		ID:             id,
		AccountID:      req.AccountID,
		StartTime:      req.StartTime,
		PassengerCount: req.PassengerCount,
		Rate:           req.Rate,
		RouteName:      req.RouteName,
		LockedDeposit:  req.LockedDeposit,
	}

	l.trips[id] = trip
	l.byAccount[req.AccountID] = id

	return trip, nil
}

// Close removes the trip and returns it. Only the first call for an id succeeds.
func (l *TripLedger) Close(tripID string) (domain.Trip, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	trip, ok := l.trips[tripID]
	if !ok {
		return domain.Trip{}, ErrTripNotFound
	}

	delete(l.trips, tripID)
	delete(l.byAccount, trip.AccountID)

	return trip, nil
}

// Peek returns an open trip without consuming it. For display only.
func (l *TripLedger) Peek(tripID string) (domain.Trip, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	trip, ok := l.trips[tripID]
	return trip, ok
}

// ActiveFor returns the open trip of an account, if any.
func (l *TripLedger) ActiveFor(accountID string) (domain.Trip, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	id, ok := l.byAccount[accountID]
	if !ok {
		return domain.Trip{}, false
	}
	return l.trips[id], true
}

// List returns a snapshot of all open trips.
func (l *TripLedger) List() []domain.Trip {
	l.mu.RLock()
	defer l.mu.RUnlock()

	trips := make([]domain.Trip, 0, len(l.trips))
	for _, t := range l.trips {
		trips = append(trips, t)
	}
	return trips
}

// Restore reloads persisted open trips, skipping any that would break the
// one-trip-per-account rule. It returns how many trips were restored.
func (l *TripLedger) Restore(trips []domain.Trip) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	restored := 0
	for _, t := range trips {
		if _, ok := l.trips[t.ID]; ok {
			continue
		}
		if _, ok := l.byAccount[t.AccountID]; ok {
			continue
		}
		l.trips[t.ID] = t
		l.byAccount[t.AccountID] = t.ID
		restored++
	}
	return restored
}

// Len returns the number of open trips.
func (l *TripLedger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.trips)
}
