package tests

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"busfare/internal/domain"
	"busfare/internal/ledger"
	"busfare/internal/service"
)

// ──────────────────────────────────────────────
// 6. CONCURRENCY
// ──────────────────────────────────────────────

func TestConcurrentStartTrip_OnlyOneSucceeds(t *testing.T) {
	t.Parallel()

	h := NewHarness(t, HarnessOptions{})
	account := h.AddAccount(t, "acct-1", 500, 0)

	const attempts = 20
	var (
		wg        sync.WaitGroup
		successes int32
		traveling int32
	)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.Trips.StartTrip(context.Background(), service.StartTripRequest{AccountID: account.ID, Passengers: 1})
			switch {
			case err == nil:
				atomic.AddInt32(&successes, 1)
			case errors.Is(err, ledger.ErrAccountAlreadyTraveling):
				atomic.AddInt32(&traveling, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), successes)
	assert.Equal(t, int32(attempts-1), traveling)
	assert.Equal(t, 1, h.Ledger.Len())
}

func TestConcurrentEndTrip_SettlesOnce(t *testing.T) {
	t.Parallel()

	h := NewHarness(t, HarnessOptions{})
	account := h.AddAccount(t, "acct-1", 500, 0)

	trip, err := h.Trips.StartTrip(context.Background(), service.StartTripRequest{AccountID: account.ID, Passengers: 1})
	require.NoError(t, err)
	h.Clock.Advance(100 * time.Second)

	const attempts = 20
	var (
		wg        sync.WaitGroup
		successes int32
		notFound  int32
	)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.Trips.EndTrip(context.Background(), service.EndTripRequest{TripID: trip.ID})
			switch {
			case err == nil:
				atomic.AddInt32(&successes, 1)
			case errors.Is(err, ledger.ErrTripNotFound):
				atomic.AddInt32(&notFound, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), successes)
	assert.Equal(t, int32(attempts-1), notFound)
	assert.Equal(t, 1, h.History.Count())
	assert.Equal(t, domain.Money(400), h.Rail.Balance(account.Credential))
}

func TestConcurrentPayDebt_NeverOvercollects(t *testing.T) {
	t.Parallel()

	h := NewHarness(t, HarnessOptions{})
	account := h.AddAccount(t, "acct-1", 1000, 100)

	const attempts = 10
	var (
		wg        sync.WaitGroup
		collected int64
	)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			outcome, err := h.AccountsSvc.PayDebt(context.Background(), account.ID)
			if err == nil {
				atomic.AddInt64(&collected, int64(outcome.CollectedAmount))
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(100), collected)
	assert.Zero(t, h.Account(t, account.ID).Debt)
	assert.Equal(t, domain.Money(900), h.Rail.Balance(account.Credential))
	assert.Equal(t, 1, h.History.Count())
}

func TestConcurrentRiders_Independent(t *testing.T) {
	t.Parallel()

	h := NewHarness(t, HarnessOptions{})
	ids := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
	for _, id := range ids {
		h.AddAccount(t, id, 500, 0)
	}

	var wg sync.WaitGroup
	errs := make(chan error, len(ids))
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			trip, err := h.Trips.StartTrip(context.Background(), service.StartTripRequest{AccountID: id, Passengers: 1})
			if err != nil {
				errs <- err
				return
			}
			if _, err := h.Trips.EndTrip(context.Background(), service.EndTripRequest{TripID: trip.ID}); err != nil {
				errs <- err
			}
		}(id)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("unexpected error: %v", err)
	}
	assert.Equal(t, len(ids), h.History.Count())
	assert.Zero(t, h.Ledger.Len())
}
