package tests

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"busfare/internal/domain"
	"busfare/internal/fare"
	"busfare/internal/ledger"
	"busfare/internal/repository"
	"busfare/internal/service"
)

// ──────────────────────────────────────────────
// 3. TRIP LIFECYCLE
// ──────────────────────────────────────────────

func TestEndTrip_UnknownTrip_NoHistory(t *testing.T) {
	t.Parallel()

	h := NewHarness(t, HarnessOptions{})

	_, err := h.Trips.EndTrip(context.Background(), service.EndTripRequest{TripID: "no-such-trip"})
	assert.ErrorIs(t, err, ledger.ErrTripNotFound)
	assert.Zero(t, h.History.Count())
	assert.Zero(t, h.Rail.BalanceCallCount)
}

func TestEndTrip_SecondCheckoutRejected(t *testing.T) {
	t.Parallel()

	h := NewHarness(t, HarnessOptions{})
	account := h.AddAccount(t, "acct-1", 500, 0)

	trip, err := h.Trips.StartTrip(context.Background(), service.StartTripRequest{AccountID: account.ID, Passengers: 1})
	require.NoError(t, err)

	_, err = h.Trips.EndTrip(context.Background(), service.EndTripRequest{TripID: trip.ID})
	require.NoError(t, err)

	_, err = h.Trips.EndTrip(context.Background(), service.EndTripRequest{TripID: trip.ID})
	assert.ErrorIs(t, err, ledger.ErrTripNotFound)
	assert.Equal(t, 1, h.History.Count())
}

func TestStartTrip_OneOpenTripPerAccount(t *testing.T) {
	t.Parallel()

	h := NewHarness(t, HarnessOptions{})
	account := h.AddAccount(t, "acct-1", 500, 0)

	_, err := h.Trips.StartTrip(context.Background(), service.StartTripRequest{AccountID: account.ID, Passengers: 1})
	require.NoError(t, err)

	_, err = h.Trips.StartTrip(context.Background(), service.StartTripRequest{AccountID: account.ID, Passengers: 2})
	assert.ErrorIs(t, err, ledger.ErrAccountAlreadyTraveling)
	assert.Equal(t, 1, h.Ledger.Len())
}

func TestStartTrip_InvalidRequests(t *testing.T) {
	t.Parallel()

	h := NewHarness(t, HarnessOptions{})
	h.AddAccount(t, "acct-1", 500, 0)

	testCases := []struct {
		name    string
		req     service.StartTripRequest
		wantErr error
	}{
		{"missing account", service.StartTripRequest{Passengers: 1}, service.ErrInvalidAccountID},
		{"zero passengers", service.StartTripRequest{AccountID: "acct-1"}, service.ErrInvalidPassengerCount},
		{"negative passengers", service.StartTripRequest{AccountID: "acct-1", Passengers: -2}, service.ErrInvalidPassengerCount},
		{"unknown account", service.StartTripRequest{AccountID: "ghost", Passengers: 1}, repository.ErrNotFound},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			_, err := h.Trips.StartTrip(context.Background(), tc.req)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}

	assert.Zero(t, h.Ledger.Len())
}

func TestTrip_RateSnapshotSurvivesFareChange(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	h := NewHarness(t, HarnessOptions{})
	account := h.AddAccount(t, "acct-1", 10000, 0)

	trip, err := h.Trips.StartTrip(ctx, service.StartTripRequest{AccountID: account.ID, Passengers: 1})
	require.NoError(t, err)
	assert.Equal(t, domain.ManualRouteName, trip.RouteName)

	_, err = h.Fares.UpdateSettings(ctx, service.UpdateSettingsRequest{RatePerSecond: 0.05})
	require.NoError(t, err)

	h.Clock.Advance(100 * time.Second)
	resp, err := h.Trips.EndTrip(ctx, service.EndTripRequest{TripID: trip.ID})
	require.NoError(t, err)

	assert.InDelta(t, 0.01, resp.Charge.Rate, 1e-12)
	assert.Equal(t, domain.Money(100), resp.Charge.RoundedAmount)
}

func TestTrip_UsesCurrentRoute(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	h := NewHarness(t, HarnessOptions{})
	account := h.AddAccount(t, "acct-1", 10000, 0)

	route, err := h.Fares.CreateRoute(ctx, service.CreateRouteRequest{Name: "Line 7", RatePerSecond: 0.02})
	require.NoError(t, err)
	_, err = h.Fares.UpdateSettings(ctx, service.UpdateSettingsRequest{RouteID: route.ID})
	require.NoError(t, err)

	resp := h.Ride(t, account.ID, 1, 50*time.Second)

	assert.Equal(t, "Line 7", resp.Trip.RouteName)
	assert.Equal(t, domain.Money(100), resp.Charge.RoundedAmount)

	records, err := h.History.ListByAccount(ctx, account.ID, 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Line 7", records[0].RouteName)
	assert.Equal(t, int64(50), records[0].DurationSeconds)
}

func TestTrip_DiscountAppliedToRate(t *testing.T) {
	t.Parallel()

	h := NewHarness(t, HarnessOptions{Discounts: service.StaticDiscounts{"student": 0.5}})
	student := h.AddAccount(t, "student", 10000, 0)
	adult := h.AddAccount(t, "adult", 10000, 0)

	assert.Equal(t, domain.Money(50), h.Ride(t, student.ID, 1, 100*time.Second).Outcome.ChargedAmount)
	assert.Equal(t, domain.Money(100), h.Ride(t, adult.ID, 1, 100*time.Second).Outcome.ChargedAmount)
}

func TestTrip_MinimumFareForInstantTrip(t *testing.T) {
	t.Parallel()

	h := NewHarness(t, HarnessOptions{})
	account := h.AddAccount(t, "acct-1", 500, 0)

	resp := h.Ride(t, account.ID, 1, 0)

	assert.Equal(t, int64(1), resp.Charge.DurationSeconds)
	assert.GreaterOrEqual(t, int64(resp.Charge.RoundedAmount), int64(1))
}

func TestTrip_StatusShowsRunningCost(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	h := NewHarness(t, HarnessOptions{})
	account := h.AddAccount(t, "acct-1", 500, 0)

	trip, err := h.Trips.StartTrip(ctx, service.StartTripRequest{AccountID: account.ID, Passengers: 3})
	require.NoError(t, err)
	h.Clock.Advance(30 * time.Second)

	status, err := h.Trips.GetTripStatus(ctx, trip.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(30), status.ElapsedSeconds)
	assert.Equal(t, domain.Money(90), status.CurrentCost)

	// Peeking must not consume the trip.
	assert.Equal(t, 1, h.Ledger.Len())

	active, err := h.Trips.ListActiveTrips(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, trip.ID, active[0].Trip.ID)

	_, err = h.Trips.GetTripStatus(ctx, "missing")
	assert.ErrorIs(t, err, ledger.ErrTripNotFound)
}

func TestTrip_OpenTripPersistedAndRestored(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	opts := HarnessOptions{}
	h := NewHarness(t, opts)
	account := h.AddAccount(t, "acct-1", 500, 0)

	trip, err := h.Trips.StartTrip(ctx, service.StartTripRequest{AccountID: account.ID, Passengers: 1})
	require.NoError(t, err)

	stored, err := h.OpenTrips.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, stored, 1)

	h.Restart(t, opts)
	_, err = h.Trips.EndTrip(ctx, service.EndTripRequest{TripID: trip.ID})
	require.ErrorIs(t, err, ledger.ErrTripNotFound, "fresh ledger knows nothing yet")

	restored, err := h.Trips.RestoreOpenTrips(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, restored)

	h.Clock.Advance(40 * time.Second)
	resp, err := h.Trips.EndTrip(ctx, service.EndTripRequest{TripID: trip.ID})
	require.NoError(t, err)
	assert.Equal(t, domain.Money(40), resp.Outcome.CollectedAmount)

	stored, err = h.OpenTrips.GetAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestTrip_FailedHoldRollsBackLedger(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	h := NewHarness(t, HarnessOptions{})
	account := h.AddAccount(t, "acct-1", 500, 0)
	h.Accounts.SetUpdateError(assert.AnError)

	_, err := h.Trips.StartTrip(ctx, service.StartTripRequest{AccountID: account.ID, Passengers: 1})
	require.ErrorIs(t, err, assert.AnError)

	assert.Zero(t, h.Ledger.Len())
	stored, err := h.OpenTrips.GetAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestTrip_UnbillableTripReleasesHold(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	h := NewHarness(t, HarnessOptions{})
	account := h.AddAccount(t, "acct-1", 500, 0)

	// A zero rate can only come from a corrupted open-trip row.
	account.LockedBalance = 200
	require.NoError(t, h.Accounts.Update(ctx, account))
	require.NoError(t, h.OpenTrips.Create(ctx, &domain.Trip{
		ID:             "trip-bad",
		AccountID:      account.ID,
		StartTime:      h.Clock.Now(),
		PassengerCount: 1,
		LockedDeposit:  200,
	}))

	h.Restart(t, HarnessOptions{})
	_, err := h.Trips.RestoreOpenTrips(ctx)
	require.NoError(t, err)

	_, err = h.Trips.EndTrip(ctx, service.EndTripRequest{TripID: "trip-bad"})
	require.ErrorIs(t, err, fare.ErrInvalidFareInput)

	assert.Zero(t, h.Account(t, account.ID).LockedBalance)
	assert.Zero(t, h.Ledger.Len())
	assert.Zero(t, h.Rail.TransferCallCount)
	assert.Zero(t, h.History.Count())
	stored, err := h.OpenTrips.GetAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestTrip_UnbillableTripLogsFailedHoldRelease(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	h := NewHarness(t, HarnessOptions{})
	account := h.AddAccount(t, "acct-1", 500, 0)
	require.NoError(t, h.OpenTrips.Create(ctx, &domain.Trip{
		ID:             "trip-bad",
		AccountID:      account.ID,
		StartTime:      h.Clock.Now(),
		PassengerCount: 1,
	}))

	h.Restart(t, HarnessOptions{})
	_, err := h.Trips.RestoreOpenTrips(ctx)
	require.NoError(t, err)

	h.Accounts.SetUpdateError(assert.AnError)
	_, err = h.Trips.EndTrip(ctx, service.EndTripRequest{TripID: "trip-bad"})
	require.ErrorIs(t, err, fare.ErrInvalidFareInput)

	var logged bool
	for _, entry := range h.Logs.AllEntries() {
		if entry.Message == "deposit hold not released" {
			logged = true
			assert.Equal(t, logrus.ErrorLevel, entry.Level)
			assert.Equal(t, assert.AnError, entry.Data[logrus.ErrorKey])
		}
	}
	assert.True(t, logged, "failed hold release must be logged")
}

func TestTrip_ReceiptAndNotifications(t *testing.T) {
	t.Parallel()

	h := NewHarness(t, HarnessOptions{})
	account := h.AddAccount(t, "acct-1", 50, 0)

	resp := h.Ride(t, account.ID, 2, 50*time.Second)

	require.NotNil(t, resp.Receipt)
	assert.Equal(t, resp.Trip.ID, resp.Receipt.TripID)
	assert.Equal(t, domain.Money(100), resp.Receipt.Fare)
	assert.Equal(t, domain.Money(49), resp.Receipt.Paid)
	assert.Equal(t, domain.Money(51), resp.Receipt.RemainingDebt)
	assert.Zero(t, resp.Receipt.PreviousDebt)

	text := service.NewReceiptService().FormatReceipt(resp.Receipt)
	assert.True(t, strings.Contains(text, "BUS TICKET"))
	assert.True(t, strings.Contains(text, "Debt:        0.51"))

	events := h.Notifier.Recent()
	require.Len(t, events, 3)
	assert.Equal(t, service.NotificationDebtRecorded, events[0].Type)
	assert.Equal(t, service.NotificationTripEnded, events[1].Type)
	assert.Equal(t, service.NotificationTripStarted, events[2].Type)
}
