package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"busfare/internal/domain"
	"busfare/internal/fare"
	"busfare/internal/ledger"
	"busfare/internal/lock"
	"busfare/internal/repository"
)

// TripService handles check-in and check-out.
type TripService struct {
	ledger      *ledger.TripLedger
	calculator  *fare.Calculator
	engine      *SettlementEngine
	fares       *FareService
	accounts    repository.AccountRepository
	openTrips   repository.TripRepository
	discounts   DiscountOracle
	locker      lock.Locker
	notifier    *NotificationService
	receipts    *ReceiptService
	depositHold domain.Money
	logger      logrus.FieldLogger
	now         func() time.Time
}

// TripServiceDeps contains all dependencies needed by TripService.
type TripServiceDeps struct {
	Ledger      *ledger.TripLedger
	Calculator  *fare.Calculator
	Engine      *SettlementEngine
	Fares       *FareService
	Accounts    repository.AccountRepository
	OpenTrips   repository.TripRepository
	Discounts   DiscountOracle
	Locker      lock.Locker
	Notifier    *NotificationService
	Receipts    *ReceiptService
	DepositHold domain.Money
	Logger      logrus.FieldLogger
	Clock       func() time.Time // defaults to time.Now
}

// NewTripService creates a new TripService.
func NewTripService(deps TripServiceDeps) *TripService {
	discounts := deps.Discounts
	if discounts == nil {
		discounts = StaticDiscounts(nil)
	}
	locker := deps.Locker
	if locker == nil {
		locker = lock.NewKeyedMutex()
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	return &TripService{
		ledger:      deps.Ledger,
		calculator:  deps.Calculator,
		engine:      deps.Engine,
		fares:       deps.Fares,
		accounts:    deps.Accounts,
		openTrips:   deps.OpenTrips,
		discounts:   discounts,
		locker:      locker,
		notifier:    deps.Notifier,
		receipts:    deps.Receipts,
		depositHold: deps.DepositHold,
		logger:      deps.Logger,
		now:         clock,
	}
}

// StartTripRequest contains the parameters for checking in.
type StartTripRequest struct {
	AccountID  string
	Passengers int
}

// StartTrip checks an account in: eligibility, rate snapshot, deposit hold.
func (s *TripService) StartTrip(ctx context.Context, req StartTripRequest) (*domain.Trip, error) {
	if req.AccountID == "" {
		return nil, ErrInvalidAccountID
	}
	if req.Passengers < 1 {
		return nil, ErrInvalidPassengerCount
	}

	unlock, err := s.locker.Lock(ctx, req.AccountID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	account, err := s.accounts.GetByID(ctx, req.AccountID)
	if err != nil {
		return nil, err
	}

	if err := s.engine.CanStartTrip(ctx, account); err != nil {
		s.logger.WithField("account_id", account.ID).WithError(err).Warn("check-in denied")
		return nil, err
	}

	snap, err := s.fares.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("fare snapshot: %w", err)
	}

	discount, err := s.discounts.DiscountRate(ctx, account.ID)
	if err != nil {
		return nil, fmt.Errorf("discount lookup: %w", err)
	}
	rate := snap.Rate * (1 - clampDiscount(discount))

	trip, err := s.ledger.Open(ledger.OpenRequest{
		AccountID:      account.ID,
		PassengerCount: req.Passengers,
		Rate:           rate,
		RouteName:      snap.RouteName,
		LockedDeposit:  s.depositHold,
		StartTime:      s.now(),
	})
	if err != nil {
		return nil, err
	}

	if s.openTrips != nil {
		if err := s.openTrips.Create(ctx, &trip); err != nil {
			_, _ = s.ledger.Close(trip.ID)
			return nil, fmt.Errorf("persist open trip: %w", err)
		}
	}

	account.LockedBalance = s.depositHold
	account.UpdatedAt = s.now()
	if err := s.accounts.Update(ctx, account); err != nil {
		_, _ = s.ledger.Close(trip.ID)
		if s.openTrips != nil {
			_ = s.openTrips.Delete(ctx, trip.ID)
		}
		return nil, fmt.Errorf("hold deposit: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"account_id": account.ID,
		"trip_id":    trip.ID,
		"route":      trip.RouteName,
		"passengers": trip.PassengerCount,
		"rate":       trip.Rate,
	}).Info("trip started")

	if s.notifier != nil {
		s.notifier.NotifyTripStarted(ctx, trip)
	}

	return &trip, nil
}

// Eligibility answers whether an account may check in right now.
type Eligibility struct {
	Eligible bool
	Reason   error // why not, nil when eligible
	Discount float64
}

// Eligibility runs the check-in rules without opening a trip. Rule violations
// are reported in Reason; lookup failures are returned as errors.
func (s *TripService) Eligibility(ctx context.Context, accountID string) (*Eligibility, error) {
	if accountID == "" {
		return nil, ErrInvalidAccountID
	}

	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	discount, err := s.discounts.DiscountRate(ctx, account.ID)
	if err != nil {
		return nil, fmt.Errorf("discount lookup: %w", err)
	}
	result := &Eligibility{Eligible: true, Discount: clampDiscount(discount)}

	if _, open := s.ledger.ActiveFor(account.ID); open {
		result.Eligible, result.Reason = false, ledger.ErrAccountAlreadyTraveling
		return result, nil
	}

	if err := s.engine.CanStartTrip(ctx, account); err != nil {
		if !errors.Is(err, ErrPendingDebt) && !errors.Is(err, ErrInsufficientDeposit) {
			return nil, err
		}
		result.Eligible, result.Reason = false, err
	}

	return result, nil
}

// EndTripRequest contains the parameters for checking out.
type EndTripRequest struct {
	TripID string
}

// EndTripResponse contains the result of checking out.
type EndTripResponse struct {
	Trip    domain.Trip
	Charge  domain.Charge
	Outcome *domain.SettlementOutcome
	Receipt *Receipt
}

// EndTrip consumes the open trip, computes its fare and settles it. If the
// settlement cannot be stored and no money moved, the trip stays open so the
// check-out can be retried.
func (s *TripService) EndTrip(ctx context.Context, req EndTripRequest) (*EndTripResponse, error) {
	if req.TripID == "" {
		return nil, ErrInvalidTripID
	}

	// Peek only to find whose lock to take; Close below is authoritative.
	open, ok := s.ledger.Peek(req.TripID)
	if !ok {
		return nil, ledger.ErrTripNotFound
	}

	unlock, err := s.locker.Lock(ctx, open.AccountID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	account, err := s.accounts.GetByID(ctx, open.AccountID)
	if err != nil {
		return nil, fmt.Errorf("load account: %w", err)
	}

	trip, err := s.ledger.Close(req.TripID)
	if err != nil {
		return nil, err
	}
	endTime := s.now()

	log := s.logger.WithFields(logrus.Fields{
		"account_id": trip.AccountID,
		"trip_id":    trip.ID,
	})

	charge, err := s.calculator.ComputeCharge(trip.StartTime, endTime, trip.Rate, trip.PassengerCount)
	if err != nil {
		log.WithError(err).WithField("rate", trip.Rate).Error("fare configuration bug, trip not billed")
		account.LockedBalance = 0
		account.UpdatedAt = endTime
		if uerr := s.accounts.Update(ctx, account); uerr != nil {
			log.WithError(uerr).Error("deposit hold not released")
		}
		s.forgetOpenTrip(ctx, log, trip.ID)
		return nil, err
	}

	outcome, err := s.engine.Settle(ctx, account, trip, charge, endTime)
	if err != nil {
		var notPersisted *SettlementNotPersistedError
		if errors.As(err, &notPersisted) && notPersisted.Collected > 0 {
			log.WithField("collected", notPersisted.Collected.String()).Error("fare collected but settlement not recorded")
			s.forgetOpenTrip(ctx, log, trip.ID)
			return nil, err
		}
		s.ledger.Restore([]domain.Trip{trip})
		log.WithError(err).Warn("settlement not recorded, trip left open for retry")
		return nil, err
	}

	s.forgetOpenTrip(ctx, log, trip.ID)

	if s.notifier != nil {
		s.notifier.NotifyTripEnded(ctx, trip, outcome)
	}

	resp := &EndTripResponse{
		Trip:    trip,
		Charge:  charge,
		Outcome: outcome,
	}
	if s.receipts != nil {
		resp.Receipt = s.receipts.GenerateReceipt(trip, charge, outcome, endTime)
	}

	return resp, nil
}

// forgetOpenTrip drops the persisted copy of a settled trip.
func (s *TripService) forgetOpenTrip(ctx context.Context, log logrus.FieldLogger, tripID string) {
	if s.openTrips == nil {
		return
	}
	if err := s.openTrips.Delete(ctx, tripID); err != nil && !errors.Is(err, repository.ErrNotFound) {
		log.WithError(err).Error("closed trip still persisted as open")
	}
}

// TripStatus is a live view of an open trip.
type TripStatus struct {
	Trip           domain.Trip
	ElapsedSeconds int64
	CurrentCost    domain.Money
}

// GetTripStatus returns the running cost of an open trip without touching it.
func (s *TripService) GetTripStatus(ctx context.Context, tripID string) (*TripStatus, error) {
	if tripID == "" {
		return nil, ErrInvalidTripID
	}

	trip, ok := s.ledger.Peek(tripID)
	if !ok {
		return nil, ledger.ErrTripNotFound
	}

	return s.status(trip)
}

// ListActiveTrips returns the live view of every open trip.
func (s *TripService) ListActiveTrips(ctx context.Context) ([]*TripStatus, error) {
	trips := s.ledger.List()
	out := make([]*TripStatus, 0, len(trips))
	for _, trip := range trips {
		st, err := s.status(trip)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, nil
}

func (s *TripService) status(trip domain.Trip) (*TripStatus, error) {
	charge, err := s.calculator.ComputeCharge(trip.StartTime, s.now(), trip.Rate, trip.PassengerCount)
	if err != nil {
		return nil, err
	}
	return &TripStatus{
		Trip:           trip,
		ElapsedSeconds: charge.DurationSeconds,
		CurrentCost:    charge.RoundedAmount,
	}, nil
}

// RestoreOpenTrips reloads persisted open trips into the ledger after a restart.
func (s *TripService) RestoreOpenTrips(ctx context.Context) (int, error) {
	if s.openTrips == nil {
		return 0, nil
	}

	stored, err := s.openTrips.GetAll(ctx)
	if err != nil {
		return 0, err
	}

	trips := make([]domain.Trip, 0, len(stored))
	for _, t := range stored {
		trips = append(trips, *t)
	}

	restored := s.ledger.Restore(trips)
	s.logger.WithField("count", restored).Info("open trips restored")
	return restored, nil
}
