package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/sirupsen/logrus"

	"busfare/internal/domain"
	"busfare/internal/payrail"
	"busfare/internal/repository"
)

// SettlementConfig holds the money policy knobs.
type SettlementConfig struct {
	// Recipient is the operator wallet receiving fares.
	Recipient string
	// Epsilon is left in the wallet on partial collection.
	Epsilon domain.Money
	// DebtTolerance is the largest debt still allowed to check in.
	DebtTolerance domain.Money
	// MinimumDeposit is the available balance required to check in. Zero disables it.
	MinimumDeposit domain.Money
}

// SettlementEngine reconciles charges against wallet balances and carries
// shortfalls as debt. Debt only ever decreases by confirmed transfers.
type SettlementEngine struct {
	rail   payrail.Rail
	store  repository.SettlementStore
	cfg    SettlementConfig
	logger logrus.FieldLogger
	now    func() time.Time
}

// NewSettlementEngine creates a new SettlementEngine.
func NewSettlementEngine(
	rail payrail.Rail,
	store repository.SettlementStore,
	cfg SettlementConfig,
	logger logrus.FieldLogger,
) *SettlementEngine {
	return &SettlementEngine{
		rail:   rail,
		store:  store,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

// CanStartTrip checks whether the account may check in.
func (e *SettlementEngine) CanStartTrip(ctx context.Context, account *domain.Account) error {
	if account.Debt > e.cfg.DebtTolerance {
		return fmt.Errorf("%w: %s owed", ErrPendingDebt, account.Debt)
	}

	if e.cfg.MinimumDeposit <= 0 {
		return nil
	}

	balance, err := e.rail.BalanceOf(ctx, account.Credential)
	if err != nil {
		return fmt.Errorf("balance query: %w", err)
	}

	if available := balance - account.LockedBalance; available < e.cfg.MinimumDeposit {
		return fmt.Errorf("%w: %s available, %s required", ErrInsufficientDeposit, available, e.cfg.MinimumDeposit)
	}

	return nil
}

// Settle collects the charge plus any earlier debt for a closed trip.
// The account's deposit hold is released, the account saved and exactly one
// history record appended, whatever the outcome. A store failure is returned
// as *SettlementNotPersistedError.
func (e *SettlementEngine) Settle(ctx context.Context, account *domain.Account, trip domain.Trip, charge domain.Charge, endTime time.Time) (*domain.SettlementOutcome, error) {
	defer newrelic.FromContext(ctx).StartSegment("settlement/settle").End()

	// The hold guaranteed this trip's fare; release it before reading the balance.
	account.LockedBalance = 0

	debtBefore := account.Debt
	totalDue := charge.RoundedAmount + debtBefore

	var (
		collected domain.Money
		txRef     *string
		status    domain.SettlementStatus
	)

	log := e.logger.WithFields(logrus.Fields{
		"account_id": account.ID,
		"trip_id":    trip.ID,
		"total_due":  totalDue.String(),
	})

	balance, err := e.rail.BalanceOf(ctx, account.Credential)
	if err != nil {
		log.WithError(err).Error("balance query failed, fare carried as debt")
		status = domain.SettlementStatusFailed
	} else {
		available := balance - account.LockedBalance

		toCollect := totalDue
		status = domain.SettlementStatusFull
		if available < totalDue {
			toCollect = domain.Max(0, available-e.cfg.Epsilon)
			status = domain.SettlementStatusPartial
		}

		if toCollect > 0 {
			receipt, err := e.rail.Transfer(ctx, account.Credential, e.cfg.Recipient, toCollect)
			if err != nil {
				log.WithError(err).WithField("amount", toCollect.String()).Error("transfer failed, fare carried as debt")
				status = domain.SettlementStatusFailed
			} else {
				collected = toCollect
				ref := receipt.TransactionRef
				txRef = &ref
			}
		}
	}

	account.Debt = totalDue - collected
	account.UpdatedAt = e.now()

	record := &domain.SettlementRecord{
		ID:              uuid.New().String(),
		Kind:            domain.RecordKindTrip,
		AccountID:       account.ID,
		TripID:          trip.ID,
		RouteName:       trip.RouteName,
		StartTime:       trip.StartTime,
		EndTime:         endTime,
		DurationSeconds: charge.DurationSeconds,
		Passengers:      charge.Passengers,
		Rate:            charge.Rate,
		RawAmount:       charge.RawAmount,
		ChargedAmount:   charge.RoundedAmount,
		TotalDue:        totalDue,
		CollectedAmount: collected,
		DebtBefore:      debtBefore,
		DebtAfter:       account.Debt,
		TransactionRef:  txRef,
		Status:          status,
		CreatedAt:       account.UpdatedAt,
	}

	if err := e.store.Commit(ctx, account, record); err != nil {
		log.WithError(err).WithField("collected", collected.String()).Error("settlement not persisted")
		return nil, &SettlementNotPersistedError{Collected: collected, Err: err}
	}

	log.WithFields(logrus.Fields{
		"status":    status,
		"collected": collected.String(),
		"debt":      account.Debt.String(),
	}).Info("trip settled")

	return &domain.SettlementOutcome{
		ChargedAmount:   charge.RoundedAmount,
		CollectedAmount: collected,
		RemainingDebt:   account.Debt,
		TransactionRef:  txRef,
		Status:          status,
	}, nil
}

// PayDownDebt collects as much outstanding debt as the wallet allows.
// A failed transfer leaves the account untouched.
func (e *SettlementEngine) PayDownDebt(ctx context.Context, account *domain.Account) (*domain.SettlementOutcome, error) {
	defer newrelic.FromContext(ctx).StartSegment("settlement/pay_down_debt").End()

	if account.Debt <= 0 {
		return nil, ErrNoDebt
	}

	balance, err := e.rail.BalanceOf(ctx, account.Credential)
	if err != nil {
		return nil, fmt.Errorf("balance query: %w", err)
	}

	collectible := domain.Max(0, balance-account.LockedBalance-e.cfg.Epsilon)
	if collectible <= 0 {
		return nil, ErrInsufficientFunds
	}

	toPay := domain.Min(collectible, account.Debt)

	receipt, err := e.rail.Transfer(ctx, account.Credential, e.cfg.Recipient, toPay)
	if err != nil {
		e.logger.WithError(err).WithField("account_id", account.ID).Warn("debt payment transfer failed")
		return nil, fmt.Errorf("%w: %v", ErrPaymentFailed, err)
	}

	debtBefore := account.Debt
	account.Debt -= toPay
	account.UpdatedAt = e.now()

	status := domain.SettlementStatusFull
	if account.Debt > 0 {
		status = domain.SettlementStatusPartial
	}

	ref := receipt.TransactionRef
	record := &domain.SettlementRecord{
		ID:              uuid.New().String(),
		Kind:            domain.RecordKindDebtPayment,
		AccountID:       account.ID,
		TotalDue:        debtBefore,
		CollectedAmount: toPay,
		DebtBefore:      debtBefore,
		DebtAfter:       account.Debt,
		TransactionRef:  &ref,
		Status:          status,
		CreatedAt:       account.UpdatedAt,
	}

	if err := e.store.Commit(ctx, account, record); err != nil {
		e.logger.WithError(err).WithFields(logrus.Fields{
			"account_id": account.ID,
			"paid":       toPay.String(),
		}).Error("debt payment not persisted")
		return nil, err
	}

	e.logger.WithFields(logrus.Fields{
		"account_id": account.ID,
		"paid":       toPay.String(),
		"debt":       account.Debt.String(),
	}).Info("debt paid down")

	return &domain.SettlementOutcome{
		CollectedAmount: toPay,
		RemainingDebt:   account.Debt,
		TransactionRef:  &ref,
		Status:          status,
	}, nil
}
