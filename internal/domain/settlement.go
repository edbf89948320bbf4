package domain

import "time"

// SettlementStatus represents the outcome of a settlement attempt.
type SettlementStatus string

const (
	SettlementStatusFull    SettlementStatus = "FULL"
	SettlementStatusPartial SettlementStatus = "PARTIAL"
	SettlementStatusFailed  SettlementStatus = "FAILED"
)

// RecordKind tells trip settlements apart from standalone debt payments.
type RecordKind string

const (
	RecordKindTrip        RecordKind = "TRIP"
	RecordKindDebtPayment RecordKind = "DEBT_PAYMENT"
)

// SettlementOutcome is the result returned to callers of a settlement.
type SettlementOutcome struct {
	ChargedAmount   Money
	CollectedAmount Money
	RemainingDebt   Money
	TransactionRef  *string
	Status          SettlementStatus
}

// SettlementRecord is an immutable history entry, written once per settlement.
type SettlementRecord struct {
	ID              string
	Kind            RecordKind
	AccountID       string
	TripID          string
	RouteName       string
	StartTime       time.Time
	EndTime         time.Time
	DurationSeconds int64
	Passengers      int
	Rate            float64
	RawAmount       float64
	ChargedAmount   Money
	TotalDue        Money
	CollectedAmount Money
	DebtBefore      Money
	DebtAfter       Money
	TransactionRef  *string
	Status          SettlementStatus
	CreatedAt       time.Time
}
