package service

import (
	"errors"

	"busfare/internal/domain"
)

var (
	// ErrPendingDebt is returned at check-in while the rider still owes money.
	ErrPendingDebt = errors.New("pending debt, pay it before travelling")

	// ErrInsufficientDeposit is returned at check-in when the wallet cannot cover the minimum deposit.
	ErrInsufficientDeposit = errors.New("insufficient balance for the required deposit")

	// ErrNoDebt is returned when paying down debt that does not exist.
	ErrNoDebt = errors.New("no debt to pay")

	// ErrInsufficientFunds is returned when nothing can be collected from the wallet.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrPaymentFailed is returned when the payment rail did not confirm a debt payment.
	ErrPaymentFailed = errors.New("payment failed")

	// ErrInvalidAccountID is returned when account ID is empty.
	ErrInvalidAccountID = errors.New("invalid account id")

	// ErrInvalidTripID is returned when trip ID is empty.
	ErrInvalidTripID = errors.New("invalid trip id")

	// ErrInvalidPassengerCount is returned for a passenger count below one.
	ErrInvalidPassengerCount = errors.New("invalid passenger count")

	// ErrInvalidAccountName is returned when the account name is empty.
	ErrInvalidAccountName = errors.New("invalid account name")

	// ErrInvalidCredential is returned when the wallet credential is empty.
	ErrInvalidCredential = errors.New("invalid wallet credential")

	// ErrInvalidRate is returned for a non-positive fare rate.
	ErrInvalidRate = errors.New("invalid fare rate")

	// ErrInvalidRouteName is returned when the route name is empty.
	ErrInvalidRouteName = errors.New("invalid route name")

	// ErrInvalidAmount is returned for a non-positive top-up amount.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrTopUpUnsupported is returned when the configured rail cannot mint funds.
	ErrTopUpUnsupported = errors.New("wallet top-up not supported by payment rail")
)

// SettlementNotPersistedError is returned when a settlement could not be
// stored. Collected is what the payment rail had already moved for it.
type SettlementNotPersistedError struct {
	Collected domain.Money
	Err       error
}

func (e *SettlementNotPersistedError) Error() string {
	return "settlement not persisted: " + e.Err.Error()
}

func (e *SettlementNotPersistedError) Unwrap() error {
	return e.Err
}
