// Package payrail defines the boundary to the external wallet ledger that
// performs the actual value transfer.
package payrail

import (
	"context"
	"errors"

	"busfare/internal/domain"
)

var (
	// ErrPayRailUnavailable is returned when the rail does not answer in time.
	ErrPayRailUnavailable = errors.New("payment rail unavailable")

	// ErrTransferRejected is returned when the rail refuses a transfer.
	ErrTransferRejected = errors.New("transfer rejected")

	// ErrUnknownWallet is returned for a credential the rail does not know.
	ErrUnknownWallet = errors.New("unknown wallet")

	// ErrInvalidAmount is returned for a non-positive transfer amount.
	ErrInvalidAmount = errors.New("invalid transfer amount")
)

// Receipt is the rail's confirmation of an accepted transfer.
type Receipt struct {
	TransactionRef string
	Amount         domain.Money
}

// Rail is the payment rail consumed by settlement.
// Credentials are opaque signing material; the core never inspects them.
type Rail interface {
	BalanceOf(ctx context.Context, credential string) (domain.Money, error)
	Transfer(ctx context.Context, credential, recipient string, amount domain.Money) (Receipt, error)
}

// Funder is implemented by rails that can credit demo wallets.
type Funder interface {
	Fund(ctx context.Context, credential string, amount domain.Money) error
}
