package payrail

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"busfare/internal/domain"
)

// Wallets is an in-process rail holding balances in memory.
// It backs local runs and tests where no external ledger is reachable.
type Wallets struct {
	mu       sync.Mutex
	balances map[string]domain.Money
}

// NewWallets creates an empty in-memory rail.
func NewWallets() *Wallets {
	return &Wallets{balances: make(map[string]domain.Money)}
}

// Fund credits a wallet, creating it if needed.
func (w *Wallets) Fund(ctx context.Context, credential string, amount domain.Money) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.balances[credential] += amount
	return nil
}

// BalanceOf returns the wallet balance; unknown wallets hold nothing.
func (w *Wallets) BalanceOf(ctx context.Context, credential string) (domain.Money, error) {
	if err := ctx.Err(); err != nil {
		return 0, ErrPayRailUnavailable
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	return w.balances[credential], nil
}

// Transfer moves amount from credential's wallet to recipient.
func (w *Wallets) Transfer(ctx context.Context, credential, recipient string, amount domain.Money) (Receipt, error) {
	if err := ctx.Err(); err != nil {
		return Receipt{}, ErrPayRailUnavailable
	}
	if amount <= 0 {
		return Receipt{}, ErrInvalidAmount
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.balances[credential] < amount {
		return Receipt{}, ErrTransferRejected
	}

	w.balances[credential] -= amount
	w.balances[recipient] += amount

	return Receipt{
		TransactionRef: uuid.New().String(),
		Amount:         amount,
	}, nil
}
