package payrail

import (
	"context"
	"errors"
	"fmt"
	"time"

	"busfare/internal/domain"
)

// timeoutRail bounds every call to the wrapped rail.
type timeoutRail struct {
	next    Rail
	timeout time.Duration
}

// WithTimeout wraps a rail so each call gives up after d.
// A call that runs out of time fails with ErrPayRailUnavailable.
func WithTimeout(next Rail, d time.Duration) Rail {
	if d <= 0 {
		return next
	}
	return &timeoutRail{next: next, timeout: d}
}

func (r *timeoutRail) BalanceOf(ctx context.Context, credential string) (domain.Money, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	type result struct {
		balance domain.Money
		err     error
	}
	done := make(chan result, 1)
	go func() {
		b, err := r.next.BalanceOf(ctx, credential)
		done <- result{b, err}
	}()

	select {
	case res := <-done:
		return res.balance, mapDeadline(res.err)
	case <-ctx.Done():
		return 0, fmt.Errorf("balance query: %w", ErrPayRailUnavailable)
	}
}

func (r *timeoutRail) Transfer(ctx context.Context, credential, recipient string, amount domain.Money) (Receipt, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	type result struct {
		receipt Receipt
		err     error
	}
	done := make(chan result, 1)
	go func() {
		rc, err := r.next.Transfer(ctx, credential, recipient, amount)
		done <- result{rc, err}
	}()

	select {
	case res := <-done:
		return res.receipt, mapDeadline(res.err)
	case <-ctx.Done():
		return Receipt{}, fmt.Errorf("transfer: %w", ErrPayRailUnavailable)
	}
}

// timeoutFunder bounds every top-up.
type timeoutFunder struct {
	next    Funder
	timeout time.Duration
}

// FunderWithTimeout gives Fund the same deadline WithTimeout gives rail calls.
func FunderWithTimeout(next Funder, d time.Duration) Funder {
	if d <= 0 {
		return next
	}
	return &timeoutFunder{next: next, timeout: d}
}

func (f *timeoutFunder) Fund(ctx context.Context, credential string, amount domain.Money) error {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- f.next.Fund(ctx, credential, amount)
	}()

	select {
	case err := <-done:
		return mapDeadline(err)
	case <-ctx.Done():
		return fmt.Errorf("fund: %w", ErrPayRailUnavailable)
	}
}

func mapDeadline(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%v: %w", err, ErrPayRailUnavailable)
	}
	return err
}
