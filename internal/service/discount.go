package service

import (
	"context"
	"math"
)

// DiscountOracle answers which discount a rider's credentials entitle them to.
// Rates are fractions in [0, 1).
type DiscountOracle interface {
	DiscountRate(ctx context.Context, accountID string) (float64, error)
}

// StaticDiscounts is a DiscountOracle backed by a fixed table.
type StaticDiscounts map[string]float64

// DiscountRate returns the configured discount, or zero for unknown accounts.
func (d StaticDiscounts) DiscountRate(ctx context.Context, accountID string) (float64, error) {
	return clampDiscount(d[accountID]), nil
}

// clampDiscount keeps a discount from zeroing or inverting the fare.
func clampDiscount(rate float64) float64 {
	if math.IsNaN(rate) || rate <= 0 {
		return 0
	}
	if rate >= 1 {
		return 0.99
	}
	return rate
}
