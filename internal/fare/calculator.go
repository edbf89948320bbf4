// Package fare turns trip timing facts into a billable charge.
package fare

import (
	"errors"
	"math"
	"time"

	"busfare/internal/domain"
)

// ErrInvalidFareInput is returned for a non-positive rate or passenger count.
// It always points at a configuration or programming bug.
var ErrInvalidFareInput = errors.New("invalid fare input")

// Calculator computes time-based fares. It holds no mutable state.
type Calculator struct {
	minimumFare domain.Money
}

// NewCalculator creates a Calculator that never bills less than minimumFare.
func NewCalculator(minimumFare domain.Money) *Calculator {
	return &Calculator{minimumFare: minimumFare}
}

// MinimumFare returns the configured floor.
func (c *Calculator) MinimumFare() domain.Money {
	return c.minimumFare
}

// ComputeCharge bills every started second of the trip at rate per passenger.
// A trip is billed for at least one second, also when endTime precedes startTime.
func (c *Calculator) ComputeCharge(startTime, endTime time.Time, rate float64, passengerCount int) (domain.Charge, error) {
	if passengerCount <= 0 || !(rate > 0) || math.IsInf(rate, 0) {
		return domain.Charge{}, ErrInvalidFareInput
	}

	seconds := DurationSeconds(startTime, endTime)
	raw := float64(seconds) * rate * float64(passengerCount)

	rounded := domain.MoneyFromFloat(raw)
	if rounded < c.minimumFare {
		rounded = c.minimumFare
	}

	return domain.Charge{
		DurationSeconds: seconds,
		Passengers:      passengerCount,
		Rate:            rate,
		RawAmount:       raw,
		RoundedAmount:   rounded,
	}, nil
}

// DurationSeconds returns the elapsed whole seconds rounded up, never below 1.
func DurationSeconds(startTime, endTime time.Time) int64 {
	elapsed := endTime.Sub(startTime)
	if elapsed <= 0 {
		return 1
	}

	seconds := int64(elapsed / time.Second)
	if elapsed%time.Second != 0 {
		seconds++
	}
	return seconds
}
