package domain

import (
	"fmt"
	"math"
)

// Money is an amount in minor currency units (cents).
type Money int64

// MoneyFromFloat converts a decimal amount to Money, rounding half away from zero.
func MoneyFromFloat(amount float64) Money {
	return Money(math.Round(amount * 100))
}

// Float returns the amount in major currency units.
func (m Money) Float() float64 {
	return float64(m) / 100
}

// String formats the amount with two decimals.
func (m Money) String() string {
	sign := ""
	v := int64(m)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

// Min returns the smaller of two amounts.
func Min(a, b Money) Money {
	if a < b {
		return a
	}
	return b
}

// Max returns the larger of two amounts.
func Max(a, b Money) Money {
	if a > b {
		return a
	}
	return b
}
