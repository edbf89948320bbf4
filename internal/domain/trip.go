package domain

import "time"

// Trip represents one check-in to check-out journey.
// All fields are captured at check-in and never change while the trip is open.
type Trip struct {
	ID             string
	AccountID      string
	StartTime      time.Time
	PassengerCount int
	Rate           float64 // Currency units per second, discount already applied
	RouteName      string
	LockedDeposit  Money
}

// Charge is the fare computed for a trip.
type Charge struct {
	DurationSeconds int64
	Passengers      int
	Rate            float64
	RawAmount       float64
	RoundedAmount   Money
}
