package domain

import "time"

// Account represents a rider's payment identity.
type Account struct {
	ID            string
	Name          string
	Credential    string // Opaque wallet reference handed to the payment rail
	Debt          Money  // Unpaid amount carried across trips, never negative
	LockedBalance Money  // Deposit held while a trip is open
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
