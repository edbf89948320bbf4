package service

import (
	"fmt"
	"strings"
	"time"

	"busfare/internal/domain"
)

// Receipt is the rider-facing ticket for a settled trip.
type Receipt struct {
	TripID          string
	RouteName       string
	StartedAt       time.Time
	EndedAt         time.Time
	DurationSeconds int64
	Passengers      int
	Rate            float64
	Fare            domain.Money
	PreviousDebt    domain.Money
	Paid            domain.Money
	RemainingDebt   domain.Money
	TransactionRef  string
	Status          domain.SettlementStatus
}

// ReceiptService builds receipts for checked-out trips.
type ReceiptService struct{}

// NewReceiptService creates a new ReceiptService.
func NewReceiptService() *ReceiptService {
	return &ReceiptService{}
}

// GenerateReceipt assembles a receipt from the trip, its charge and the outcome.
func (s *ReceiptService) GenerateReceipt(trip domain.Trip, charge domain.Charge, outcome *domain.SettlementOutcome, endTime time.Time) *Receipt {
	receipt := &Receipt{
		TripID:          trip.ID,
		RouteName:       trip.RouteName,
		StartedAt:       trip.StartTime,
		EndedAt:         endTime,
		DurationSeconds: charge.DurationSeconds,
		Passengers:      charge.Passengers,
		Rate:            charge.Rate,
		Fare:            charge.RoundedAmount,
		PreviousDebt:    outcome.CollectedAmount + outcome.RemainingDebt - charge.RoundedAmount,
		Paid:            outcome.CollectedAmount,
		RemainingDebt:   outcome.RemainingDebt,
		Status:          outcome.Status,
	}
	if outcome.TransactionRef != nil {
		receipt.TransactionRef = *outcome.TransactionRef
	}
	return receipt
}

// FormatReceipt formats the receipt as plain text (for print or email).
func (s *ReceiptService) FormatReceipt(r *Receipt) string {
	txRef := r.TransactionRef
	if txRef == "" {
		txRef = "N/A"
	}

	var b strings.Builder
	b.WriteString("=====================================\n")
	b.WriteString("            BUS TICKET\n")
	b.WriteString("=====================================\n")
	fmt.Fprintf(&b, "Trip ID:     %s\n", r.TripID)
	fmt.Fprintf(&b, "Route:       %s\n", r.RouteName)
	fmt.Fprintf(&b, "Boarded:     %s\n", r.StartedAt.Format("15:04:05"))
	fmt.Fprintf(&b, "Alighted:    %s\n", r.EndedAt.Format("15:04:05"))
	fmt.Fprintf(&b, "Duration:    %d s\n", r.DurationSeconds)
	fmt.Fprintf(&b, "Passengers:  %d\n", r.Passengers)
	b.WriteString("-------------------------------------\n")
	fmt.Fprintf(&b, "Fare:        %s\n", r.Fare)
	if r.PreviousDebt > 0 {
		fmt.Fprintf(&b, "Prior debt:  %s\n", r.PreviousDebt)
	}
	fmt.Fprintf(&b, "Paid:        %s\n", r.Paid)
	fmt.Fprintf(&b, "Debt:        %s\n", r.RemainingDebt)
	fmt.Fprintf(&b, "Status:      %s\n", r.Status)
	fmt.Fprintf(&b, "Tx:          %s\n", txRef)
	b.WriteString("=====================================\n")
	return b.String()
}
