package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"busfare/internal/domain"
)

// NotificationType represents the type of notification.
type NotificationType string

const (
	NotificationTripStarted   NotificationType = "TRIP_STARTED"
	NotificationTripEnded     NotificationType = "TRIP_ENDED"
	NotificationDebtRecorded  NotificationType = "DEBT_RECORDED"
	NotificationPaymentFailed NotificationType = "PAYMENT_FAILED"
	NotificationDebtPaid      NotificationType = "DEBT_PAID"
	NotificationFareChanged   NotificationType = "FARE_CHANGED"
)

// feedSize is how many recent notifications the admin dashboard shows.
const feedSize = 50

// Notification represents a notification to be sent.
type Notification struct {
	Type        NotificationType
	RecipientID string // Account ID, empty for operator-wide events
	Message     string
	Data        map[string]any
	CreatedAt   time.Time
}

// NotificationService delivers rider notifications and keeps a short feed
// of recent events for the operator dashboard.
type NotificationService struct {
	logger logrus.FieldLogger

	mu   sync.Mutex
	feed []Notification
}

// NewNotificationService creates a new NotificationService.
func NewNotificationService(logger logrus.FieldLogger) *NotificationService {
	return &NotificationService{logger: logger}
}

// NotifyTripStarted confirms a check-in to the rider.
func (s *NotificationService) NotifyTripStarted(ctx context.Context, trip domain.Trip) {
	s.send(ctx, Notification{
		Type:        NotificationTripStarted,
		RecipientID: trip.AccountID,
		Message:     fmt.Sprintf("Entry on %s, %d passenger(s)", trip.RouteName, trip.PassengerCount),
		Data: map[string]any{
			"trip_id": trip.ID,
			"rate":    trip.Rate,
		},
	})
}

// NotifyTripEnded reports the settlement outcome of a check-out.
func (s *NotificationService) NotifyTripEnded(ctx context.Context, trip domain.Trip, outcome *domain.SettlementOutcome) {
	s.send(ctx, Notification{
		Type:        NotificationTripEnded,
		RecipientID: trip.AccountID,
		Message:     fmt.Sprintf("Exit from %s, fare %s, paid %s", trip.RouteName, outcome.ChargedAmount, outcome.CollectedAmount),
		Data: map[string]any{
			"trip_id": trip.ID,
			"status":  outcome.Status,
		},
	})

	switch outcome.Status {
	case domain.SettlementStatusPartial:
		s.send(ctx, Notification{
			Type:        NotificationDebtRecorded,
			RecipientID: trip.AccountID,
			Message:     fmt.Sprintf("Partial payment, outstanding debt %s", outcome.RemainingDebt),
		})
	case domain.SettlementStatusFailed:
		s.send(ctx, Notification{
			Type:        NotificationPaymentFailed,
			RecipientID: trip.AccountID,
			Message:     fmt.Sprintf("Payment failed, %s recorded as debt", outcome.RemainingDebt),
		})
	}
}

// NotifyDebtPaid confirms a manual debt payment.
func (s *NotificationService) NotifyDebtPaid(ctx context.Context, accountID string, outcome *domain.SettlementOutcome) {
	s.send(ctx, Notification{
		Type:        NotificationDebtPaid,
		RecipientID: accountID,
		Message:     fmt.Sprintf("Paid %s of debt, %s remaining", outcome.CollectedAmount, outcome.RemainingDebt),
	})
}

// NotifyFareChanged records an operator rate change.
func (s *NotificationService) NotifyFareChanged(ctx context.Context, routeName string, rate float64) {
	s.send(ctx, Notification{
		Type:    NotificationFareChanged,
		Message: fmt.Sprintf("Rate updated: %s -> %g/s", routeName, rate),
	})
}

// Recent returns the latest notifications, newest first.
func (s *NotificationService) Recent() []Notification {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Notification, len(s.feed))
	for i, n := range s.feed {
		out[len(s.feed)-1-i] = n
	}
	return out
}

// send delivers a notification. Delivery is a structured log line; push
// channels are out of scope.
func (s *NotificationService) send(ctx context.Context, n Notification) {
	n.CreatedAt = time.Now()

	s.mu.Lock()
	s.feed = append(s.feed, n)
	if len(s.feed) > feedSize {
		s.feed = s.feed[len(s.feed)-feedSize:]
	}
	s.mu.Unlock()

	s.logger.WithFields(logrus.Fields{
		"type":      n.Type,
		"recipient": n.RecipientID,
	}).Info(n.Message)
}
