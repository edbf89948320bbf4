package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"busfare/internal/domain"
	"busfare/internal/service"
)

// TripHandler handles HTTP requests for trips.
type TripHandler struct {
	tripService     *service.TripService
	receiptService  *service.ReceiptService
	accountsService *service.AccountService
	logger          logrus.FieldLogger
}

// NewTripHandler creates a new TripHandler. accounts may be nil.
func NewTripHandler(tripService *service.TripService, accounts *service.AccountService, logger logrus.FieldLogger) *TripHandler {
	return &TripHandler{
		tripService:     tripService,
		receiptService:  service.NewReceiptService(),
		accountsService: accounts,
		logger:          logger,
	}
}

// StartTripRequest is the HTTP request body for checking in.
type StartTripRequest struct {
	AccountID  string `json:"account_id"`
	Passengers int    `json:"passengers"`
}

// EndTripRequest is the HTTP request body for checking out.
type EndTripRequest struct {
	TripID string `json:"trip_id"`
}

// StartTripResponse is the HTTP response for a check-in.
type StartTripResponse struct {
	TripID     string  `json:"trip_id"`
	AccountID  string  `json:"account_id"`
	RouteName  string  `json:"route_name"`
	Rate       float64 `json:"rate"`
	Passengers int     `json:"passengers"`
	Deposit    float64 `json:"deposit,omitempty"`
	StartedAt  string  `json:"started_at"`
}

// EndTripResponse is the HTTP response for a check-out.
type EndTripResponse struct {
	TripID          string  `json:"trip_id"`
	DurationSeconds int64   `json:"duration_seconds"`
	ChargedAmount   float64 `json:"charged_amount"`
	CollectedAmount float64 `json:"collected_amount"`
	RemainingDebt   float64 `json:"remaining_debt"`
	TransactionRef  *string `json:"transaction_ref"`
	Status          string  `json:"status"`
	Receipt         string  `json:"receipt,omitempty"`
}

// TripStatusResponse is the HTTP response for a live trip view.
type TripStatusResponse struct {
	TripID         string  `json:"trip_id"`
	AccountID      string  `json:"account_id"`
	RouteName      string  `json:"route_name"`
	Rate           float64 `json:"rate"`
	Passengers     int     `json:"passengers"`
	StartedAt      string  `json:"started_at"`
	ElapsedSeconds int64   `json:"elapsed_seconds"`
	CurrentCost    float64 `json:"current_cost"`
}

// EligibilityResponse is the HTTP response for a pre-check-in check.
type EligibilityResponse struct {
	AccountID string  `json:"account_id"`
	Eligible  bool    `json:"eligible"`
	Code      string  `json:"code,omitempty"`
	Reason    string  `json:"reason,omitempty"`
	Discount  float64 `json:"discount"`
}

// StartTrip handles POST /v1/trip/start
func (h *TripHandler) StartTrip(c *gin.Context) {
	var req StartTripRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	trip, err := h.tripService.StartTrip(c.Request.Context(), service.StartTripRequest{
		AccountID:  req.AccountID,
		Passengers: req.Passengers,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	respondJSON(c, http.StatusCreated, StartTripResponse{
		TripID:     trip.ID,
		AccountID:  trip.AccountID,
		RouteName:  trip.RouteName,
		Rate:       trip.Rate,
		Passengers: trip.PassengerCount,
		Deposit:    trip.LockedDeposit.Float(),
		StartedAt:  formatTime(trip.StartTime),
	})
}

// EndTrip handles POST /v1/trip/end
func (h *TripHandler) EndTrip(c *gin.Context) {
	var req EndTripRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	result, err := h.tripService.EndTrip(c.Request.Context(), service.EndTripRequest{
		TripID: req.TripID,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	if h.accountsService != nil {
		h.accountsService.InvalidateBalance(c.Request.Context(), result.Trip.AccountID)
	}

	response := EndTripResponse{
		TripID:          result.Trip.ID,
		DurationSeconds: result.Charge.DurationSeconds,
	}
	fillOutcome(&response, result.Outcome)
	if result.Receipt != nil {
		response.Receipt = h.receiptService.FormatReceipt(result.Receipt)
	}

	respondJSON(c, http.StatusOK, response)
}

// GetTrip handles GET /v1/trip/:id
func (h *TripHandler) GetTrip(c *gin.Context) {
	status, err := h.tripService.GetTripStatus(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	respondJSON(c, http.StatusOK, toTripStatusResponse(status))
}

// Eligibility handles GET /v1/accounts/:id/eligibility
func (h *TripHandler) Eligibility(c *gin.Context) {
	accountID := c.Param("id")
	result, err := h.tripService.Eligibility(c.Request.Context(), accountID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	response := EligibilityResponse{
		AccountID: accountID,
		Eligible:  result.Eligible,
		Discount:  result.Discount,
	}
	if result.Reason != nil {
		response.Code = mapError(result.Reason).code
		response.Reason = result.Reason.Error()
	}

	respondJSON(c, http.StatusOK, response)
}

func fillOutcome(r *EndTripResponse, o *domain.SettlementOutcome) {
	r.ChargedAmount = o.ChargedAmount.Float()
	r.CollectedAmount = o.CollectedAmount.Float()
	r.RemainingDebt = o.RemainingDebt.Float()
	r.TransactionRef = o.TransactionRef
	r.Status = string(o.Status)
}

func toTripStatusResponse(s *service.TripStatus) TripStatusResponse {
	return TripStatusResponse{
		TripID:         s.Trip.ID,
		AccountID:      s.Trip.AccountID,
		RouteName:      s.Trip.RouteName,
		Rate:           s.Trip.Rate,
		Passengers:     s.Trip.PassengerCount,
		StartedAt:      formatTime(s.Trip.StartTime),
		ElapsedSeconds: s.ElapsedSeconds,
		CurrentCost:    s.CurrentCost.Float(),
	}
}
