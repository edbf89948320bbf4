package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"busfare/internal/domain"
	"busfare/internal/service"
)

// AccountHandler handles HTTP requests for rider accounts.
type AccountHandler struct {
	accountService *service.AccountService
	logger         logrus.FieldLogger
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(accountService *service.AccountService, logger logrus.FieldLogger) *AccountHandler {
	return &AccountHandler{
		accountService: accountService,
		logger:         logger,
	}
}

// RegisterRequest is the HTTP request body for account registration.
type RegisterRequest struct {
	Name       string `json:"name"`
	Credential string `json:"credential"`
}

// PayDebtRequest is the HTTP request body for paying down debt.
type PayDebtRequest struct {
	AccountID string `json:"account_id"`
}

// TopUpRequest is the HTTP request body for funding a wallet.
type TopUpRequest struct {
	Amount float64 `json:"amount"`
}

// AccountResponse is the HTTP response for account data.
type AccountResponse struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Debt          float64  `json:"debt"`
	LockedBalance float64  `json:"locked_balance"`
	Balance       *float64 `json:"balance,omitempty"`
	CreatedAt     string   `json:"created_at"`
}

// PayDebtResponse is the HTTP response for a debt payment.
type PayDebtResponse struct {
	Paid           float64 `json:"paid"`
	RemainingDebt  float64 `json:"remaining_debt"`
	TransactionRef *string `json:"transaction_ref"`
	Status         string  `json:"status"`
}

// HistoryEntry is one settlement record on the wire.
type HistoryEntry struct {
	ID              string  `json:"id"`
	Kind            string  `json:"kind"`
	AccountID       string  `json:"account_id"`
	TripID          string  `json:"trip_id,omitempty"`
	RouteName       string  `json:"route_name,omitempty"`
	StartTime       string  `json:"start_time,omitempty"`
	EndTime         string  `json:"end_time,omitempty"`
	DurationSeconds int64   `json:"duration_seconds,omitempty"`
	Passengers      int     `json:"passengers,omitempty"`
	Rate            float64 `json:"rate,omitempty"`
	ChargedAmount   float64 `json:"charged_amount"`
	TotalDue        float64 `json:"total_due"`
	CollectedAmount float64 `json:"collected_amount"`
	DebtBefore      float64 `json:"debt_before"`
	DebtAfter       float64 `json:"debt_after"`
	TransactionRef  *string `json:"transaction_ref"`
	Status          string  `json:"status"`
	CreatedAt       string  `json:"created_at"`
}

// Register handles POST /v1/accounts
func (h *AccountHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	account, err := h.accountService.Register(c.Request.Context(), service.RegisterRequest{
		Name:       req.Name,
		Credential: req.Credential,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	respondJSON(c, http.StatusCreated, toAccountResponse(account, nil))
}

// GetAccount handles GET /v1/accounts/:id
func (h *AccountHandler) GetAccount(c *gin.Context) {
	summary, err := h.accountService.Summary(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	balance := summary.Balance.Float()
	respondJSON(c, http.StatusOK, toAccountResponse(summary.Account, &balance))
}

// PayDebt handles POST /v1/account/pay-debt
func (h *AccountHandler) PayDebt(c *gin.Context) {
	var req PayDebtRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	outcome, err := h.accountService.PayDebt(c.Request.Context(), req.AccountID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	respondJSON(c, http.StatusOK, PayDebtResponse{
		Paid:           outcome.CollectedAmount.Float(),
		RemainingDebt:  outcome.RemainingDebt.Float(),
		TransactionRef: outcome.TransactionRef,
		Status:         string(outcome.Status),
	})
}

// TopUp handles POST /v1/accounts/:id/top-up
func (h *AccountHandler) TopUp(c *gin.Context) {
	var req TopUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	balance, err := h.accountService.TopUp(c.Request.Context(), c.Param("id"), domain.MoneyFromFloat(req.Amount))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	respondJSON(c, http.StatusOK, gin.H{"balance": balance.Float()})
}

// History handles GET /v1/accounts/:id/history
func (h *AccountHandler) History(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit < 0 {
		respondBadRequest(c, "invalid limit")
		return
	}

	records, err := h.accountService.History(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	respondJSON(c, http.StatusOK, toHistoryEntries(records))
}

func toAccountResponse(a *domain.Account, balance *float64) AccountResponse {
	return AccountResponse{
		ID:            a.ID,
		Name:          a.Name,
		Debt:          a.Debt.Float(),
		LockedBalance: a.LockedBalance.Float(),
		Balance:       balance,
		CreatedAt:     formatTime(a.CreatedAt),
	}
}

func toHistoryEntries(records []*domain.SettlementRecord) []HistoryEntry {
	out := make([]HistoryEntry, 0, len(records))
	for _, r := range records {
		out = append(out, HistoryEntry{
			ID:              r.ID,
			Kind:            string(r.Kind),
			AccountID:       r.AccountID,
			TripID:          r.TripID,
			RouteName:       r.RouteName,
			StartTime:       formatTime(r.StartTime),
			EndTime:         formatTime(r.EndTime),
			DurationSeconds: r.DurationSeconds,
			Passengers:      r.Passengers,
			Rate:            r.Rate,
			ChargedAmount:   r.ChargedAmount.Float(),
			TotalDue:        r.TotalDue.Float(),
			CollectedAmount: r.CollectedAmount.Float(),
			DebtBefore:      r.DebtBefore.Float(),
			DebtAfter:       r.DebtAfter.Float(),
			TransactionRef:  r.TransactionRef,
			Status:          string(r.Status),
			CreatedAt:       formatTime(r.CreatedAt),
		})
	}
	return out
}
