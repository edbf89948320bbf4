package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"busfare/internal/fare"
	"busfare/internal/ledger"
	"busfare/internal/lock"
	"busfare/internal/payrail"
	"busfare/internal/repository"
	"busfare/internal/service"
)

// timeLayout is the wire format for timestamps.
const timeLayout = "2006-01-02T15:04:05Z07:00"

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}

// apiError pairs an HTTP status with a stable reason code.
type apiError struct {
	status int
	code   string
}

// respondError sends an error response with the appropriate HTTP status code.
func respondError(c *gin.Context, logger logrus.FieldLogger, err error) {
	e := mapError(err)
	if e.status >= http.StatusInternalServerError && logger != nil {
		logger.WithError(err).WithFields(logrus.Fields{
			"path": c.FullPath(),
			"code": e.code,
		}).Error("request failed")
	}
	c.JSON(e.status, ErrorResponse{Code: e.code, Error: err.Error()})
}

// respondBadRequest rejects a malformed request body.
func respondBadRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Code: "INVALID_REQUEST", Error: msg})
}

// respondJSON sends a JSON response with the given status code.
func respondJSON(c *gin.Context, code int, data any) {
	c.JSON(code, data)
}

// mapError maps domain errors to HTTP status codes and reason codes.
func mapError(err error) apiError {
	switch {
	// Fare configuration bug
	case errors.Is(err, fare.ErrInvalidFareInput):
		return apiError{http.StatusInternalServerError, "INVALID_FARE_INPUT"}

	// Not found errors
	case errors.Is(err, ledger.ErrTripNotFound):
		return apiError{http.StatusNotFound, "TRIP_NOT_FOUND"}
	case errors.Is(err, repository.ErrNotFound):
		return apiError{http.StatusNotFound, "NOT_FOUND"}

	// Conflict errors
	case errors.Is(err, ledger.ErrAccountAlreadyTraveling):
		return apiError{http.StatusConflict, "ACCOUNT_ALREADY_TRAVELING"}
	case errors.Is(err, lock.ErrBusy):
		return apiError{http.StatusConflict, "ACCOUNT_BUSY"}
	case errors.Is(err, repository.ErrAlreadyExists):
		return apiError{http.StatusConflict, "ALREADY_EXISTS"}

	// Business rule errors
	case errors.Is(err, service.ErrPendingDebt):
		return apiError{http.StatusForbidden, "PENDING_DEBT"}
	case errors.Is(err, service.ErrInsufficientDeposit):
		return apiError{http.StatusForbidden, "INSUFFICIENT_DEPOSIT"}
	case errors.Is(err, service.ErrNoDebt):
		return apiError{http.StatusBadRequest, "NO_DEBT"}
	case errors.Is(err, service.ErrInsufficientFunds):
		return apiError{http.StatusPaymentRequired, "INSUFFICIENT_FUNDS"}

	// Payment rail errors
	case errors.Is(err, service.ErrPaymentFailed):
		return apiError{http.StatusBadGateway, "PAYMENT_FAILED"}
	case errors.Is(err, payrail.ErrPayRailUnavailable):
		return apiError{http.StatusServiceUnavailable, "PAYRAIL_UNAVAILABLE"}
	case errors.Is(err, service.ErrTopUpUnsupported):
		return apiError{http.StatusNotImplemented, "TOP_UP_UNSUPPORTED"}

	// Validation errors - Bad Request
	case errors.Is(err, service.ErrInvalidAccountID),
		errors.Is(err, service.ErrInvalidTripID),
		errors.Is(err, service.ErrInvalidPassengerCount),
		errors.Is(err, service.ErrInvalidAccountName),
		errors.Is(err, service.ErrInvalidCredential),
		errors.Is(err, service.ErrInvalidRate),
		errors.Is(err, service.ErrInvalidRouteName),
		errors.Is(err, service.ErrInvalidAmount),
		errors.Is(err, payrail.ErrInvalidAmount):
		return apiError{http.StatusBadRequest, "INVALID_REQUEST"}

	// Default to internal server error
	default:
		return apiError{http.StatusInternalServerError, "INTERNAL"}
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(timeLayout)
}
