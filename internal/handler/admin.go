package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"busfare/internal/domain"
	"busfare/internal/service"
)

// AdminHandler handles operator HTTP requests.
type AdminHandler struct {
	adminService *service.AdminService
	fareService  *service.FareService
	logger       logrus.FieldLogger
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(adminService *service.AdminService, fareService *service.FareService, logger logrus.FieldLogger) *AdminHandler {
	return &AdminHandler{
		adminService: adminService,
		fareService:  fareService,
		logger:       logger,
	}
}

// UpdateFareRequest is the HTTP request body for changing the active fare.
type UpdateFareRequest struct {
	RatePerSecond float64 `json:"rate_per_second"`
	RouteID       string  `json:"route_id,omitempty"`
}

// CreateRouteRequest is the HTTP request body for creating a route.
type CreateRouteRequest struct {
	Name          string  `json:"name"`
	RatePerSecond float64 `json:"rate_per_second"`
}

// FareResponse is the HTTP response for fare settings.
type FareResponse struct {
	RatePerSecond  float64 `json:"rate_per_second"`
	CurrentRouteID string  `json:"current_route_id,omitempty"`
}

// RouteResponse is the HTTP response for a route.
type RouteResponse struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	RatePerSecond float64 `json:"rate_per_second"`
}

// EventResponse is one dashboard feed entry.
type EventResponse struct {
	Type      string `json:"type"`
	AccountID string `json:"account_id,omitempty"`
	Message   string `json:"message"`
	CreatedAt string `json:"created_at"`
}

// DashboardResponse is the HTTP response for the operator dashboard.
type DashboardResponse struct {
	Fare        FareResponse         `json:"fare"`
	RouteName   string               `json:"route_name"`
	ActiveTrips []TripStatusResponse `json:"active_trips"`
	History     []HistoryEntry       `json:"history"`
	Routes      []RouteResponse      `json:"routes"`
	Events      []EventResponse      `json:"events"`
}

// Dashboard handles GET /v1/admin/dashboard
func (h *AdminHandler) Dashboard(c *gin.Context) {
	dash, err := h.adminService.Dashboard(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	response := DashboardResponse{
		Fare:        toFareResponse(dash.Settings),
		RouteName:   dash.RouteName,
		ActiveTrips: make([]TripStatusResponse, 0, len(dash.ActiveTrips)),
		History:     toHistoryEntries(dash.History),
		Routes:      toRouteResponses(dash.Routes),
		Events:      make([]EventResponse, 0, len(dash.Events)),
	}
	for _, st := range dash.ActiveTrips {
		response.ActiveTrips = append(response.ActiveTrips, toTripStatusResponse(st))
	}
	for _, ev := range dash.Events {
		response.Events = append(response.Events, EventResponse{
			Type:      string(ev.Type),
			AccountID: ev.RecipientID,
			Message:   ev.Message,
			CreatedAt: formatTime(ev.CreatedAt),
		})
	}

	respondJSON(c, http.StatusOK, response)
}

// ListAccounts handles GET /v1/admin/accounts
func (h *AdminHandler) ListAccounts(c *gin.Context) {
	accounts, err := h.adminService.ListAccounts(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	out := make([]AccountResponse, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, toAccountResponse(a, nil))
	}
	respondJSON(c, http.StatusOK, out)
}

// UpdateFare handles PUT /v1/admin/fare
func (h *AdminHandler) UpdateFare(c *gin.Context) {
	var req UpdateFareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	settings, err := h.fareService.UpdateSettings(c.Request.Context(), service.UpdateSettingsRequest{
		RatePerSecond: req.RatePerSecond,
		RouteID:       req.RouteID,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	respondJSON(c, http.StatusOK, toFareResponse(settings))
}

// ListRoutes handles GET /v1/admin/routes
func (h *AdminHandler) ListRoutes(c *gin.Context) {
	routes, err := h.fareService.ListRoutes(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	respondJSON(c, http.StatusOK, toRouteResponses(routes))
}

// CreateRoute handles POST /v1/admin/routes
func (h *AdminHandler) CreateRoute(c *gin.Context) {
	var req CreateRouteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	route, err := h.fareService.CreateRoute(c.Request.Context(), service.CreateRouteRequest{
		Name:          req.Name,
		RatePerSecond: req.RatePerSecond,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	respondJSON(c, http.StatusCreated, RouteResponse{
		ID:            route.ID,
		Name:          route.Name,
		RatePerSecond: route.RatePerSecond,
	})
}

// DeleteRoute handles DELETE /v1/admin/routes/:id
func (h *AdminHandler) DeleteRoute(c *gin.Context) {
	if err := h.fareService.DeleteRoute(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func toFareResponse(s *domain.FareSettings) FareResponse {
	return FareResponse{
		RatePerSecond:  s.RatePerSecond,
		CurrentRouteID: s.CurrentRouteID,
	}
}

func toRouteResponses(routes []*domain.Route) []RouteResponse {
	out := make([]RouteResponse, 0, len(routes))
	for _, r := range routes {
		out = append(out, RouteResponse{
			ID:            r.ID,
			Name:          r.Name,
			RatePerSecond: r.RatePerSecond,
		})
	}
	return out
}
