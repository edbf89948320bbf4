package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"busfare/internal/app"
	"busfare/internal/domain"
	"busfare/internal/fare"
	"busfare/internal/handler"
	"busfare/internal/ledger"
	"busfare/internal/payrail"
	"busfare/internal/repository/memory"
	"busfare/internal/service"
)

type testServer struct {
	router   *gin.Engine
	accounts *memory.AccountRepository
	wallets  *payrail.Wallets
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger, _ := test.NewNullLogger()

	accounts := memory.NewAccountRepository()
	history := memory.NewHistoryRepository()
	routes := memory.NewRouteRepository()
	wallets := payrail.NewWallets()

	notifier := service.NewNotificationService(logger)
	fares := service.NewFareService(routes, 0.01, notifier)
	engine := service.NewSettlementEngine(wallets, memory.NewSettlementStore(accounts, history), service.SettlementConfig{
		Recipient: "operator",
		Epsilon:   1,
	}, logger)

	trips := service.NewTripService(service.TripServiceDeps{
		Ledger:     ledger.New(),
		Calculator: fare.NewCalculator(1),
		Engine:     engine,
		Fares:      fares,
		Accounts:   accounts,
		OpenTrips:  memory.NewTripRepository(),
		Discounts:  service.StaticDiscounts{"student": 0.5},
		Notifier:   notifier,
		Receipts:   service.NewReceiptService(),
		Logger:     logger,
	})
	accountSvc := service.NewAccountService(service.AccountServiceDeps{
		Accounts: accounts,
		History:  history,
		Rail:     wallets,
		Engine:   engine,
		Funder:   wallets,
		Notifier: notifier,
		Logger:   logger,
	})
	admin := service.NewAdminService(accounts, trips, fares, history, notifier)

	router := app.NewRouter(app.RouterDeps{
		TripHandler:    handler.NewTripHandler(trips, accountSvc, logger),
		AccountHandler: handler.NewAccountHandler(accountSvc, logger),
		AdminHandler:   handler.NewAdminHandler(admin, fares, logger),
		Logger:         logger,
	})

	return &testServer{router: router, accounts: accounts, wallets: wallets}
}

func (s *testServer) addAccount(t *testing.T, id string, balance, debt domain.Money) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.accounts.Create(ctx, &domain.Account{ID: id, Name: id, Credential: "wallet-" + id, Debt: debt}))
	if balance > 0 {
		require.NoError(t, s.wallets.Fund(ctx, "wallet-"+id, balance))
	}
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestTripFlow(t *testing.T) {
	s := newTestServer(t)
	s.addAccount(t, "ana", 500, 0)

	w := s.do(t, http.MethodPost, "/v1/trip/start", handler.StartTripRequest{AccountID: "ana", Passengers: 2})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	started := decode[handler.StartTripResponse](t, w)
	assert.NotEmpty(t, started.TripID)
	assert.Equal(t, domain.ManualRouteName, started.RouteName)
	assert.InDelta(t, 0.01, started.Rate, 1e-12)

	w = s.do(t, http.MethodGet, "/v1/trip/"+started.TripID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	status := decode[handler.TripStatusResponse](t, w)
	assert.Equal(t, "ana", status.AccountID)

	w = s.do(t, http.MethodPost, "/v1/trip/start", handler.StartTripRequest{AccountID: "ana", Passengers: 1})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "ACCOUNT_ALREADY_TRAVELING", decode[handler.ErrorResponse](t, w).Code)

	w = s.do(t, http.MethodPost, "/v1/trip/end", handler.EndTripRequest{TripID: started.TripID})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	ended := decode[handler.EndTripResponse](t, w)
	assert.Equal(t, "FULL", ended.Status)
	assert.NotNil(t, ended.TransactionRef)
	assert.Contains(t, ended.Receipt, "BUS TICKET")

	w = s.do(t, http.MethodPost, "/v1/trip/end", handler.EndTripRequest{TripID: started.TripID})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "TRIP_NOT_FOUND", decode[handler.ErrorResponse](t, w).Code)

	w = s.do(t, http.MethodGet, "/v1/accounts/ana/history", nil)
	require.Equal(t, http.StatusOK, w.Code)
	history := decode[[]handler.HistoryEntry](t, w)
	require.Len(t, history, 1)
	assert.Equal(t, "TRIP", history[0].Kind)
}

func TestStartTrip_Errors(t *testing.T) {
	s := newTestServer(t)
	s.addAccount(t, "debtor", 1000, 50)

	testCases := []struct {
		name       string
		body       any
		wantStatus int
		wantCode   string
	}{
		{"pending debt", handler.StartTripRequest{AccountID: "debtor", Passengers: 1}, http.StatusForbidden, "PENDING_DEBT"},
		{"unknown account", handler.StartTripRequest{AccountID: "ghost", Passengers: 1}, http.StatusNotFound, "NOT_FOUND"},
		{"no passengers", handler.StartTripRequest{AccountID: "debtor"}, http.StatusBadRequest, "INVALID_REQUEST"},
		{"malformed body", "not json object", http.StatusBadRequest, "INVALID_REQUEST"},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			w := s.do(t, http.MethodPost, "/v1/trip/start", tc.body)
			assert.Equal(t, tc.wantStatus, w.Code)
			assert.Equal(t, tc.wantCode, decode[handler.ErrorResponse](t, w).Code)
		})
	}
}

func TestPayDebt(t *testing.T) {
	s := newTestServer(t)
	s.addAccount(t, "debtor", 50, 100)
	s.addAccount(t, "clean", 50, 0)
	s.addAccount(t, "broke", 0, 10)

	w := s.do(t, http.MethodPost, "/v1/account/pay-debt", handler.PayDebtRequest{AccountID: "debtor"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	paid := decode[handler.PayDebtResponse](t, w)
	assert.InDelta(t, 0.49, paid.Paid, 1e-9)
	assert.InDelta(t, 0.51, paid.RemainingDebt, 1e-9)

	w = s.do(t, http.MethodPost, "/v1/account/pay-debt", handler.PayDebtRequest{AccountID: "clean"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "NO_DEBT", decode[handler.ErrorResponse](t, w).Code)

	w = s.do(t, http.MethodPost, "/v1/account/pay-debt", handler.PayDebtRequest{AccountID: "broke"})
	assert.Equal(t, http.StatusPaymentRequired, w.Code)
	assert.Equal(t, "INSUFFICIENT_FUNDS", decode[handler.ErrorResponse](t, w).Code)
}

func TestAccounts(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/v1/accounts", handler.RegisterRequest{Name: "Bo", Credential: "wallet-bo"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[handler.AccountResponse](t, w)
	require.NotEmpty(t, created.ID)

	w = s.do(t, http.MethodPost, "/v1/accounts/"+created.ID+"/top-up", handler.TopUpRequest{Amount: 2.5})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(t, http.MethodGet, "/v1/accounts/"+created.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	account := decode[handler.AccountResponse](t, w)
	require.NotNil(t, account.Balance)
	assert.InDelta(t, 2.5, *account.Balance, 1e-9)
	assert.Zero(t, account.Debt)

	w = s.do(t, http.MethodPost, "/v1/accounts", handler.RegisterRequest{Name: "No wallet"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodGet, "/v1/accounts/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdminRoutesAndFare(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/v1/admin/routes", handler.CreateRouteRequest{Name: "Line 4", RatePerSecond: 0.02})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	route := decode[handler.RouteResponse](t, w)

	w = s.do(t, http.MethodPut, "/v1/admin/fare", handler.UpdateFareRequest{RouteID: route.ID})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.InDelta(t, 0.02, decode[handler.FareResponse](t, w).RatePerSecond, 1e-12)

	w = s.do(t, http.MethodPut, "/v1/admin/fare", handler.UpdateFareRequest{RatePerSecond: -1})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodGet, "/v1/admin/dashboard", nil)
	require.Equal(t, http.StatusOK, w.Code)
	dash := decode[handler.DashboardResponse](t, w)
	assert.Equal(t, "Line 4", dash.RouteName)
	assert.Len(t, dash.Routes, 1)
	assert.Empty(t, dash.ActiveTrips)

	w = s.do(t, http.MethodDelete, "/v1/admin/routes/"+route.ID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = s.do(t, http.MethodDelete, "/v1/admin/routes/"+route.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestEligibility(t *testing.T) {
	s := newTestServer(t)
	s.addAccount(t, "student", 500, 0)
	s.addAccount(t, "debtor", 500, 30)
	s.addAccount(t, "rider", 500, 0)

	w := s.do(t, http.MethodPost, "/v1/trip/start", handler.StartTripRequest{AccountID: "rider", Passengers: 1})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	testCases := []struct {
		account      string
		wantEligible bool
		wantCode     string
		wantDiscount float64
	}{
		{"student", true, "", 0.5},
		{"debtor", false, "PENDING_DEBT", 0},
		{"rider", false, "ACCOUNT_ALREADY_TRAVELING", 0},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.account, func(t *testing.T) {
			w := s.do(t, http.MethodGet, "/v1/accounts/"+tc.account+"/eligibility", nil)
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())
			got := decode[handler.EligibilityResponse](t, w)
			assert.Equal(t, tc.wantEligible, got.Eligible)
			assert.Equal(t, tc.wantCode, got.Code)
			assert.InDelta(t, tc.wantDiscount, got.Discount, 1e-12)
		})
	}

	w = s.do(t, http.MethodGet, "/v1/accounts/ghost/eligibility", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdminListAccounts(t *testing.T) {
	s := newTestServer(t)
	s.addAccount(t, "ana", 500, 0)
	s.addAccount(t, "debtor", 0, 75)

	w := s.do(t, http.MethodGet, "/v1/admin/accounts", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	accounts := decode[[]handler.AccountResponse](t, w)
	require.Len(t, accounts, 2)

	debts := make(map[string]float64)
	for _, a := range accounts {
		assert.Nil(t, a.Balance)
		debts[a.ID] = a.Debt
	}
	assert.InDelta(t, 0, debts["ana"], 1e-9)
	assert.InDelta(t, 0.75, debts["debtor"], 1e-9)
}
