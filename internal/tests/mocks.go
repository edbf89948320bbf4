package tests

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"busfare/internal/domain"
	"busfare/internal/fare"
	"busfare/internal/ledger"
	"busfare/internal/payrail"
	"busfare/internal/repository/memory"
	"busfare/internal/service"
)

// ──────────────────────────────────────────────
// MOCK PAYMENT RAIL
// ──────────────────────────────────────────────

// MockRail wraps in-memory wallets with call counters and error injection.
type MockRail struct {
	wallets *payrail.Wallets

	// Counters for verification
	BalanceCallCount  int32
	TransferCallCount int32

	// Error injection
	mu            sync.Mutex
	balanceError  error
	transferError error
}

// NewMockRail creates a new mock rail with empty wallets.
func NewMockRail() *MockRail {
	return &MockRail{wallets: payrail.NewWallets()}
}

// SetBalanceError makes every balance query fail with err (nil clears it).
func (m *MockRail) SetBalanceError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balanceError = err
}

// SetTransferError makes every transfer fail with err (nil clears it).
func (m *MockRail) SetTransferError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transferError = err
}

func (m *MockRail) BalanceOf(ctx context.Context, credential string) (domain.Money, error) {
	atomic.AddInt32(&m.BalanceCallCount, 1)
	m.mu.Lock()
	err := m.balanceError
	m.mu.Unlock()
	if err != nil {
		return 0, err
	}
	return m.wallets.BalanceOf(ctx, credential)
}

func (m *MockRail) Transfer(ctx context.Context, credential, recipient string, amount domain.Money) (payrail.Receipt, error) {
	atomic.AddInt32(&m.TransferCallCount, 1)
	m.mu.Lock()
	err := m.transferError
	m.mu.Unlock()
	if err != nil {
		return payrail.Receipt{}, err
	}
	return m.wallets.Transfer(ctx, credential, recipient, amount)
}

func (m *MockRail) Fund(ctx context.Context, credential string, amount domain.Money) error {
	return m.wallets.Fund(ctx, credential, amount)
}

// Balance reads a wallet directly, bypassing counters and injected errors.
func (m *MockRail) Balance(credential string) domain.Money {
	b, _ := m.wallets.BalanceOf(context.Background(), credential)
	return b
}

// ──────────────────────────────────────────────
// MOCK ACCOUNT REPOSITORY
// ──────────────────────────────────────────────

// MockAccountRepository wraps the in-memory repository with error injection.
type MockAccountRepository struct {
	*memory.AccountRepository

	mu          sync.Mutex
	getError    error
	updateError error
}

// NewMockAccountRepository creates a new mock account repository.
func NewMockAccountRepository() *MockAccountRepository {
	return &MockAccountRepository{AccountRepository: memory.NewAccountRepository()}
}

// SetUpdateError makes every update fail with err (nil clears it).
func (m *MockAccountRepository) SetUpdateError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updateError = err
}

// SetGetError makes every lookup by id fail with err (nil clears it).
func (m *MockAccountRepository) SetGetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getError = err
}

func (m *MockAccountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	m.mu.Lock()
	err := m.getError
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return m.AccountRepository.GetByID(ctx, id)
}

func (m *MockAccountRepository) Update(ctx context.Context, account *domain.Account) error {
	m.mu.Lock()
	err := m.updateError
	m.mu.Unlock()
	if err != nil {
		return err
	}
	return m.AccountRepository.Update(ctx, account)
}

// ──────────────────────────────────────────────
// TEST CLOCK
// ──────────────────────────────────────────────

// Clock is a manually advanced time source.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock starts a clock at a fixed instant.
func NewClock() *Clock {
	return &Clock{now: time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// ──────────────────────────────────────────────
// HARNESS
// ──────────────────────────────────────────────

const (
	operatorWallet = "operator"
	defaultRate    = 0.01
)

// Harness wires the services over in-memory stores and the mock rail.
type Harness struct {
	Accounts  *MockAccountRepository
	History   *memory.HistoryRepository
	OpenTrips *memory.TripRepository
	Routes    *memory.RouteRepository
	Rail      *MockRail
	Clock     *Clock
	Ledger    *ledger.TripLedger
	Notifier  *service.NotificationService
	Logs      *test.Hook

	Engine      *service.SettlementEngine
	Fares       *service.FareService
	Trips       *service.TripService
	AccountsSvc *service.AccountService
	Admin       *service.AdminService
}

// HarnessOptions tweaks the money policy and discounts.
type HarnessOptions struct {
	DebtTolerance  domain.Money
	MinimumDeposit domain.Money
	DepositHold    domain.Money
	Discounts      service.DiscountOracle
}

// NewHarness builds a harness with a one-cent epsilon and minimum fare.
func NewHarness(t *testing.T, opts HarnessOptions) *Harness {
	t.Helper()

	logger, hook := test.NewNullLogger()

	h := &Harness{
		Accounts:  NewMockAccountRepository(),
		History:   memory.NewHistoryRepository(),
		OpenTrips: memory.NewTripRepository(),
		Routes:    memory.NewRouteRepository(),
		Rail:      NewMockRail(),
		Clock:     NewClock(),
		Logs:      hook,
	}
	h.Notifier = service.NewNotificationService(logger)

	h.Engine = service.NewSettlementEngine(h.Rail, memory.NewSettlementStore(h.Accounts, h.History), service.SettlementConfig{
		Recipient:      operatorWallet,
		Epsilon:        1,
		DebtTolerance:  opts.DebtTolerance,
		MinimumDeposit: opts.MinimumDeposit,
	}, logger)
	h.Fares = service.NewFareService(h.Routes, defaultRate, h.Notifier)

	h.Ledger = ledger.New()
	h.Trips = h.newTripService(logger, opts)

	h.AccountsSvc = service.NewAccountService(service.AccountServiceDeps{
		Accounts: h.Accounts,
		History:  h.History,
		Rail:     h.Rail,
		Engine:   h.Engine,
		Funder:   h.Rail,
		Notifier: h.Notifier,
		Logger:   logger,
	})
	h.Admin = service.NewAdminService(h.Accounts, h.Trips, h.Fares, h.History, h.Notifier)

	return h
}

func (h *Harness) newTripService(logger *logrus.Logger, opts HarnessOptions) *service.TripService {
	return service.NewTripService(service.TripServiceDeps{
		Ledger:      h.Ledger,
		Calculator:  fare.NewCalculator(1),
		Engine:      h.Engine,
		Fares:       h.Fares,
		Accounts:    h.Accounts,
		OpenTrips:   h.OpenTrips,
		Discounts:   opts.Discounts,
		Notifier:    h.Notifier,
		Receipts:    service.NewReceiptService(),
		DepositHold: opts.DepositHold,
		Logger:      logger,
		Clock:       h.Clock.Now,
	})
}

// Restart simulates a process restart: a fresh ledger and trip service over
// the same stores.
func (h *Harness) Restart(t *testing.T, opts HarnessOptions) {
	t.Helper()
	logger, hook := test.NewNullLogger()
	h.Logs = hook
	h.Ledger = ledger.New()
	h.Trips = h.newTripService(logger, opts)
}

// AddAccount stores an account and funds its wallet.
func (h *Harness) AddAccount(t *testing.T, id string, balance, debt domain.Money) *domain.Account {
	t.Helper()

	account := &domain.Account{
		ID:         id,
		Name:       "Rider " + id,
		Credential: "wallet-" + id,
		Debt:       debt,
		CreatedAt:  h.Clock.Now(),
		UpdatedAt:  h.Clock.Now(),
	}
	require.NoError(t, h.Accounts.Create(context.Background(), account))

	if balance > 0 {
		require.NoError(t, h.Rail.Fund(context.Background(), account.Credential, balance))
	}
	return account
}

// Account reloads an account from the store.
func (h *Harness) Account(t *testing.T, id string) *domain.Account {
	t.Helper()
	account, err := h.Accounts.GetByID(context.Background(), id)
	require.NoError(t, err)
	return account
}

// Ride checks the account in, advances the clock and checks out.
func (h *Harness) Ride(t *testing.T, accountID string, passengers int, d time.Duration) *service.EndTripResponse {
	t.Helper()
	ctx := context.Background()

	trip, err := h.Trips.StartTrip(ctx, service.StartTripRequest{AccountID: accountID, Passengers: passengers})
	require.NoError(t, err)

	h.Clock.Advance(d)

	resp, err := h.Trips.EndTrip(ctx, service.EndTripRequest{TripID: trip.ID})
	require.NoError(t, err)
	return resp
}
