package tests

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"busfare/internal/domain"
	"busfare/internal/payrail"
	"busfare/internal/service"
)

// ──────────────────────────────────────────────
// 4. DEBT PAYMENT
// ──────────────────────────────────────────────

func TestPayDebt_NoDebt(t *testing.T) {
	t.Parallel()

	h := NewHarness(t, HarnessOptions{})
	account := h.AddAccount(t, "acct-1", 500, 0)

	_, err := h.AccountsSvc.PayDebt(context.Background(), account.ID)
	assert.ErrorIs(t, err, service.ErrNoDebt)
	assert.Zero(t, h.History.Count())
}

func TestPayDebt_NothingCollectible(t *testing.T) {
	t.Parallel()

	for _, balance := range []domain.Money{0, 1} {
		h := NewHarness(t, HarnessOptions{})
		account := h.AddAccount(t, "acct-1", balance, 40)

		_, err := h.AccountsSvc.PayDebt(context.Background(), account.ID)
		assert.ErrorIs(t, err, service.ErrInsufficientFunds, "balance=%s", balance)
		assert.Equal(t, domain.Money(40), h.Account(t, account.ID).Debt)
		assert.Zero(t, h.Rail.TransferCallCount)
	}
}

func TestPayDebt_PartialThenFull(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	h := NewHarness(t, HarnessOptions{})
	account := h.AddAccount(t, "acct-1", 50, 100)

	outcome, err := h.AccountsSvc.PayDebt(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SettlementStatusPartial, outcome.Status)
	assert.Equal(t, domain.Money(49), outcome.CollectedAmount)
	assert.Equal(t, domain.Money(51), outcome.RemainingDebt)
	require.NotNil(t, outcome.TransactionRef)

	_, err = h.Trips.StartTrip(ctx, service.StartTripRequest{AccountID: account.ID, Passengers: 1})
	assert.ErrorIs(t, err, service.ErrPendingDebt)

	require.NoError(t, h.Rail.Fund(ctx, account.Credential, 1000))

	outcome, err = h.AccountsSvc.PayDebt(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SettlementStatusFull, outcome.Status)
	assert.Equal(t, domain.Money(51), outcome.CollectedAmount)
	assert.Zero(t, outcome.RemainingDebt)
	assert.Zero(t, h.Account(t, account.ID).Debt)
	assert.Equal(t, domain.Money(100), h.Rail.Balance(operatorWallet))

	records, err := h.AccountsSvc.History(ctx, account.ID, 0)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, domain.RecordKindDebtPayment, records[0].Kind)
	assert.Equal(t, domain.Money(51), records[0].DebtBefore)
	assert.Zero(t, records[0].DebtAfter)
	assert.Equal(t, domain.Money(100), records[1].DebtBefore)

	_, err = h.Trips.StartTrip(ctx, service.StartTripRequest{AccountID: account.ID, Passengers: 1})
	assert.NoError(t, err)
}

func TestPayDebt_TransferFailureLeavesDebt(t *testing.T) {
	t.Parallel()

	h := NewHarness(t, HarnessOptions{})
	account := h.AddAccount(t, "acct-1", 500, 70)
	h.Rail.SetTransferError(payrail.ErrTransferRejected)

	_, err := h.AccountsSvc.PayDebt(context.Background(), account.ID)
	assert.ErrorIs(t, err, service.ErrPaymentFailed)
	assert.Equal(t, domain.Money(70), h.Account(t, account.ID).Debt)
	assert.Zero(t, h.History.Count())
}

func TestPayDebt_RailUnavailable(t *testing.T) {
	t.Parallel()

	h := NewHarness(t, HarnessOptions{})
	account := h.AddAccount(t, "acct-1", 500, 70)
	h.Rail.SetBalanceError(payrail.ErrPayRailUnavailable)

	_, err := h.AccountsSvc.PayDebt(context.Background(), account.ID)
	assert.ErrorIs(t, err, payrail.ErrPayRailUnavailable)
	assert.Equal(t, domain.Money(70), h.Account(t, account.ID).Debt)
}

func TestPayDebt_AfterPartialTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	h := NewHarness(t, HarnessOptions{})
	account := h.AddAccount(t, "acct-1", 50, 0)

	resp := h.Ride(t, account.ID, 2, 50*time.Second)
	require.Equal(t, domain.Money(51), resp.Outcome.RemainingDebt)

	require.NoError(t, h.Rail.Fund(ctx, account.Credential, 51))
	outcome, err := h.AccountsSvc.PayDebt(ctx, account.ID)
	require.NoError(t, err)

	// One cent stays behind as epsilon.
	assert.Equal(t, domain.Money(51), outcome.CollectedAmount)
	assert.Zero(t, outcome.RemainingDebt)
	assert.Equal(t, domain.Money(1), h.Rail.Balance(account.Credential))
}

// ──────────────────────────────────────────────
// 5. ACCOUNTS
// ──────────────────────────────────────────────

func TestRegister(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	h := NewHarness(t, HarnessOptions{})

	_, err := h.AccountsSvc.Register(ctx, service.RegisterRequest{Credential: "w"})
	assert.ErrorIs(t, err, service.ErrInvalidAccountName)
	_, err = h.AccountsSvc.Register(ctx, service.RegisterRequest{Name: "Ana"})
	assert.ErrorIs(t, err, service.ErrInvalidCredential)

	account, err := h.AccountsSvc.Register(ctx, service.RegisterRequest{Name: "Ana", Credential: "wallet-ana"})
	require.NoError(t, err)
	assert.NotEmpty(t, account.ID)
	assert.Zero(t, account.Debt)

	stored, err := h.AccountsSvc.GetAccount(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ana", stored.Name)
}

func TestSummaryAndTopUp(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	h := NewHarness(t, HarnessOptions{})
	account := h.AddAccount(t, "acct-1", 120, 0)

	summary, err := h.AccountsSvc.Summary(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.Money(120), summary.Balance)

	_, err = h.AccountsSvc.TopUp(ctx, account.ID, 0)
	assert.ErrorIs(t, err, service.ErrInvalidAmount)

	balance, err := h.AccountsSvc.TopUp(ctx, account.ID, 380)
	require.NoError(t, err)
	assert.Equal(t, domain.Money(500), balance)
}

func TestTopUp_UnsupportedWithoutFunder(t *testing.T) {
	t.Parallel()

	h := NewHarness(t, HarnessOptions{})
	h.AddAccount(t, "acct-1", 0, 0)

	svc := service.NewAccountService(service.AccountServiceDeps{
		Accounts: h.Accounts,
		History:  h.History,
		Rail:     h.Rail,
		Engine:   h.Engine,
	})

	_, err := svc.TopUp(context.Background(), "acct-1", 100)
	assert.ErrorIs(t, err, service.ErrTopUpUnsupported)
}
