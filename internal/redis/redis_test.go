package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"busfare/internal/domain"
	"busfare/internal/lock"
	"busfare/internal/payrail"
)

// newTestClient connects to REDIS_TEST_ADDR or skips.
func newTestClient(t *testing.T) *redis.Client {
	t.Helper()

	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	require.NoError(t, client.Ping(context.Background()).Err())
	t.Cleanup(func() { client.Close() })
	return client
}

func TestWalletStore_Transfer(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()
	store := NewWalletStore(client)

	from := "test-" + uuid.NewString()
	to := "test-" + uuid.NewString()
	t.Cleanup(func() { client.Del(ctx, walletKeyPrefix+from, walletKeyPrefix+to) })

	require.NoError(t, store.Fund(ctx, from, 100))

	receipt, err := store.Transfer(ctx, from, to, 60)
	require.NoError(t, err)
	assert.NotEmpty(t, receipt.TransactionRef)

	_, err = store.Transfer(ctx, from, to, 41)
	assert.ErrorIs(t, err, payrail.ErrTransferRejected)

	balance, err := store.BalanceOf(ctx, from)
	require.NoError(t, err)
	assert.Equal(t, domain.Money(40), balance)

	balance, err = store.BalanceOf(ctx, to)
	require.NoError(t, err)
	assert.Equal(t, domain.Money(60), balance)
}

func TestLockStore_Exclusive(t *testing.T) {
	client := newTestClient(t)
	store := NewLockStore(client, 5*time.Second)
	account := "test-" + uuid.NewString()

	unlock, err := store.Lock(context.Background(), account)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err = store.Lock(ctx, account)
	assert.ErrorIs(t, err, lock.ErrBusy)

	unlock()

	unlock, err = store.Lock(context.Background(), account)
	require.NoError(t, err)
	unlock()
}

func TestCacheStore_RoundTrip(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()
	store := NewCacheStore(client)
	account := "test-" + uuid.NewString()

	_, ok, err := store.GetBalance(ctx, account)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.SetBalance(ctx, account, 250))
	balance, ok, err := store.GetBalance(ctx, account)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, domain.Money(250), balance)

	require.NoError(t, store.InvalidateBalance(ctx, account))
	_, ok, err = store.GetBalance(ctx, account)
	require.NoError(t, err)
	assert.False(t, ok)
}
