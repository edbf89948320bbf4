package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"busfare/internal/domain"
	"busfare/internal/payrail"
)

const walletKeyPrefix = "wallet:"

// transferScript moves ARGV[1] cents from KEYS[1] to KEYS[2] atomically.
// Returns 1 on success and 0 when the source balance is too low.
var transferScript = redis.NewScript(`
local balance = tonumber(redis.call("GET", KEYS[1]) or "0")
local amount = tonumber(ARGV[1])
if balance < amount then
	return 0
end
redis.call("DECRBY", KEYS[1], amount)
redis.call("INCRBY", KEYS[2], amount)
return 1
`)

// WalletStore is a payment rail backed by Redis counters, one per credential.
// It lets several server instances share the same demo wallets.
type WalletStore struct {
	client *redis.Client
}

// NewWalletStore creates a new WalletStore.
func NewWalletStore(client *redis.Client) *WalletStore {
	return &WalletStore{client: client}
}

// BalanceOf returns the wallet balance; missing wallets hold nothing.
func (s *WalletStore) BalanceOf(ctx context.Context, credential string) (domain.Money, error) {
	v, err := s.client.Get(ctx, walletKeyPrefix+credential).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%v: %w", err, payrail.ErrPayRailUnavailable)
	}
	return domain.Money(v), nil
}

// Transfer moves amount from the credential's wallet to recipient.
func (s *WalletStore) Transfer(ctx context.Context, credential, recipient string, amount domain.Money) (payrail.Receipt, error) {
	if amount <= 0 {
		return payrail.Receipt{}, payrail.ErrInvalidAmount
	}

	keys := []string{walletKeyPrefix + credential, walletKeyPrefix + recipient}
	ok, err := transferScript.Run(ctx, s.client, keys, int64(amount)).Int()
	if err != nil {
		return payrail.Receipt{}, fmt.Errorf("%v: %w", err, payrail.ErrPayRailUnavailable)
	}
	if ok != 1 {
		return payrail.Receipt{}, payrail.ErrTransferRejected
	}

	return payrail.Receipt{
		TransactionRef: uuid.New().String(),
		Amount:         amount,
	}, nil
}

// Fund credits a wallet.
func (s *WalletStore) Fund(ctx context.Context, credential string, amount domain.Money) error {
	if amount <= 0 {
		return payrail.ErrInvalidAmount
	}
	return s.client.IncrBy(ctx, walletKeyPrefix+credential, int64(amount)).Err()
}
