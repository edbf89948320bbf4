package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"busfare/internal/domain"
)

// BalanceCacheTTL keeps displayed balances fresh enough for a status screen.
const BalanceCacheTTL = 5 * time.Second

const balanceCachePrefix = "cache:balance:"

// CacheStore caches point-in-time wallet balances for display.
// Settlement never reads from it.
type CacheStore struct {
	client *redis.Client
}

// NewCacheStore creates a new CacheStore.
func NewCacheStore(client *redis.Client) *CacheStore {
	return &CacheStore{client: client}
}

// GetBalance returns a cached balance and whether it was present.
func (s *CacheStore) GetBalance(ctx context.Context, accountID string) (domain.Money, bool, error) {
	v, err := s.client.Get(ctx, balanceCachePrefix+accountID).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, false, nil // Cache miss
		}
		return 0, false, err
	}
	return domain.Money(v), true, nil
}

// SetBalance stores a balance snapshot.
func (s *CacheStore) SetBalance(ctx context.Context, accountID string, balance domain.Money) error {
	return s.client.Set(ctx, balanceCachePrefix+accountID, int64(balance), BalanceCacheTTL).Err()
}

// InvalidateBalance drops the cached balance after money moved.
func (s *CacheStore) InvalidateBalance(ctx context.Context, accountID string) error {
	return s.client.Del(ctx, balanceCachePrefix+accountID).Err()
}
