package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"busfare/internal/lock"
)

// releaseScript deletes the lock only if it is still owned by the caller.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// LockStore handles distributed per-account locking in Redis.
type LockStore struct {
	client *redis.Client
	ttl    time.Duration
	retry  time.Duration
}

// NewLockStore creates a new LockStore. ttl bounds how long a crashed holder
// can block an account.
func NewLockStore(client *redis.Client, ttl time.Duration) *LockStore {
	return &LockStore{client: client, ttl: ttl, retry: 25 * time.Millisecond}
}

// AcquireAccountLock attempts to acquire the lock once.
// Returns the owner token and true if the lock was acquired.
func (s *LockStore) AcquireAccountLock(ctx context.Context, accountID string) (string, bool, error) {
	token := uuid.New().String()

	ok, err := s.client.SetNX(ctx, accountLockKey(accountID), token, s.ttl).Result()
	if err != nil {
		return "", false, err
	}

	return token, ok, nil
}

// ReleaseAccountLock releases the lock if token still owns it.
func (s *LockStore) ReleaseAccountLock(ctx context.Context, accountID, token string) error {
	return releaseScript.Run(ctx, s.client, []string{accountLockKey(accountID)}, token).Err()
}

// Lock retries until the account lock is acquired or ctx is done.
func (s *LockStore) Lock(ctx context.Context, accountID string) (func(), error) {
	ticker := time.NewTicker(s.retry)
	defer ticker.Stop()

	for {
		token, ok, err := s.AcquireAccountLock(ctx, accountID)
		if err != nil {
			return nil, fmt.Errorf("acquire account lock: %w", err)
		}
		if ok {
			return func() {
				// Release on a fresh context so a cancelled request still frees the lock.
				releaseCtx, cancel := context.WithTimeout(context.Background(), time.Second)
				defer cancel()
				_ = s.ReleaseAccountLock(releaseCtx, accountID, token)
			}, nil
		}

		select {
		case <-ctx.Done():
			return nil, lock.ErrBusy
		case <-ticker.C:
		}
	}
}

func accountLockKey(accountID string) string {
	return fmt.Sprintf("lock:account:%s", accountID)
}
