// Package lock serializes work per account.
package lock

import (
	"context"
	"errors"
	"sync"
)

// ErrBusy is returned when the account lock could not be taken before the
// context expired.
var ErrBusy = errors.New("account busy")

// Locker grants exclusive access to one account at a time.
// The returned unlock func must be called exactly once.
type Locker interface {
	Lock(ctx context.Context, accountID string) (unlock func(), err error)
}

// KeyedMutex is an in-process Locker. Entries are dropped when no one holds
// or waits for them, so memory stays proportional to concurrent accounts.
type KeyedMutex struct {
	mu    sync.Mutex
	slots map[string]*slot
}

type slot struct {
	ch   chan struct{}
	refs int
}

// NewKeyedMutex creates an empty KeyedMutex.
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{slots: make(map[string]*slot)}
}

// Lock blocks until the account is free or ctx is done.
func (k *KeyedMutex) Lock(ctx context.Context, accountID string) (func(), error) {
	k.mu.Lock()
	s, ok := k.slots[accountID]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		k.slots[accountID] = s
	}
	s.refs++
	k.mu.Unlock()

	select {
	case s.ch <- struct{}{}:
	case <-ctx.Done():
		k.release(accountID, s)
		return nil, ErrBusy
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-s.ch
			k.release(accountID, s)
		})
	}, nil
}

func (k *KeyedMutex) release(accountID string, s *slot) {
	k.mu.Lock()
	defer k.mu.Unlock()
	s.refs--
	if s.refs == 0 {
		delete(k.slots, accountID)
	}
}
