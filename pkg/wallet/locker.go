package wallet

import (
	"context"
	"sort"
	"sync"
)

// Locker serializes access to a set of wallets. Implementations must acquire
// in ascending wallet id order so overlapping requests cannot deadlock.
type Locker interface {
	Lock(ctx context.Context, walletIDs ...string) (func(), error)
}

// KeyedLocker is an in-process Locker with one mutex per wallet id.
type KeyedLocker struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	token   chan struct{}
	holders int
}

// NewKeyedLocker returns an empty in-process locker.
func NewKeyedLocker() *KeyedLocker {
	return &KeyedLocker{locks: make(map[string]*keyedLock)}
}

// Lock acquires every wallet id in ascending order. On failure nothing stays held.
func (locker *KeyedLocker) Lock(ctx context.Context, walletIDs ...string) (func(), error) {
	ordered := OrderedWalletIDs(walletIDs...)
	acquired := make([]string, 0, len(ordered))
	for _, walletID := range ordered {
		if err := locker.acquire(ctx, walletID); err != nil {
			locker.releaseAll(acquired)
			return nil, err
		}
		acquired = append(acquired, walletID)
	}
	var once sync.Once
	return func() {
		once.Do(func() { locker.releaseAll(acquired) })
	}, nil
}

func (locker *KeyedLocker) acquire(ctx context.Context, walletID string) error {
	locker.mu.Lock()
	entry, ok := locker.locks[walletID]
	if !ok {
		entry = &keyedLock{token: make(chan struct{}, 1)}
		locker.locks[walletID] = entry
	}
	entry.holders++
	locker.mu.Unlock()

	select {
	case entry.token <- struct{}{}:
		return nil
	case <-ctx.Done():
		locker.forget(walletID, entry)
		return ctx.Err()
	}
}

func (locker *KeyedLocker) releaseAll(walletIDs []string) {
	for index := len(walletIDs) - 1; index >= 0; index-- {
		walletID := walletIDs[index]
		locker.mu.Lock()
		entry := locker.locks[walletID]
		locker.mu.Unlock()
		if entry == nil {
			continue
		}
		<-entry.token
		locker.forget(walletID, entry)
	}
}

func (locker *KeyedLocker) forget(walletID string, entry *keyedLock) {
	locker.mu.Lock()
	defer locker.mu.Unlock()
	entry.holders--
	if entry.holders == 0 {
		delete(locker.locks, walletID)
	}
}

// OrderedWalletIDs returns the distinct non-empty ids in ascending order.
func OrderedWalletIDs(walletIDs ...string) []string {
	seen := make(map[string]struct{}, len(walletIDs))
	ordered := make([]string, 0, len(walletIDs))
	for _, walletID := range walletIDs {
		if walletID == "" {
			continue
		}
		if _, duplicate := seen[walletID]; duplicate {
			continue
		}
		seen[walletID] = struct{}{}
		ordered = append(ordered, walletID)
	}
	sort.Strings(ordered)
	return ordered
}
