package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/samber/lo"
	"golang.org/x/sync/semaphore"
)

// ProxyLocks serializes operations per proxy. Operations holding different keys
// run concurrently; a second operation on the same key waits until the first
// one has confirmed or failed. With a ProcessLock the keys are also held
// against other processes.
type ProxyLocks struct {
	mu      sync.Mutex
	locks   map[string]*semaphore.Weighted
	process ProcessLock
}

// NewProxyLocks creates an empty lock table. process may be nil.
func NewProxyLocks(process ProcessLock) *ProxyLocks {
	return &ProxyLocks{
		locks:   make(map[string]*semaphore.Weighted),
		process: process,
	}
}

// AddressKey is the lock key of a deployed proxy
func AddressKey(chainID uint64, addr common.Address) string {
	return fmt.Sprintf("%d/%s", chainID, strings.ToLower(addr.Hex()))
}

// NameKey is the lock key of a proxy identity, held while it is being deployed
func NameKey(chainID uint64, name string) string {
	return fmt.Sprintf("%d/name:%s", chainID, name)
}

func (l *ProxyLocks) get(key string) *semaphore.Weighted {
	l.mu.Lock()
	defer l.mu.Unlock()
	sem, ok := l.locks[key]
	if !ok {
		sem = semaphore.NewWeighted(1)
		l.locks[key] = sem
	}
	return sem
}

// Acquire blocks until all keys are held or ctx is done. Keys are taken in sorted
// order so callers locking overlapping sets cannot deadlock.
// The returned function releases them.
func (l *ProxyLocks) Acquire(ctx context.Context, keys ...string) (func(), error) {
	keys = lo.Uniq(keys)
	sort.Strings(keys)

	held := make([]func(), 0, 2*len(keys))
	release := func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i]()
		}
	}
	for _, key := range keys {
		sem := l.get(key)
		if err := sem.Acquire(ctx, 1); err != nil {
			release()
			return nil, fmt.Errorf("waiting for pending operation on %s: %w", key, err)
		}
		held = append(held, func() { sem.Release(1) })

		if l.process == nil {
			continue
		}
		unlock, err := l.process.Lock(ctx, key)
		if err != nil {
			release()
			return nil, fmt.Errorf("waiting for pending operation on %s: %w", key, err)
		}
		held = append(held, unlock)
	}
	return release, nil
}
