// Package cache implements the process-wide BalanceCache: a bounded,
// size-limited account -> balance mapping with RPC fallback on miss.
package cache

import (
	"context"
	"sync"

	lru "github.com/hashicorp/golang-lru"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/lux-labs/balance-indexer/internal/balances"
)

// DefaultCapacity is the default number of accounts the cache holds
// before evicting the least-recently-used entry, per spec.md §4.A.
const DefaultCapacity = 100_000

// Resolver fetches an account's balance at a given previous block hash
// when the cache misses. internal/rpcresolver implements this.
type Resolver interface {
	Resolve(ctx context.Context, account string, prevBlockHash string) (balances.Balance, error)
}

// BalanceCache is the shared, concurrent-safe balance cache described in
// spec.md §4.A. All reads and writes are serialized under a single
// mutex; the mutex is released for the duration of any RPC call so that
// the critical section never spans network I/O (spec.md §4.A/§5).
type BalanceCache struct {
	mu    sync.Mutex
	inner *lru.Cache

	hits   prometheus.Counter
	misses prometheus.Counter
}

// WithMetrics attaches hit/miss counters, incremented from GetOrResolve.
// Either argument may be nil to leave that counter unwired.
func (c *BalanceCache) WithMetrics(hits, misses prometheus.Counter) *BalanceCache {
	c.hits = hits
	c.misses = misses
	return c
}

// New builds a BalanceCache with the given capacity. Capacity <= 0 falls
// back to DefaultCapacity.
func New(capacity int) (*BalanceCache, error) {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	inner, err := lru.New(capacity)
	if err != nil {
		return nil, err
	}
	return &BalanceCache{inner: inner}, nil
}

// GetOrResolve returns the cached balance for account, resolving via
// resolver on a miss. A genesis-adjacent block (empty prevBlockHash)
// short-circuits straight to the zero balance without consulting the
// resolver, per spec.md §9's resolution of that open question.
//
// On an RPC error other than "unknown account" (which the resolver
// already folds into a Balance{0,0} result), the error is returned
// without being cached — only successful resolutions are inserted.
func (c *BalanceCache) GetOrResolve(ctx context.Context, resolver Resolver, account, prevBlockHash string) (balances.Balance, error) {
	if v, ok := c.lockedGet(account); ok {
		c.inc(c.hits)
		return v, nil
	}

	if prevBlockHash == "" {
		c.inc(c.hits)
		z := balances.Zero()
		c.Set(account, z)
		return z, nil
	}

	c.inc(c.misses)
	resolved, err := resolver.Resolve(ctx, account, prevBlockHash)
	if err != nil {
		return balances.Balance{}, err
	}
	c.Set(account, resolved)
	return resolved, nil
}

func (c *BalanceCache) inc(counter prometheus.Counter) {
	if counter != nil {
		counter.Inc()
	}
}

// Set unconditionally inserts or updates an account's cached balance.
func (c *BalanceCache) Set(account string, balance balances.Balance) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inner.Add(account, balance)
}

func (c *BalanceCache) lockedGet(account string) (balances.Balance, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.inner.Get(account)
	if !ok {
		return balances.Balance{}, false
	}
	return v.(balances.Balance), true
}

// Len reports the current number of cached accounts; exposed for metrics.
func (c *BalanceCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inner.Len()
}
