package cache

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/lux-labs/balance-indexer/internal/balances"
)

type fakeResolver struct {
	calls   int
	balance balances.Balance
	err     error
}

func (f *fakeResolver) Resolve(_ context.Context, _ string, _ string) (balances.Balance, error) {
	f.calls++
	return f.balance, f.err
}

func TestGetOrResolve_GenesisShortCircuitsToZero(t *testing.T) {
	c, err := New(10)
	require.NoError(t, err)

	r := &fakeResolver{balance: mustBalance(t, "999", "0")}
	b, err := c.GetOrResolve(context.Background(), r, "alice.near", "")
	require.NoError(t, err)
	require.True(t, b.IsZero())
	require.Equal(t, 0, r.calls)
}

func TestGetOrResolve_CachesAfterFirstResolve(t *testing.T) {
	c, err := New(10)
	require.NoError(t, err)

	r := &fakeResolver{balance: mustBalance(t, "42", "0")}
	b1, err := c.GetOrResolve(context.Background(), r, "alice.near", "hash1")
	require.NoError(t, err)
	require.Equal(t, 1, r.calls)

	b2, err := c.GetOrResolve(context.Background(), r, "alice.near", "hash1")
	require.NoError(t, err)
	require.Equal(t, 1, r.calls, "second call must hit cache, not resolver")
	require.Equal(t, b1, b2)
}

func TestGetOrResolve_ErrorIsNotCached(t *testing.T) {
	c, err := New(10)
	require.NoError(t, err)

	r := &fakeResolver{err: errors.New("rpc down")}
	_, err = c.GetOrResolve(context.Background(), r, "alice.near", "hash1")
	require.Error(t, err)

	_, ok := c.lockedGet("alice.near")
	require.False(t, ok)
}

func TestSetOverridesCache(t *testing.T) {
	c, err := New(10)
	require.NoError(t, err)

	c.Set("alice.near", mustBalance(t, "1", "1"))
	r := &fakeResolver{balance: mustBalance(t, "999", "999")}
	b, err := c.GetOrResolve(context.Background(), r, "alice.near", "hash1")
	require.NoError(t, err)
	require.Equal(t, 0, r.calls)
	require.Equal(t, mustBalance(t, "1", "1"), b)
}

func TestGetOrResolve_CountsHitsAndMisses(t *testing.T) {
	c, err := New(10)
	require.NoError(t, err)
	hits := prometheus.NewCounter(prometheus.CounterOpts{Name: "hits"})
	misses := prometheus.NewCounter(prometheus.CounterOpts{Name: "misses"})
	c.WithMetrics(hits, misses)

	r := &fakeResolver{balance: mustBalance(t, "1", "0")}
	_, err = c.GetOrResolve(context.Background(), r, "alice.near", "hash1")
	require.NoError(t, err)
	require.Equal(t, float64(1), testutil.ToFloat64(misses))
	require.Equal(t, float64(0), testutil.ToFloat64(hits))

	_, err = c.GetOrResolve(context.Background(), r, "alice.near", "hash1")
	require.NoError(t, err)
	require.Equal(t, float64(1), testutil.ToFloat64(hits))
	require.Equal(t, float64(1), testutil.ToFloat64(misses))
}

func TestGetOrResolve_GenesisShortCircuitCountsAsHit(t *testing.T) {
	c, err := New(10)
	require.NoError(t, err)
	hits := prometheus.NewCounter(prometheus.CounterOpts{Name: "hits"})
	misses := prometheus.NewCounter(prometheus.CounterOpts{Name: "misses"})
	c.WithMetrics(hits, misses)

	r := &fakeResolver{}
	_, err = c.GetOrResolve(context.Background(), r, "alice.near", "")
	require.NoError(t, err)
	require.Equal(t, float64(1), testutil.ToFloat64(hits))
	require.Equal(t, float64(0), testutil.ToFloat64(misses))
}

func mustBalance(t *testing.T, liquid, locked string) balances.Balance {
	t.Helper()
	b, err := balances.New(liquid, locked)
	require.NoError(t, err)
	return b
}
