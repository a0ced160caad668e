// Package rpcresolver adapts internal/nearclient into the
// internal/cache.Resolver interface, classifying RPC errors per
// spec.md §4.B.
package rpcresolver

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/lux-labs/balance-indexer/internal/balances"
	"github.com/lux-labs/balance-indexer/internal/nearclient"
)

// ViewAccounter is the subset of nearclient.Client that Resolver needs;
// narrowed to an interface so tests can substitute a fake.
type ViewAccounter interface {
	ViewAccount(ctx context.Context, account, blockHash string) (liquid, locked string, err error)
}

// RpcError wraps a non-UnknownAccount error from the archival RPC. It is
// retryable at a higher layer (internal/retrydo); the resolver itself
// never retries.
type RpcError struct {
	Account string
	Err     error
}

func (e *RpcError) Error() string {
	return fmt.Sprintf("rpcresolver: view_account(%s): %v", e.Account, e.Err)
}

func (e *RpcError) Unwrap() error { return e.Err }

// Resolver implements internal/cache.Resolver.
type Resolver struct {
	client ViewAccounter

	calls  prometheus.Counter
	errors prometheus.Counter
}

// New builds a Resolver over the given view_account transport.
func New(client ViewAccounter) *Resolver {
	return &Resolver{client: client}
}

// WithMetrics attaches call/error counters, incremented from Resolve.
// Either argument may be nil to leave that counter unwired.
func (r *Resolver) WithMetrics(calls, errs prometheus.Counter) *Resolver {
	r.calls = calls
	r.errors = errs
	return r
}

// Resolve fetches an account's balance at prevBlockHash. An unknown
// account is folded into Balance{0,0}; any other error is wrapped in
// RpcError and propagated.
func (r *Resolver) Resolve(ctx context.Context, account string, prevBlockHash string) (balances.Balance, error) {
	if r.calls != nil {
		r.calls.Inc()
	}
	liquid, locked, err := r.client.ViewAccount(ctx, account, prevBlockHash)
	if err != nil {
		if errors.Is(err, nearclient.ErrUnknownAccount) {
			return balances.Zero(), nil
		}
		if r.errors != nil {
			r.errors.Inc()
		}
		return balances.Balance{}, &RpcError{Account: account, Err: err}
	}
	return balances.New(liquid, locked)
}
