// Package derive implements the three per-cause row derivers
// (validators, transactions, receipts) described in spec.md §4.D-F.
package derive

import (
	"context"
	"math/big"

	"github.com/lux-labs/balance-indexer/internal/balances"
	"github.com/lux-labs/balance-indexer/internal/cache"
)

// Direction is the "from/to" side of a BalanceChange row.
type Direction string

const (
	DirectionFromAffected Direction = "ACTION_FROM_AFFECTED_ACCOUNT"
	DirectionToAffected   Direction = "ACTION_TO_AFFECTED_ACCOUNT"
)

// Cause is the row's attribution, matching spec.md §3.
type Cause string

const (
	CauseValidatorsUpdate     Cause = "VALIDATORS_UPDATE"
	CauseTransactionProcessing Cause = "TRANSACTION_PROCESSING"
	CauseReceiptProcessing    Cause = "RECEIPT_PROCESSING"
	CauseReward               Cause = "REWARD"
)

// Row is one emitted balance-change record. IndexInChunk is left at its
// zero value until ChunkPipeline assigns it after concatenation
// (spec.md §4.G).
type Row struct {
	BlockTimestamp uint64

	ReceiptID       string // empty unless Cause != VALIDATORS_UPDATE and this row came from a receipt
	TransactionHash string // empty unless Cause != VALIDATORS_UPDATE and this row came from a transaction

	AffectedAccountID string
	InvolvedAccountID string // empty when there is no counterparty (e.g. "system")

	Direction Direction
	Cause     Cause

	DeltaLiquid    *big.Int
	DeltaLocked    *big.Int
	AbsoluteLiquid *big.Int
	AbsoluteLocked *big.Int

	ShardID      uint64
	IndexInChunk int
}

// resolverCache is the narrow surface the derivers need from
// internal/cache.BalanceCache plus a resolver, bundled so each deriver
// constructor takes one argument instead of two.
type resolverCache struct {
	cache    *cache.BalanceCache
	resolver cache.Resolver
}

func newResolverCache(c *cache.BalanceCache, r cache.Resolver) resolverCache {
	return resolverCache{cache: c, resolver: r}
}

func (rc resolverCache) getOrResolve(ctx context.Context, account, prevBlockHash string) (balances.Balance, error) {
	return rc.cache.GetOrResolve(ctx, rc.resolver, account, prevBlockHash)
}

func (rc resolverCache) set(account string, b balances.Balance) {
	rc.cache.Set(account, b)
}

func mutationRow(ts uint64, shardID uint64, affected, involved string, dir Direction, cause Cause, prev, next balances.Balance) Row {
	delta := balances.Sub(next, prev)
	return Row{
		BlockTimestamp:    ts,
		AffectedAccountID: affected,
		InvolvedAccountID: involved,
		Direction:         dir,
		Cause:             cause,
		DeltaLiquid:       delta.Liquid,
		DeltaLocked:       delta.Locked,
		AbsoluteLiquid:    next.Liquid.ToBig(),
		AbsoluteLocked:    next.Locked.ToBig(),
		ShardID:           shardID,
	}
}

func mirrorRow(ts uint64, shardID uint64, affected, involved string, dir Direction, cause Cause, current balances.Balance) Row {
	zero := balances.ZeroDelta()
	return Row{
		BlockTimestamp:    ts,
		AffectedAccountID: affected,
		InvolvedAccountID: involved,
		Direction:         dir,
		Cause:             cause,
		DeltaLiquid:       zero.Liquid,
		DeltaLocked:       zero.Locked,
		AbsoluteLiquid:    current.Liquid.ToBig(),
		AbsoluteLocked:    current.Locked.ToBig(),
		ShardID:           shardID,
	}
}
