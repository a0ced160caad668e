// Package pipeline implements ChunkPipeline (per-shard derivation) and
// BlockPipeline (concurrent per-shard fan-out + persistence), spec.md
// §4.G-H.
package pipeline

import (
	"context"

	"github.com/lux-labs/balance-indexer/internal/cache"
	"github.com/lux-labs/balance-indexer/internal/chain"
	"github.com/lux-labs/balance-indexer/internal/classify"
	"github.com/lux-labs/balance-indexer/internal/derive"
)

// ChunkPipeline runs the sequential classify -> validators -> transactions
// -> receipts derivation for a single shard. The stage order is
// load-bearing (spec.md §4.G/§9): each stage's cache mutations are
// inputs to the next.
type ChunkPipeline struct {
	validators   *derive.ValidatorDeriver
	transactions *derive.TransactionDeriver
	receipts     *derive.ReceiptDeriver
}

// NewChunkPipeline builds a ChunkPipeline sharing one BalanceCache and
// resolver across all three derivers, as required for cache mutations
// in one stage to be visible to the next.
func NewChunkPipeline(c *cache.BalanceCache, r cache.Resolver) *ChunkPipeline {
	return &ChunkPipeline{
		validators:   derive.NewValidatorDeriver(c, r),
		transactions: derive.NewTransactionDeriver(c, r),
		receipts:     derive.NewReceiptDeriver(c, r),
	}
}

// Run classifies shard's state changes and derives the full ordered row
// set for it, with IndexInChunk assigned 0..N-1 over the concatenated
// output (spec.md §3 invariant 4, §4.G).
func (p *ChunkPipeline) Run(ctx context.Context, blockTimestamp uint64, prevBlockHash string, shard chain.Shard) ([]derive.Row, error) {
	buckets, err := classify.Classify(shard.StateChanges)
	if err != nil {
		return nil, err
	}

	var rows []derive.Row

	validatorRows, err := p.validators.Derive(ctx, blockTimestamp, shard.ShardID, prevBlockHash, buckets.Validators)
	if err != nil {
		return nil, err
	}
	rows = append(rows, validatorRows...)

	var txs []chain.Transaction
	if shard.Chunk != nil {
		txs = shard.Chunk.Transactions
	}
	txRows, err := p.transactions.Derive(ctx, blockTimestamp, shard.ShardID, prevBlockHash, txs, buckets.Transactions)
	if err != nil {
		return nil, err
	}
	rows = append(rows, txRows...)

	receiptRows, err := p.receipts.Derive(ctx, blockTimestamp, shard.ShardID, prevBlockHash, shard.ReceiptExecutionOutcomes, buckets.Receipts, buckets.Rewards)
	if err != nil {
		return nil, err
	}
	rows = append(rows, receiptRows...)

	for i := range rows {
		rows[i].IndexInChunk = i
	}

	return rows, nil
}
