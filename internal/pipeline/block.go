package pipeline

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/lux-labs/balance-indexer/internal/cache"
	"github.com/lux-labs/balance-indexer/internal/chain"
	"github.com/lux-labs/balance-indexer/internal/derive"
)

// Inserter is the persistence seam BlockPipeline writes through
// (internal/storage.Store implements it).
type Inserter interface {
	BatchInsert(ctx context.Context, rows []derive.Row) error
}

// BlockPipeline runs ChunkPipeline across a block's shards concurrently,
// flattens the results, and persists them. Per spec.md §4.H/§5, the
// cache handle is shared across shard goroutines and the first shard
// error aborts its siblings (errgroup's derived context cancellation).
type BlockPipeline struct {
	cache    *cache.BalanceCache
	resolver cache.Resolver
	store    Inserter
}

// NewBlockPipeline builds a BlockPipeline over the given shared cache,
// resolver, and persistence backend.
func NewBlockPipeline(c *cache.BalanceCache, r cache.Resolver, store Inserter) *BlockPipeline {
	return &BlockPipeline{cache: c, resolver: r, store: store}
}

// Run derives and persists every row for msg. It returns an error
// without attempting any insert if any shard's derivation fails
// (fail-fast, spec.md §4.H/§7: "no partial block is persisted").
func (bp *BlockPipeline) Run(ctx context.Context, msg *chain.StreamerMessage) error {
	// results is indexed by shard position, which already restores
	// deterministic ordering after the concurrent fan-out below.
	results := make([][]derive.Row, len(msg.Shards))

	g, gctx := errgroup.WithContext(ctx)
	for i, shard := range msg.Shards {
		i, shard := i, shard
		g.Go(func() error {
			cp := NewChunkPipeline(bp.cache, bp.resolver)
			rows, err := cp.Run(gctx, msg.Header.TimestampNanosec, msg.Header.PrevHash, shard)
			if err != nil {
				return fmt.Errorf("shard %d: %w", shard.ShardID, err)
			}
			results[i] = rows
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	var flattened []derive.Row
	for _, rows := range results {
		flattened = append(flattened, rows...)
	}

	if len(flattened) == 0 {
		return nil
	}
	return bp.store.BatchInsert(ctx, flattened)
}
