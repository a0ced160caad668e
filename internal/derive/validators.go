package derive

import (
	"context"

	"github.com/lux-labs/balance-indexer/internal/cache"
	"github.com/lux-labs/balance-indexer/internal/classify"
)

// ValidatorDeriver emits one row per validator-accounts-update entry,
// per spec.md §4.D.
type ValidatorDeriver struct {
	rc resolverCache
}

// NewValidatorDeriver builds a deriver backed by the given shared cache
// and resolver.
func NewValidatorDeriver(c *cache.BalanceCache, r cache.Resolver) *ValidatorDeriver {
	return &ValidatorDeriver{rc: newResolverCache(c, r)}
}

// Derive consumes the validators bucket and returns one row per entry,
// in input order.
func (d *ValidatorDeriver) Derive(ctx context.Context, blockTimestamp uint64, shardID uint64, prevBlockHash string, validators []classify.AccountBalance) ([]Row, error) {
	rows := make([]Row, 0, len(validators))
	for _, v := range validators {
		prev, err := d.rc.getOrResolve(ctx, v.Account, prevBlockHash)
		if err != nil {
			return nil, err
		}

		row := mutationRow(blockTimestamp, shardID, v.Account, "", DirectionToAffected, CauseValidatorsUpdate, prev, v.Balance)
		d.rc.set(v.Account, v.Balance)
		rows = append(rows, row)
	}
	return rows, nil
}
