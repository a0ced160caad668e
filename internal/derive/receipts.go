package derive

import (
	"context"
	"fmt"

	"github.com/lux-labs/balance-indexer/internal/cache"
	"github.com/lux-labs/balance-indexer/internal/chain"
	"github.com/lux-labs/balance-indexer/internal/classify"
)

// ReceiptDeriver emits predecessor + optional reward + optional mirror
// rows for each receipt execution outcome, per spec.md §4.F.
type ReceiptDeriver struct {
	rc resolverCache
}

// NewReceiptDeriver builds a deriver backed by the given shared cache
// and resolver.
func NewReceiptDeriver(c *cache.BalanceCache, r cache.Resolver) *ReceiptDeriver {
	return &ReceiptDeriver{rc: newResolverCache(c, r)}
}

// Derive consumes matching entries out of receipts and, optionally,
// rewards for each outcome in outcomes, in order. Both buckets must be
// empty after the call returns successfully.
func (d *ReceiptDeriver) Derive(
	ctx context.Context,
	blockTimestamp uint64,
	shardID uint64,
	prevBlockHash string,
	outcomes []chain.ReceiptExecutionOutcome,
	receipts map[string]classify.AccountBalance,
	rewards map[string]classify.AccountBalance,
) ([]Row, error) {
	rows := make([]Row, 0, 3*len(outcomes))

	for _, outcome := range outcomes {
		predecessor := outcome.PredecessorID
		receiver := outcome.ReceiverID

		entry, ok := receipts[outcome.ReceiptID]
		if !ok {
			return nil, &FatalError{Reason: fmt.Sprintf("no state change recorded for receipt %s", outcome.ReceiptID)}
		}
		delete(receipts, outcome.ReceiptID)

		if entry.Account != predecessor {
			return nil, &FatalError{Reason: fmt.Sprintf("receipt %s: bucket account %s does not match predecessor %s", outcome.ReceiptID, entry.Account, predecessor)}
		}

		prev, err := d.rc.getOrResolve(ctx, predecessor, prevBlockHash)
		if err != nil {
			return nil, err
		}

		// As with transactions, the "system" check applies only to the
		// receiver, never to the predecessor (spec.md §9).
		involved := receiver
		if receiver == chain.SystemAccount {
			involved = ""
		}

		predecessorRow := mutationRow(blockTimestamp, shardID, predecessor, involved, DirectionFromAffected, CauseReceiptProcessing, prev, entry.Balance)
		predecessorRow.ReceiptID = outcome.ReceiptID
		d.rc.set(predecessor, entry.Balance)
		rows = append(rows, predecessorRow)

		if reward, ok := rewards[outcome.ReceiptID]; ok {
			delete(rewards, outcome.ReceiptID)

			rewardPrev, err := d.rc.getOrResolve(ctx, reward.Account, prevBlockHash)
			if err != nil {
				return nil, err
			}
			rewardRow := mutationRow(blockTimestamp, shardID, reward.Account, predecessor, DirectionToAffected, CauseReward, rewardPrev, reward.Balance)
			rewardRow.ReceiptID = outcome.ReceiptID
			d.rc.set(reward.Account, reward.Balance)
			rows = append(rows, rewardRow)
		}

		if receiver != chain.SystemAccount {
			receiverBalance, err := d.rc.getOrResolve(ctx, receiver, prevBlockHash)
			if err != nil {
				return nil, err
			}
			mirror := mirrorRow(blockTimestamp, shardID, receiver, predecessor, DirectionToAffected, CauseReceiptProcessing, receiverBalance)
			mirror.ReceiptID = outcome.ReceiptID
			rows = append(rows, mirror)
			// No reverse mirror for rewards: a reward's counterparty is
			// already recorded by the predecessor row above.
		}
	}

	if len(receipts) != 0 {
		return nil, &FatalError{Reason: fmt.Sprintf("%d receipt state changes were never consumed", len(receipts))}
	}
	if len(rewards) != 0 {
		return nil, &FatalError{Reason: fmt.Sprintf("%d reward state changes were never consumed", len(rewards))}
	}

	return rows, nil
}
