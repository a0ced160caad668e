package derive

import (
	"context"
	"fmt"

	"github.com/lux-labs/balance-indexer/internal/cache"
	"github.com/lux-labs/balance-indexer/internal/chain"
	"github.com/lux-labs/balance-indexer/internal/classify"
)

// FatalError marks a derivation invariant violation: a missing bucket
// entry, a signer/account mismatch, or a non-empty residual bucket
// after the loop. These abort the block (spec.md §7).
type FatalError struct {
	Reason string
}

func (e *FatalError) Error() string { return "derive: " + e.Reason }

// TransactionDeriver emits signer + optional mirror rows for each
// chunk-included transaction, per spec.md §4.E.
type TransactionDeriver struct {
	rc resolverCache
}

// NewTransactionDeriver builds a deriver backed by the given shared
// cache and resolver.
func NewTransactionDeriver(c *cache.BalanceCache, r cache.Resolver) *TransactionDeriver {
	return &TransactionDeriver{rc: newResolverCache(c, r)}
}

// Derive consumes matching entries out of bucket (the Transactions
// classification bucket) for each transaction in txs, in order. bucket
// must be empty after the call returns successfully; a leftover entry is a fatal
// classification/derivation mismatch.
func (d *TransactionDeriver) Derive(ctx context.Context, blockTimestamp uint64, shardID uint64, prevBlockHash string, txs []chain.Transaction, bucket map[string]classify.AccountBalance) ([]Row, error) {
	rows := make([]Row, 0, 2*len(txs))

	for _, tx := range txs {
		signer := tx.SignerID
		receiver := tx.ReceiverID

		entry, ok := bucket[tx.Hash]
		if !ok {
			return nil, &FatalError{Reason: fmt.Sprintf("no state change recorded for transaction %s", tx.Hash)}
		}
		delete(bucket, tx.Hash)

		if entry.Account != signer {
			return nil, &FatalError{Reason: fmt.Sprintf("transaction %s: bucket account %s does not match signer %s", tx.Hash, entry.Account, signer)}
		}

		prev, err := d.rc.getOrResolve(ctx, signer, prevBlockHash)
		if err != nil {
			return nil, err
		}

		// The "system" check applies only to the receiver, never to the
		// signer; this asymmetry is intentional (spec.md §9).
		involved := receiver
		if receiver == chain.SystemAccount {
			involved = ""
		}

		signerRow := mutationRow(blockTimestamp, shardID, signer, involved, DirectionFromAffected, CauseTransactionProcessing, prev, entry.Balance)
		signerRow.TransactionHash = tx.Hash
		d.rc.set(signer, entry.Balance)
		rows = append(rows, signerRow)

		if receiver != chain.SystemAccount {
			receiverBalance, err := d.rc.getOrResolve(ctx, receiver, prevBlockHash)
			if err != nil {
				return nil, err
			}
			mirror := mirrorRow(blockTimestamp, shardID, receiver, signer, DirectionToAffected, CauseTransactionProcessing, receiverBalance)
			mirror.TransactionHash = tx.Hash
			rows = append(rows, mirror)
		}
	}

	if len(bucket) != 0 {
		return nil, &FatalError{Reason: fmt.Sprintf("%d transaction state changes were never consumed", len(bucket))}
	}

	return rows, nil
}
