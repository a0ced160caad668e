// Package classify partitions a shard's state changes into the four
// cause-keyed buckets the derivers consume (spec.md §4.C).
package classify

import (
	"fmt"

	"github.com/lux-labs/balance-indexer/internal/balances"
	"github.com/lux-labs/balance-indexer/internal/chain"
)

// AccountBalance pairs an account with the balance a state change
// reported for it.
type AccountBalance struct {
	Account string
	Balance balances.Balance
}

// Buckets holds the four intra-shard classification results.
type Buckets struct {
	Validators   []AccountBalance
	Transactions map[string]AccountBalance // keyed by tx hash
	Receipts     map[string]AccountBalance // keyed by receipt hash
	Rewards      map[string]AccountBalance // keyed by receipt hash
}

func newBuckets() Buckets {
	return Buckets{
		Transactions: make(map[string]AccountBalance),
		Receipts:     make(map[string]AccountBalance),
		Rewards:      make(map[string]AccountBalance),
	}
}

// FatalError marks a classification invariant violation: an unexpected
// cause, or a duplicate transaction hash within one block. These are
// the Go analogue of the Rust original's panic!-on-surprise stance
// (spec.md §7/§9) — returned as errors so the caller can abort the
// block and the process cleanly instead of crashing the goroutine.
type FatalError struct {
	Reason string
}

func (e *FatalError) Error() string { return "classify: " + e.Reason }

// Classify builds the four buckets from a shard's ordered state changes.
func Classify(changes []chain.StateChangeWithCause) (Buckets, error) {
	b := newBuckets()

	for _, sc := range changes {
		var ab AccountBalance
		switch sc.ValueKind {
		case chain.ValueAccountUpdate:
			bal, err := balances.New(sc.AmountLiquid, sc.AmountLocked)
			if err != nil {
				return Buckets{}, fmt.Errorf("classify: decode balance for %s: %w", sc.AccountID, err)
			}
			ab = AccountBalance{Account: sc.AccountID, Balance: bal}
		case chain.ValueAccountDeletion:
			ab = AccountBalance{Account: sc.AccountID, Balance: balances.Zero()}
		default:
			// Other state-change values (access keys, contract code, data)
			// do not affect balances.
			continue
		}

		switch sc.Cause {
		case chain.CauseValidatorAccountsUpdate:
			b.Validators = append(b.Validators, ab)

		case chain.CauseTransactionProcessing:
			if _, exists := b.Transactions[sc.TxHash]; exists {
				return Buckets{}, &FatalError{Reason: fmt.Sprintf("duplicate transaction hash %s within block", sc.TxHash)}
			}
			b.Transactions[sc.TxHash] = ab

		case chain.CauseReceiptProcessing:
			b.Receipts[sc.ReceiptHash] = ab

		case chain.CauseActionReceiptGasReward:
			b.Rewards[sc.ReceiptHash] = ab

		case chain.CauseMigration:
			// Historical edge case (seen once, in block 44337060 on
			// mainnet); balance-neutral, so nothing to record.

		case chain.CauseNotWritableToDisk, chain.CauseInitialState,
			chain.CauseActionReceiptProcessingStarted, chain.CauseUpdatedDelayedReceipts,
			chain.CausePostponedReceipt, chain.CauseResharding:
			return Buckets{}, &FatalError{Reason: fmt.Sprintf("unexpected state change cause %v for account %s", sc.Cause, sc.AccountID)}

		default:
			return Buckets{}, &FatalError{Reason: fmt.Sprintf("unknown state change cause %v for account %s", sc.Cause, sc.AccountID)}
		}
	}

	return b, nil
}
