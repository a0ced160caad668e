package derive

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lux-labs/balance-indexer/internal/balances"
	"github.com/lux-labs/balance-indexer/internal/cache"
	"github.com/lux-labs/balance-indexer/internal/chain"
	"github.com/lux-labs/balance-indexer/internal/classify"
)

// fakeResolver returns canned balances for RPC-fallback misses, mimicking
// scenarios from spec.md §8.
type fakeResolver struct {
	balances map[string]balances.Balance
}

func (f *fakeResolver) Resolve(_ context.Context, account, _ string) (balances.Balance, error) {
	if b, ok := f.balances[account]; ok {
		return b, nil
	}
	return balances.Zero(), nil // unknown account => (0, 0)
}

func mustBalance(t *testing.T, liquid, locked string) balances.Balance {
	t.Helper()
	b, err := balances.New(liquid, locked)
	require.NoError(t, err)
	return b
}

// Scenario 1 from spec.md §8: validator update only.
func TestValidatorDeriver_Scenario1(t *testing.T) {
	c, err := cache.New(10)
	require.NoError(t, err)
	resolver := &fakeResolver{balances: map[string]balances.Balance{
		"alice": mustBalance(t, "900", "500"),
	}}
	d := NewValidatorDeriver(c, resolver)

	rows, err := d.Derive(context.Background(), 111, 0, "prevhash", []classify.AccountBalance{
		{Account: "alice", Balance: mustBalance(t, "1000", "500")},
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)

	r := rows[0]
	require.Equal(t, "alice", r.AffectedAccountID)
	require.Equal(t, CauseValidatorsUpdate, r.Cause)
	require.Equal(t, DirectionToAffected, r.Direction)
	require.Equal(t, "100", r.DeltaLiquid.String())
	require.Equal(t, "0", r.DeltaLocked.String())
	require.Equal(t, "1000", r.AbsoluteLiquid.String())
	require.Equal(t, "500", r.AbsoluteLocked.String())
	require.Empty(t, r.ReceiptID)
	require.Empty(t, r.TransactionHash)
	require.Empty(t, r.InvolvedAccountID)
}

// Scenario 2 from spec.md §8: simple transfer transaction.
func TestTransactionDeriver_Scenario2(t *testing.T) {
	c, err := cache.New(10)
	require.NoError(t, err)
	resolver := &fakeResolver{balances: map[string]balances.Balance{
		"alice": mustBalance(t, "1000", "0"),
		"bob":   mustBalance(t, "50", "0"),
	}}
	d := NewTransactionDeriver(c, resolver)

	bucket := map[string]classify.AccountBalance{
		"0xT1": {Account: "alice", Balance: mustBalance(t, "950", "0")},
	}
	txs := []chain.Transaction{{Hash: "0xT1", SignerID: "alice", ReceiverID: "bob"}}

	rows, err := d.Derive(context.Background(), 222, 0, "prevhash", txs, bucket)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Empty(t, bucket)

	signerRow := rows[0]
	require.Equal(t, "alice", signerRow.AffectedAccountID)
	require.Equal(t, "bob", signerRow.InvolvedAccountID)
	require.Equal(t, DirectionFromAffected, signerRow.Direction)
	require.Equal(t, "-50", signerRow.DeltaLiquid.String())
	require.Equal(t, "0xT1", signerRow.TransactionHash)

	mirror := rows[1]
	require.Equal(t, "bob", mirror.AffectedAccountID)
	require.Equal(t, "alice", mirror.InvolvedAccountID)
	require.Equal(t, DirectionToAffected, mirror.Direction)
	require.Equal(t, "0", mirror.DeltaLiquid.String())
	require.Equal(t, "0", mirror.DeltaLocked.String())
	require.Equal(t, "50", mirror.AbsoluteLiquid.String())
	require.Equal(t, "0xT1", mirror.TransactionHash)
}

func TestTransactionDeriver_ReceiverSystemHasNoMirrorOrInvolved(t *testing.T) {
	c, err := cache.New(10)
	require.NoError(t, err)
	resolver := &fakeResolver{balances: map[string]balances.Balance{
		"alice": mustBalance(t, "1000", "0"),
	}}
	d := NewTransactionDeriver(c, resolver)

	bucket := map[string]classify.AccountBalance{
		"0xT2": {Account: "alice", Balance: mustBalance(t, "900", "0")},
	}
	txs := []chain.Transaction{{Hash: "0xT2", SignerID: "alice", ReceiverID: "system"}}

	rows, err := d.Derive(context.Background(), 333, 0, "prevhash", txs, bucket)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Empty(t, rows[0].InvolvedAccountID)
}

func TestTransactionDeriver_MissingBucketEntryIsFatal(t *testing.T) {
	c, err := cache.New(10)
	require.NoError(t, err)
	d := NewTransactionDeriver(c, &fakeResolver{})

	txs := []chain.Transaction{{Hash: "0xMissing", SignerID: "alice", ReceiverID: "bob"}}
	_, err = d.Derive(context.Background(), 1, 0, "prevhash", txs, map[string]classify.AccountBalance{})
	require.Error(t, err)
	var fatal *FatalError
	require.ErrorAs(t, err, &fatal)
}

func TestTransactionDeriver_LeftoverBucketEntryIsFatal(t *testing.T) {
	c, err := cache.New(10)
	require.NoError(t, err)
	resolver := &fakeResolver{balances: map[string]balances.Balance{"alice": mustBalance(t, "1000", "0")}}
	d := NewTransactionDeriver(c, resolver)

	bucket := map[string]classify.AccountBalance{
		"0xT1": {Account: "alice", Balance: mustBalance(t, "900", "0")},
		"0xT2": {Account: "carol", Balance: mustBalance(t, "1", "0")},
	}
	txs := []chain.Transaction{{Hash: "0xT1", SignerID: "alice", ReceiverID: "system"}}

	_, err = d.Derive(context.Background(), 1, 0, "prevhash", txs, bucket)
	require.Error(t, err)
}

// Scenario 3 from spec.md §8: receipt with gas reward.
func TestReceiptDeriver_Scenario3(t *testing.T) {
	c, err := cache.New(10)
	require.NoError(t, err)
	resolver := &fakeResolver{balances: map[string]balances.Balance{
		"alice":             mustBalance(t, "950", "0"),
		"validators.poolv1": mustBalance(t, "0", "500"),
		"bob":               mustBalance(t, "50", "0"),
	}}
	d := NewReceiptDeriver(c, resolver)

	receipts := map[string]classify.AccountBalance{
		"0xR1": {Account: "alice", Balance: mustBalance(t, "940", "0")},
	}
	rewards := map[string]classify.AccountBalance{
		"0xR1": {Account: "validators.poolv1", Balance: mustBalance(t, "10", "500")},
	}
	outcomes := []chain.ReceiptExecutionOutcome{
		{ReceiptID: "0xR1", PredecessorID: "alice", ReceiverID: "bob"},
	}

	rows, err := d.Derive(context.Background(), 444, 0, "prevhash", outcomes, receipts, rewards)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	require.Empty(t, receipts)
	require.Empty(t, rewards)

	alice := rows[0]
	require.Equal(t, "alice", alice.AffectedAccountID)
	require.Equal(t, "bob", alice.InvolvedAccountID)
	require.Equal(t, CauseReceiptProcessing, alice.Cause)
	require.Equal(t, DirectionFromAffected, alice.Direction)
	require.Equal(t, "-10", alice.DeltaLiquid.String())
	require.Equal(t, "0xR1", alice.ReceiptID)

	pool := rows[1]
	require.Equal(t, "validators.poolv1", pool.AffectedAccountID)
	require.Equal(t, "alice", pool.InvolvedAccountID)
	require.Equal(t, CauseReward, pool.Cause)
	require.Equal(t, DirectionToAffected, pool.Direction)
	require.Equal(t, "10", pool.DeltaLiquid.String())
	require.Equal(t, "0xR1", pool.ReceiptID)

	bob := rows[2]
	require.Equal(t, "bob", bob.AffectedAccountID)
	require.Equal(t, "alice", bob.InvolvedAccountID)
	require.Equal(t, CauseReceiptProcessing, bob.Cause)
	require.Equal(t, "0", bob.DeltaLiquid.String())
	require.Equal(t, "50", bob.AbsoluteLiquid.String())
	require.Equal(t, "0xR1", bob.ReceiptID)
}

// Scenario 4 from spec.md §8: unknown account on cache miss.
func TestReceiptDeriver_UnknownAccountIsZero(t *testing.T) {
	c, err := cache.New(10)
	require.NoError(t, err)
	resolver := &fakeResolver{balances: map[string]balances.Balance{}} // carol unknown
	d := NewReceiptDeriver(c, resolver)

	receipts := map[string]classify.AccountBalance{
		"0xR2": {Account: "dave", Balance: mustBalance(t, "5", "0")},
	}
	outcomes := []chain.ReceiptExecutionOutcome{
		{ReceiptID: "0xR2", PredecessorID: "dave", ReceiverID: "carol"},
	}

	rows, err := d.Derive(context.Background(), 555, 0, "prevhash", outcomes, receipts, map[string]classify.AccountBalance{})
	require.NoError(t, err)
	require.Len(t, rows, 2)

	predecessorRow := rows[0]
	require.Equal(t, "5", predecessorRow.DeltaLiquid.String())
	require.Equal(t, "5", predecessorRow.AbsoluteLiquid.String())

	mirror := rows[1]
	require.Equal(t, "carol", mirror.AffectedAccountID)
	require.Equal(t, "0", mirror.AbsoluteLiquid.String())
}
