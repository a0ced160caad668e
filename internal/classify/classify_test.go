package classify

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lux-labs/balance-indexer/internal/chain"
)

func TestClassify_SplitsIntoFourBuckets(t *testing.T) {
	changes := []chain.StateChangeWithCause{
		{
			Cause:        chain.CauseValidatorAccountsUpdate,
			ValueKind:    chain.ValueAccountUpdate,
			AccountID:    "validator.near",
			AmountLiquid: "100",
			AmountLocked: "0",
		},
		{
			Cause:        chain.CauseTransactionProcessing,
			ValueKind:    chain.ValueAccountUpdate,
			AccountID:    "alice.near",
			TxHash:       "txA",
			AmountLiquid: "50",
			AmountLocked: "0",
		},
		{
			Cause:        chain.CauseReceiptProcessing,
			ValueKind:    chain.ValueAccountUpdate,
			AccountID:    "bob.near",
			ReceiptHash:  "rcptA",
			AmountLiquid: "20",
			AmountLocked: "0",
		},
		{
			Cause:        chain.CauseActionReceiptGasReward,
			ValueKind:    chain.ValueAccountUpdate,
			AccountID:    "validator.near",
			ReceiptHash:  "rcptA",
			AmountLiquid: "5",
			AmountLocked: "0",
		},
	}

	b, err := Classify(changes)
	require.NoError(t, err)
	require.Len(t, b.Validators, 1)
	require.Contains(t, b.Transactions, "txA")
	require.Contains(t, b.Receipts, "rcptA")
	require.Contains(t, b.Rewards, "rcptA")
}

func TestClassify_IgnoresNonBalanceValueKinds(t *testing.T) {
	changes := []chain.StateChangeWithCause{
		{Cause: chain.CauseTransactionProcessing, ValueKind: chain.ValueOther, TxHash: "txA"},
	}
	b, err := Classify(changes)
	require.NoError(t, err)
	require.Empty(t, b.Transactions)
}

func TestClassify_AccountDeletionIsZeroBalance(t *testing.T) {
	changes := []chain.StateChangeWithCause{
		{Cause: chain.CauseReceiptProcessing, ValueKind: chain.ValueAccountDeletion, AccountID: "gone.near", ReceiptHash: "r1"},
	}
	b, err := Classify(changes)
	require.NoError(t, err)
	require.True(t, b.Receipts["r1"].Balance.IsZero())
}

func TestClassify_DuplicateTransactionHashIsFatal(t *testing.T) {
	changes := []chain.StateChangeWithCause{
		{Cause: chain.CauseTransactionProcessing, ValueKind: chain.ValueAccountUpdate, AccountID: "a", TxHash: "dup", AmountLiquid: "1", AmountLocked: "0"},
		{Cause: chain.CauseTransactionProcessing, ValueKind: chain.ValueAccountUpdate, AccountID: "b", TxHash: "dup", AmountLiquid: "2", AmountLocked: "0"},
	}
	_, err := Classify(changes)
	require.Error(t, err)
	var fatal *FatalError
	require.ErrorAs(t, err, &fatal)
}

func TestClassify_UnexpectedCauseIsFatal(t *testing.T) {
	changes := []chain.StateChangeWithCause{
		{Cause: chain.CauseResharding, ValueKind: chain.ValueAccountUpdate, AccountID: "a", AmountLiquid: "1", AmountLocked: "0"},
	}
	_, err := Classify(changes)
	require.Error(t, err)
}

func TestClassify_MigrationCauseIsSilentlyDropped(t *testing.T) {
	changes := []chain.StateChangeWithCause{
		{Cause: chain.CauseMigration, ValueKind: chain.ValueAccountUpdate, AccountID: "a", AmountLiquid: "1", AmountLocked: "0"},
	}
	b, err := Classify(changes)
	require.NoError(t, err)
	require.Empty(t, b.Validators)
	require.Empty(t, b.Transactions)
}
