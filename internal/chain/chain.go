// Package chain holds the block-stream wire shapes the indexer consumes.
// These mirror the NEAR indexer-framework's StreamerMessage closely
// enough for the derivation pipeline to operate without caring which
// object-storage adapter produced them.
package chain

// StateChangeCause identifies why a state change happened. Only a subset
// of causes affect account balances; the rest are dispatched by
// internal/classify.
type StateChangeCause int

const (
	CauseUnknown StateChangeCause = iota
	CauseNotWritableToDisk
	CauseInitialState
	CauseTransactionProcessing
	CauseActionReceiptProcessingStarted
	CauseActionReceiptGasReward
	CauseReceiptProcessing
	CausePostponedReceipt
	CauseUpdatedDelayedReceipts
	CauseValidatorAccountsUpdate
	CauseMigration
	CauseResharding
)

// StateChangeValueKind distinguishes the balance-relevant state change
// payloads from everything else (access keys, contract code, data),
// which StateChangeClassifier ignores outright.
type StateChangeValueKind int

const (
	ValueOther StateChangeValueKind = iota
	ValueAccountUpdate
	ValueAccountDeletion
)

// StateChangeWithCause is one entry of a shard's state_changes list.
type StateChangeWithCause struct {
	Cause StateChangeCause `json:"cause"`

	// TxHash / ReceiptHash are populated depending on Cause: TransactionProcessing
	// carries TxHash, ReceiptProcessing and ActionReceiptGasReward carry ReceiptHash.
	TxHash      string `json:"tx_hash,omitempty"`
	ReceiptHash string `json:"receipt_hash,omitempty"`

	ValueKind    StateChangeValueKind `json:"value_kind"`
	AccountID    string               `json:"account_id"`
	AmountLiquid string               `json:"amount_liquid,omitempty"` // decimal string, valid when ValueKind == ValueAccountUpdate
	AmountLocked string               `json:"amount_locked,omitempty"` // decimal string, valid when ValueKind == ValueAccountUpdate
}

// Transaction is one chunk-included transaction, in emission order.
type Transaction struct {
	Hash       string `json:"hash"`
	SignerID   string `json:"signer_id"`
	ReceiverID string `json:"receiver_id"`
}

// ReceiptExecutionOutcome pairs a receipt with the post-hoc record of its
// execution, in shard emission order.
type ReceiptExecutionOutcome struct {
	ReceiptID     string `json:"receipt_id"`
	PredecessorID string `json:"predecessor_id"`
	ReceiverID    string `json:"receiver_id"`
}

// Chunk is a shard's transaction payload for one block. A shard without
// an assigned chunk (e.g. a missing chunk) carries a nil Chunk.
type Chunk struct {
	Transactions []Transaction `json:"transactions"`
}

// Shard is one of a block's horizontal partitions.
type Shard struct {
	ShardID                  uint64                    `json:"shard_id"`
	Chunk                    *Chunk                    `json:"chunk"`
	StateChanges             []StateChangeWithCause    `json:"state_changes"`
	ReceiptExecutionOutcomes []ReceiptExecutionOutcome `json:"receipt_execution_outcomes"`
}

// BlockHeader carries the subset of header fields the derivation
// pipeline needs.
type BlockHeader struct {
	Height           uint64 `json:"height"`
	Hash             string `json:"hash"`
	PrevHash         string `json:"prev_hash"` // empty for a genesis-adjacent block
	TimestampNanosec uint64 `json:"timestamp_nanosec"`
}

// StreamerMessage is one block's worth of shards, as produced by the
// block-stream source (see internal/source).
type StreamerMessage struct {
	Header BlockHeader
	Shards []Shard
}

// SystemAccount is the sentinel receiver/receiver_id that never becomes
// an involved_account_id. Per spec.md §9, this check is applied only to
// the "other party" (receiver/receiver_id) side of a transaction or
// receipt — never to the signer or predecessor — and that asymmetry is
// intentional, not a bug, so it is preserved here rather than fixed.
const SystemAccount = "system"
