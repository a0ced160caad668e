package chain

import (
	"encoding/json"
	"fmt"
)

// State change entries carry their `cause` field as one of these plain
// string tags; UnmarshalJSON below maps them onto StateChangeCause. A
// nested cause object is not accepted.
var causeNames = map[string]StateChangeCause{
	"not_writable_to_disk":            CauseNotWritableToDisk,
	"initial_state":                   CauseInitialState,
	"transaction_processing":          CauseTransactionProcessing,
	"action_receipt_processing_started": CauseActionReceiptProcessingStarted,
	"action_receipt_gas_reward":       CauseActionReceiptGasReward,
	"receipt_processing":              CauseReceiptProcessing,
	"postponed_receipt":                CausePostponedReceipt,
	"updated_delayed_receipts":        CauseUpdatedDelayedReceipts,
	"validator_accounts_update":       CauseValidatorAccountsUpdate,
	"migration":                        CauseMigration,
	"resharding":                       CauseResharding,
}

var valueKindNames = map[string]StateChangeValueKind{
	"account_update": ValueAccountUpdate,
	"account_deletion": ValueAccountDeletion,
}

// UnmarshalJSON accepts NEAR Lake's snake_case cause-type strings.
func (c *StateChangeCause) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*c = CauseUnknown
		return nil
	}
	cause, ok := causeNames[s]
	if !ok {
		return fmt.Errorf("chain: unknown state change cause %q", s)
	}
	*c = cause
	return nil
}

func (c StateChangeCause) MarshalJSON() ([]byte, error) {
	for name, v := range causeNames {
		if v == c {
			return json.Marshal(name)
		}
	}
	return json.Marshal("")
}

// UnmarshalJSON accepts NEAR Lake's snake_case value-kind strings; any
// kind not in valueKindNames (access keys, contract code, data) decodes
// to ValueOther, which internal/classify ignores.
func (k *StateChangeValueKind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if kind, ok := valueKindNames[s]; ok {
		*k = kind
	} else {
		*k = ValueOther
	}
	return nil
}

func (k StateChangeValueKind) MarshalJSON() ([]byte, error) {
	for name, v := range valueKindNames {
		if v == k {
			return json.Marshal(name)
		}
	}
	return json.Marshal("other")
}
