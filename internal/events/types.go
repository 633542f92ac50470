// Package events defines the wire types exchanged between the backfill
// pager, the decoder consumer, and the dead-letter sink: the raw
// envelope produced per transaction, and the legacy (pre-DexSwapV1)
// balance-delta shapes kept for callers that still want saturating
// int64 deltas instead of schema.TokenBalanceDelta's big.Int form.
package events

import "solana-tx-decoder/internal/schema"

// RawTxEventSchemaVersion is bumped whenever a field is added or
// removed from RawTxEvent in a way that changes Kafka consumers.
const RawTxEventSchemaVersion uint8 = 1

// RawTxEvent is the envelope the backfill pager and the realtime feed
// both publish to the raw-transactions topic: enough to let the
// decoder fetch full jsonParsed transaction data and attribute it to a
// block position, without carrying the (much larger) transaction body
// itself.
type RawTxEvent struct {
	SchemaVersion        uint8   `json:"schema_version"`
	Chain                string  `json:"chain"`
	Slot                 uint64  `json:"slot"`
	BlockTime            *int64  `json:"block_time,omitempty"`
	Signature            string  `json:"signature"`
	IndexInBlock         uint32  `json:"index_in_block"`
	TxVersion            *uint8  `json:"tx_version,omitempty"`
	IsSuccess            bool    `json:"is_success"`
	FeeLamports          uint64  `json:"fee_lamports"`
	ComputeUnitsConsumed *uint64 `json:"compute_units_consumed,omitempty"`
	MainProgram          *string `json:"main_program,omitempty"`
	ProgramIDs           []string `json:"program_ids"`
}

// NewRawTxEvent builds a RawTxEvent from already-resolved facts, picking
// the main program out of the full program id list via
// schema.PickMainProgram.
func NewRawTxEvent(chain string, facts schema.TxFacts, indexInBlock uint32, programIDs []string) RawTxEvent {
	ev := RawTxEvent{
		SchemaVersion:        RawTxEventSchemaVersion,
		Chain:                chain,
		Slot:                 facts.Slot,
		BlockTime:            facts.BlockTime,
		Signature:            facts.Signature,
		IndexInBlock:         indexInBlock,
		TxVersion:            facts.Version,
		IsSuccess:            facts.IsSuccess,
		FeeLamports:          facts.Fee,
		ComputeUnitsConsumed: facts.ComputeUnits,
		ProgramIDs:           programIDs,
	}
	if main := schema.PickMainProgram(programIDs); main != "" {
		ev.MainProgram = &main
	}
	return ev
}

// DlqEvent records a pipeline stage that dropped a signature instead of
// publishing a swap, for later replay or investigation.
type DlqEvent struct {
	Source    string  `json:"source"`
	Step      string  `json:"step"`
	Signature *string `json:"signature,omitempty"`
	Error     string  `json:"error"`
}

// SolBalanceDelta is the legacy lamport-delta shape: int64 deltas
// saturate rather than overflow, since a single account's lamport
// balance never approaches i64::MAX in practice and saturating beats
// panicking on the rare corrupted-feed value.
type SolBalanceDelta struct {
	Slot        uint64 `json:"slot"`
	BlockTime   *int64 `json:"block_time,omitempty"`
	Signature   string `json:"signature"`
	Account     string `json:"account"`
	PreBalance  uint64 `json:"pre_balance"`
	PostBalance uint64 `json:"post_balance"`
	Delta       int64  `json:"delta"`
}

// TokenBalanceDelta is the legacy base-units token delta shape: amounts
// are carried as uint64 (base units rarely exceed 2^63 for real SPL
// mints) with a saturating int64 delta.
type TokenBalanceDelta struct {
	Slot         uint64  `json:"slot"`
	BlockTime    *int64  `json:"block_time,omitempty"`
	Signature    string  `json:"signature"`
	AccountIndex uint32  `json:"account_index"`
	Mint         string  `json:"mint"`
	Decimals     *uint8  `json:"decimals,omitempty"`
	PreAmount    uint64  `json:"pre_amount"`
	PostAmount   uint64  `json:"post_amount"`
	Delta        int64   `json:"delta"`
}

const (
	maxInt64 = int64(^uint64(0) >> 1)
	minInt64 = -maxInt64 - 1
)

// saturatingI64 clamps a delta that may not fit into int64 instead of
// wrapping, matching Rust's i128::clamp(i64::MIN, i64::MAX) as i64.
func saturatingI64(pre, post uint64) int64 {
	delta := int64(post) - int64(pre)
	// int64(post) or int64(pre) can themselves overflow if either
	// balance exceeds i64::MAX; detect via the sign of the inputs.
	if post > uint64(maxInt64) || pre > uint64(maxInt64) {
		diff := int64(0)
		if post >= pre {
			if post-pre > uint64(maxInt64) {
				return maxInt64
			}
			diff = int64(post - pre)
		} else {
			if pre-post > uint64(maxInt64) {
				return minInt64
			}
			diff = -int64(pre - post)
		}
		return diff
	}
	return delta
}
