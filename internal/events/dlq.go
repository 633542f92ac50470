package events

// DlqReason is a closed set of categories for why a transaction was
// routed to the dead-letter topic instead of producing a swap.
type DlqReason string

const (
	DlqReasonRPCFetchFailed    DlqReason = "rpc_fetch_failed"
	DlqReasonParseFailed       DlqReason = "parse_failed"
	DlqReasonValidationFailed  DlqReason = "validation_failed"
	DlqReasonNoTokenDeltas     DlqReason = "no_token_deltas"
	DlqReasonInvalidAmounts    DlqReason = "invalid_amounts"
	DlqReasonMultiHopFailed    DlqReason = "multi_hop_failed"
)

// DlqRecord is the full entry persisted to the DLQ topic: enough
// context to replay the signature without re-deriving why it failed.
type DlqRecord struct {
	Timestamp    int64     `json:"timestamp"`
	Signature    string    `json:"signature"`
	Slot         uint64    `json:"slot"`
	BlockTime    *int64    `json:"block_time,omitempty"`
	Chain        string    `json:"chain"`
	Reason       DlqReason `json:"reason"`
	Error        string    `json:"error"`
	Attempts     uint32    `json:"attempts"`
	Venue        *string   `json:"venue,omitempty"`
	IsV0ALT      bool      `json:"is_v0_alt"`
	Context      *string   `json:"context,omitempty"`
}

// NewDlqRecord builds a record defaulted to a single attempt and the
// mainnet chain id; use the With* methods to fill in the rest.
func NewDlqRecord(now int64, signature string, slot uint64, reason DlqReason, err string) DlqRecord {
	return DlqRecord{
		Timestamp: now,
		Signature: signature,
		Slot:      slot,
		Chain:     "solana-mainnet",
		Reason:    reason,
		Error:     err,
		Attempts:  1,
	}
}

func (r DlqRecord) WithBlockTime(blockTime *int64) DlqRecord {
	r.BlockTime = blockTime
	return r
}

func (r DlqRecord) WithChain(chain string) DlqRecord {
	r.Chain = chain
	return r
}

func (r DlqRecord) WithAttempts(attempts uint32) DlqRecord {
	r.Attempts = attempts
	return r
}

func (r DlqRecord) WithVenue(venue string) DlqRecord {
	r.Venue = &venue
	return r
}

func (r DlqRecord) WithV0ALT(isV0ALT bool) DlqRecord {
	r.IsV0ALT = isV0ALT
	return r
}

func (r DlqRecord) WithContext(context string) DlqRecord {
	r.Context = &context
	return r
}
