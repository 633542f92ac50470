package schema

import (
	"fmt"
	"math/big"
)

// SchemaVersion is bumped whenever a breaking change is made to DexSwapV1's
// wire shape; downstream consumers branch on it rather than guessing.
const SchemaVersion uint16 = 2

// DexSwapV1 is the gold-layer swap event emitted to the output topic. Every
// invariant below is enforced by Validate, never by the zero value alone:
// in_amount > 0, out_amount > 0, confidence in [0,100], and confidence=100
// implies PoolID is set.
type DexSwapV1 struct {
	SchemaVersion uint16 `json:"schema_version"`
	Chain         string `json:"chain"`
	Slot          uint64 `json:"slot"`
	BlockTime     *int64 `json:"block_time,omitempty"`
	Signature     string `json:"signature"`

	IndexInBlock uint32 `json:"index_in_block"`
	IndexInTx    uint16 `json:"index_in_tx"`
	HopIndex     uint8  `json:"hop_index"`

	Venue  string  `json:"venue"`
	PoolID *string `json:"pool_id,omitempty"`
	Trader string  `json:"trader"`

	InMint   string `json:"in_mint"`
	InAmount string `json:"in_amount"`
	OutMint  string `json:"out_mint"`
	OutAmount string `json:"out_amount"`

	FeeMint   *string `json:"fee_mint,omitempty"`
	FeeAmount *string `json:"fee_amount,omitempty"`

	RouteID *string `json:"route_id,omitempty"`

	Confidence        uint8             `json:"confidence"`
	ConfidenceReasons ConfidenceReasons `json:"confidence_reasons"`
	Explain           *string           `json:"explain,omitempty"`
}

// Validate checks the invariants a builder alone can't guarantee: amounts
// must parse as positive integers and confidence=100 requires a pool id.
func (s DexSwapV1) Validate() error {
	inAmt, ok := new(big.Int).SetString(s.InAmount, 10)
	if !ok {
		return fmt.Errorf("in_amount must be a valid unsigned integer: %q", s.InAmount)
	}
	outAmt, ok := new(big.Int).SetString(s.OutAmount, 10)
	if !ok {
		return fmt.Errorf("out_amount must be a valid unsigned integer: %q", s.OutAmount)
	}

	if inAmt.Sign() <= 0 {
		return fmt.Errorf("in_amount must be > 0")
	}
	if outAmt.Sign() <= 0 {
		return fmt.Errorf("out_amount must be > 0")
	}
	if s.Confidence > 100 {
		return fmt.Errorf("confidence must be in [0, 100], got %d", s.Confidence)
	}
	if s.Confidence == 100 && s.PoolID == nil {
		return fmt.Errorf("confidence=100 requires pool_id")
	}
	return nil
}

// IsHighConfidence matches the >=80 threshold used to gate which swaps are
// surfaced to latency-sensitive consumers without a full confidence filter.
func (s DexSwapV1) IsHighConfidence() bool {
	return s.Confidence >= 80
}

// DexSwapV1Builder assembles a DexSwapV1 field by field as a detector
// discovers facts about a swap, then derives Confidence/Explain from the
// accumulated ConfidenceReasons on Build.
type DexSwapV1Builder struct {
	swap           DexSwapV1
	reasons        ConfidenceReasons
	explainEnabled bool
}

func NewDexSwapV1Builder() *DexSwapV1Builder {
	return &DexSwapV1Builder{}
}

func (b *DexSwapV1Builder) Chain(chain string) *DexSwapV1Builder {
	b.swap.Chain = chain
	return b
}

func (b *DexSwapV1Builder) Slot(slot uint64) *DexSwapV1Builder {
	b.swap.Slot = slot
	return b
}

func (b *DexSwapV1Builder) BlockTime(blockTime *int64) *DexSwapV1Builder {
	b.swap.BlockTime = blockTime
	return b
}

func (b *DexSwapV1Builder) Signature(signature string) *DexSwapV1Builder {
	b.swap.Signature = signature
	return b
}

func (b *DexSwapV1Builder) IndexInBlock(index uint32) *DexSwapV1Builder {
	b.swap.IndexInBlock = index
	return b
}

func (b *DexSwapV1Builder) IndexInTx(index uint16) *DexSwapV1Builder {
	b.swap.IndexInTx = index
	return b
}

func (b *DexSwapV1Builder) HopIndex(index uint8) *DexSwapV1Builder {
	b.swap.HopIndex = index
	return b
}

func (b *DexSwapV1Builder) Venue(venue string) *DexSwapV1Builder {
	b.swap.Venue = venue
	return b
}

func (b *DexSwapV1Builder) PoolID(poolID *string) *DexSwapV1Builder {
	b.swap.PoolID = poolID
	return b
}

func (b *DexSwapV1Builder) Trader(trader string) *DexSwapV1Builder {
	b.swap.Trader = trader
	return b
}

func (b *DexSwapV1Builder) InToken(mint, amount string) *DexSwapV1Builder {
	b.swap.InMint = mint
	b.swap.InAmount = amount
	return b
}

func (b *DexSwapV1Builder) OutToken(mint, amount string) *DexSwapV1Builder {
	b.swap.OutMint = mint
	b.swap.OutAmount = amount
	return b
}

func (b *DexSwapV1Builder) Fee(mint, amount *string) *DexSwapV1Builder {
	b.swap.FeeMint = mint
	b.swap.FeeAmount = amount
	return b
}

func (b *DexSwapV1Builder) RouteID(routeID *string) *DexSwapV1Builder {
	b.swap.RouteID = routeID
	return b
}

func (b *DexSwapV1Builder) WithConfidenceReason(reason ConfidenceReasons) *DexSwapV1Builder {
	b.reasons.Set(reason)
	return b
}

func (b *DexSwapV1Builder) ExplainEnabled(enabled bool) *DexSwapV1Builder {
	b.explainEnabled = enabled
	return b
}

func (b *DexSwapV1Builder) Build() DexSwapV1 {
	b.swap.SchemaVersion = SchemaVersion
	b.swap.Confidence = b.reasons.ToConfidenceU8()
	b.swap.ConfidenceReasons = b.reasons
	if b.explainEnabled {
		explain := b.reasons.Explain()
		b.swap.Explain = &explain
	}
	return b.swap
}
