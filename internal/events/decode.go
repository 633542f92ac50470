package events

import "solana-tx-decoder/internal/schema"

// LegacySolDeltas converts schema.TxFacts' SolBalanceDeltas into the
// wire SolBalanceDelta shape, stamping slot/block_time/signature onto
// each entry the way the decoder's Kafka publisher expects.
func LegacySolDeltas(facts schema.TxFacts) []SolBalanceDelta {
	out := make([]SolBalanceDelta, 0, len(facts.SolBalanceDeltas))
	for _, d := range facts.SolBalanceDeltas {
		out = append(out, SolBalanceDelta{
			Slot:        facts.Slot,
			BlockTime:   facts.BlockTime,
			Signature:   facts.Signature,
			Account:     d.Account,
			PreBalance:  d.PreBalance,
			PostBalance: d.PostBalance,
			Delta:       saturatingI64(d.PreBalance, d.PostBalance),
		})
	}
	return out
}

// LegacyTokenDeltas converts schema.TxFacts' big.Int TokenBalanceDeltas
// into the wire TokenBalanceDelta shape. Amounts are carried as uint64
// (base units for real SPL mints never approach 2^64); an amount that
// does not fit in uint64 is reported as 0. The delta saturates to the
// int64 range.
func LegacyTokenDeltas(facts schema.TxFacts) []TokenBalanceDelta {
	out := make([]TokenBalanceDelta, 0, len(facts.TokenBalanceDeltas))
	for _, d := range facts.TokenBalanceDeltas {
		pre := uint64(0)
		if d.PreAmount != nil && d.PreAmount.IsUint64() {
			pre = d.PreAmount.Uint64()
		}
		post := uint64(0)
		if d.PostAmount != nil && d.PostAmount.IsUint64() {
			post = d.PostAmount.Uint64()
		}
		if pre == post {
			continue
		}
		out = append(out, TokenBalanceDelta{
			Slot:         facts.Slot,
			BlockTime:    facts.BlockTime,
			Signature:    facts.Signature,
			AccountIndex: d.AccountIndex,
			Mint:         d.Mint,
			Decimals:     d.Decimals,
			PreAmount:    pre,
			PostAmount:   post,
			Delta:        saturatingI64(pre, post),
		})
	}
	return out
}
