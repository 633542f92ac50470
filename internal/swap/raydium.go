// Package swap holds pure DEX swap detectors. Each detector takes a
// schema.TxFacts and returns zero or more schema.DexSwapV1 events — no RPC
// calls, no side effects, so they're trivial to unit test against
// hand-built facts.
package swap

import (
	"fmt"
	"math/big"

	"solana-tx-decoder/internal/schema"
)

// raydium AMM v4's swap instruction keeps its accounts in fixed positions;
// this is the only thing the detector can rely on without decoding the
// instruction's borsh-encoded data.
const (
	raydiumPoolID    = 1
	raydiumVaultA    = 4
	raydiumVaultB    = 5
	raydiumUserSrc   = 15
	raydiumUserDst   = 16
)

type raydiumSwapHop struct {
	outerIxIndex      int
	poolID            *string
	trader            string
	inMint            string
	inAmount          *big.Int
	outMint           string
	outAmount         *big.Int
	confidenceReasons schema.ConfidenceReasons
}

// ParseRaydiumV4Swaps detects Raydium AMM v4 swaps in facts, returning one
// DexSwapV1 per hop (a single event for a plain swap, one per leg for a
// multi-hop route sharing a route_id). explainEnabled controls whether the
// human-readable confidence breakdown is attached to each event.
func ParseRaydiumV4Swaps(facts schema.TxFacts, chain string, indexInBlock uint32, explainEnabled bool) []schema.DexSwapV1 {
	if !facts.HasProgram(schema.RaydiumAMMv4ProgramID) {
		return nil
	}

	raydiumIxs := facts.InstructionsForProgram(schema.RaydiumAMMv4ProgramID)
	if len(raydiumIxs) == 0 {
		return nil
	}

	hops := detectSwapHops(facts, raydiumIxs)
	if len(hops) == 0 {
		return nil
	}

	isMultiHop := len(hops) > 1

	var routeID *string
	if isMultiHop {
		first := hops[0].outerIxIndex
		sig := facts.Signature
		if len(sig) > 16 {
			sig = sig[:16]
		}
		rid := fmt.Sprintf("%s:%d", sig, first)
		routeID = &rid
	}

	swaps := make([]schema.DexSwapV1, 0, len(hops))
	for hopIdx, hop := range hops {
		if hop.inAmount.Sign() == 0 || hop.outAmount.Sign() == 0 {
			continue
		}

		builder := schema.NewDexSwapV1Builder().
			Chain(chain).
			Slot(facts.Slot).
			BlockTime(facts.BlockTime).
			Signature(facts.Signature).
			IndexInBlock(indexInBlock).
			IndexInTx(uint16(hop.outerIxIndex)).
			HopIndex(uint8(hopIdx)).
			Venue("raydium").
			PoolID(hop.poolID).
			Trader(hop.trader).
			InToken(hop.inMint, hop.inAmount.String()).
			OutToken(hop.outMint, hop.outAmount.String()).
			RouteID(routeID).
			ExplainEnabled(explainEnabled)

		for _, flag := range []schema.ConfidenceReasons{
			schema.ReasonProgramGate,
			schema.ReasonPoolIDFromIx,
			schema.ReasonPoolIDFromVault,
			schema.ReasonTraderFromOwner,
			schema.ReasonTraderIsSigner,
			schema.ReasonAmountsConfirmed,
			schema.ReasonVaultMatch,
			schema.ReasonSingleHop,
			schema.ReasonTxSuccess,
		} {
			if hop.confidenceReasons.Has(flag) {
				builder.WithConfidenceReason(flag)
			}
		}

		if !isMultiHop {
			builder.WithConfidenceReason(schema.ReasonSingleHop)
		}
		if facts.IsSuccess {
			builder.WithConfidenceReason(schema.ReasonTxSuccess)
		}

		swapEvent := builder.Build()
		if err := swapEvent.Validate(); err == nil {
			swaps = append(swaps, swapEvent)
		}
	}

	return swaps
}

func detectSwapHops(facts schema.TxFacts, raydiumIxs []schema.ParsedInstruction) []raydiumSwapHop {
	ownerToDeltas := make(map[string][]schema.TokenBalanceDelta)
	for _, delta := range facts.TokenBalanceDeltas {
		if delta.Owner == "" {
			continue
		}
		ownerToDeltas[delta.Owner] = append(ownerToDeltas[delta.Owner], delta)
	}

	trader := findTrader(facts, ownerToDeltas)

	var hops []raydiumSwapHop
	for _, ix := range raydiumIxs {
		reasons := schema.ConfidenceReasons(0)
		reasons.Set(schema.ReasonProgramGate)

		var poolID *string
		if len(ix.Accounts) > raydiumPoolID {
			if pk, ok := facts.AccountAt(ix.Accounts[raydiumPoolID]); ok {
				poolID = &pk
			}
		}
		if poolID != nil {
			reasons.Set(schema.ReasonPoolIDFromIx)
		}

		outerIxIndex := 0
		if ix.OuterIxIndex != nil {
			outerIxIndex = *ix.OuterIxIndex
		}

		traderDeltas := ownerToDeltas[trader]
		if len(traderDeltas) == 0 {
			if hop, ok := createHopFromAllDeltas(facts, ix, poolID, trader, reasons, outerIxIndex); ok {
				hops = append(hops, hop)
			}
			continue
		}

		inDelta, outDelta, ok := identifyInOutDeltas(traderDeltas)
		if !ok {
			if hop, ok := createHopFromAllDeltas(facts, ix, poolID, trader, reasons, outerIxIndex); ok {
				hops = append(hops, hop)
			}
			continue
		}

		reasons.Set(schema.ReasonTraderFromOwner)
		reasons.Set(schema.ReasonAmountsConfirmed)

		if verifyVaultMatch(facts, ix, inDelta, outDelta) {
			reasons.Set(schema.ReasonVaultMatch)
		}

		hops = append(hops, raydiumSwapHop{
			outerIxIndex:      outerIxIndex,
			poolID:            poolID,
			trader:            trader,
			inMint:            inDelta.Mint,
			inAmount:          new(big.Int).Neg(inDelta.Delta),
			outMint:           outDelta.Mint,
			outAmount:         new(big.Int).Set(outDelta.Delta),
			confidenceReasons: reasons,
		})
	}

	return dedupHopsByOuterIx(hops)
}

func dedupHopsByOuterIx(hops []raydiumSwapHop) []raydiumSwapHop {
	seen := make(map[int]bool, len(hops))
	out := make([]raydiumSwapHop, 0, len(hops))
	for _, h := range hops {
		if seen[h.outerIxIndex] {
			continue
		}
		seen[h.outerIxIndex] = true
		out = append(out, h)
	}
	return out
}

// findTrader prefers an owner with both a negative and a positive token
// delta (the swap signature), falling back to the fee payer when no such
// owner exists — e.g. when the trader's own accounts aren't in the token
// balance snapshots.
func findTrader(facts schema.TxFacts, ownerToDeltas map[string][]schema.TokenBalanceDelta) string {
	for owner, deltas := range ownerToDeltas {
		hasNeg, hasPos := false, false
		for _, d := range deltas {
			if d.Delta.Sign() < 0 {
				hasNeg = true
			}
			if d.Delta.Sign() > 0 {
				hasPos = true
			}
		}
		if hasNeg && hasPos {
			return owner
		}
	}
	if payer, ok := facts.FeePayer(); ok {
		return payer
	}
	return "unknown"
}

func identifyInOutDeltas(deltas []schema.TokenBalanceDelta) (schema.TokenBalanceDelta, schema.TokenBalanceDelta, bool) {
	var inDelta, outDelta *schema.TokenBalanceDelta
	for i := range deltas {
		d := deltas[i]
		if d.Delta.Sign() < 0 && inDelta == nil {
			inDelta = &deltas[i]
		} else if d.Delta.Sign() > 0 && outDelta == nil {
			outDelta = &deltas[i]
		}
	}
	if inDelta == nil || outDelta == nil {
		return schema.TokenBalanceDelta{}, schema.TokenBalanceDelta{}, false
	}
	return *inDelta, *outDelta, true
}

// verifyVaultMatch cross-checks the pool's two vault accounts moved in the
// opposite direction of the trader: one vault received what the trader
// sent, the other sent what the trader received.
func verifyVaultMatch(facts schema.TxFacts, ix schema.ParsedInstruction, inDelta, outDelta schema.TokenBalanceDelta) bool {
	if len(ix.Accounts) <= raydiumVaultB {
		return false
	}

	vaultAIdx := ix.Accounts[raydiumVaultA]
	vaultBIdx := ix.Accounts[raydiumVaultB]

	var vaultA, vaultB *schema.TokenBalanceDelta
	for i := range facts.TokenBalanceDeltas {
		d := &facts.TokenBalanceDeltas[i]
		if int(d.AccountIndex) == vaultAIdx {
			vaultA = d
		}
		if int(d.AccountIndex) == vaultBIdx {
			vaultB = d
		}
	}

	if vaultA == nil || vaultB == nil {
		return false
	}

	vaultReceivedIn := (vaultA.Mint == inDelta.Mint && vaultA.Delta.Sign() > 0) ||
		(vaultB.Mint == inDelta.Mint && vaultB.Delta.Sign() > 0)
	vaultSentOut := (vaultA.Mint == outDelta.Mint && vaultA.Delta.Sign() < 0) ||
		(vaultB.Mint == outDelta.Mint && vaultB.Delta.Sign() < 0)

	return vaultReceivedIn && vaultSentOut
}

// createHopFromAllDeltas is the fallback path when the trader's own deltas
// don't show a clean in/out pair (e.g. their accounts aren't in this
// snapshot) — it uses the first negative and first positive delta across
// the whole transaction and marks the trader identification as weaker
// (signer-only) rather than owner-confirmed.
func createHopFromAllDeltas(facts schema.TxFacts, ix schema.ParsedInstruction, poolID *string, trader string, reasons schema.ConfidenceReasons, outerIxIndex int) (raydiumSwapHop, bool) {
	var inDelta, outDelta *schema.TokenBalanceDelta
	for i := range facts.TokenBalanceDeltas {
		d := &facts.TokenBalanceDeltas[i]
		if d.Delta.Sign() < 0 && inDelta == nil {
			inDelta = d
		}
		if d.Delta.Sign() > 0 && outDelta == nil {
			outDelta = d
		}
	}
	if inDelta == nil || outDelta == nil {
		return raydiumSwapHop{}, false
	}

	reasons.Set(schema.ReasonTraderIsSigner)

	return raydiumSwapHop{
		outerIxIndex:      outerIxIndex,
		poolID:            poolID,
		trader:            trader,
		inMint:            inDelta.Mint,
		inAmount:          new(big.Int).Neg(inDelta.Delta),
		outMint:           outDelta.Mint,
		outAmount:         new(big.Int).Set(outDelta.Delta),
		confidenceReasons: reasons,
	}, true
}
