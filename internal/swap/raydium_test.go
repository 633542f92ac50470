package swap

import (
	"testing"

	"solana-tx-decoder/internal/schema"
)

func TestParseRaydiumV4Basic(t *testing.T) {
	tx, err := schema.DecodeTxJSON([]byte(`{
		"blockTime": 1703001234,
		"meta": {
			"err": null,
			"fee": 5000,
			"preBalances": [1000000000],
			"postBalances": [999995000],
			"preTokenBalances": [
				{
					"accountIndex": 1,
					"mint": "So11111111111111111111111111111111111111112",
					"owner": "TraderWallet111",
					"uiTokenAmount": {"amount": "1000000000", "decimals": 9}
				},
				{
					"accountIndex": 2,
					"mint": "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v",
					"owner": "TraderWallet111",
					"uiTokenAmount": {"amount": "0", "decimals": 6}
				}
			],
			"postTokenBalances": [
				{
					"accountIndex": 1,
					"mint": "So11111111111111111111111111111111111111112",
					"owner": "TraderWallet111",
					"uiTokenAmount": {"amount": "500000000", "decimals": 9}
				},
				{
					"accountIndex": 2,
					"mint": "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v",
					"owner": "TraderWallet111",
					"uiTokenAmount": {"amount": "50000000", "decimals": 6}
				}
			],
			"innerInstructions": []
		},
		"slot": 250000000,
		"transaction": {
			"message": {
				"accountKeys": [
					"TraderWallet111",
					"PoolAccount123",
					"TokenAccount1",
					"TokenAccount2",
					"VaultA",
					"VaultB",
					"675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8"
				],
				"instructions": [
					{"programIdIndex": 6, "accounts": [0, 1, 2, 3, 4, 5], "data": "SwapData"}
				]
			},
			"signatures": ["sig123"]
		}
	}`))
	if err != nil {
		t.Fatalf("DecodeTxJSON: %v", err)
	}

	facts := schema.FromJSON(tx, "sig123", 250000000)
	swaps := ParseRaydiumV4Swaps(facts, "solana-mainnet", 0, true)

	if len(swaps) != 1 {
		t.Fatalf("len(swaps) = %d, want 1", len(swaps))
	}
	s := swaps[0]
	if s.Venue != "raydium" {
		t.Errorf("Venue = %q", s.Venue)
	}
	if s.InMint != "So11111111111111111111111111111111111111112" {
		t.Errorf("InMint = %q", s.InMint)
	}
	if s.OutMint != "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v" {
		t.Errorf("OutMint = %q", s.OutMint)
	}
	if s.InAmount != "500000000" {
		t.Errorf("InAmount = %q", s.InAmount)
	}
	if s.OutAmount != "50000000" {
		t.Errorf("OutAmount = %q", s.OutAmount)
	}
}

func TestNoRaydiumProgram(t *testing.T) {
	tx, err := schema.DecodeTxJSON([]byte(`{
		"blockTime": 1703001234,
		"meta": {"err": null, "fee": 5000, "preBalances": [], "postBalances": [], "preTokenBalances": [], "postTokenBalances": [], "innerInstructions": []},
		"slot": 250000000,
		"transaction": {
			"message": {
				"accountKeys": ["Account1", "11111111111111111111111111111111"],
				"instructions": [{"programIdIndex": 1, "accounts": [], "data": ""}]
			},
			"signatures": ["sig_no_raydium"]
		}
	}`))
	if err != nil {
		t.Fatalf("DecodeTxJSON: %v", err)
	}

	facts := schema.FromJSON(tx, "sig_no_raydium", 250000000)
	swaps := ParseRaydiumV4Swaps(facts, "solana-mainnet", 0, false)

	if len(swaps) != 0 {
		t.Fatalf("len(swaps) = %d, want 0", len(swaps))
	}
}

// TestParseRaydiumV4MultiHop covers a two-leg route: a router program CPIs
// into Raydium twice, once per outer instruction, so each leg carries its
// own outer_ix_index (0 and 1) via meta.innerInstructions' "index" field —
// the only way two Raydium invocations in one tx end up at different
// outer_ix_index values, since top-level instructions never carry one.
func TestParseRaydiumV4MultiHop(t *testing.T) {
	tx, err := schema.DecodeTxJSON([]byte(`{
		"blockTime": 1703001234,
		"meta": {
			"err": null,
			"fee": 5000,
			"preBalances": [],
			"postBalances": [],
			"preTokenBalances": [
				{
					"accountIndex": 2,
					"mint": "So11111111111111111111111111111111111111112",
					"owner": "TraderWallet111",
					"uiTokenAmount": {"amount": "1000000000", "decimals": 9}
				},
				{
					"accountIndex": 3,
					"mint": "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v",
					"owner": "TraderWallet111",
					"uiTokenAmount": {"amount": "0", "decimals": 6}
				}
			],
			"postTokenBalances": [
				{
					"accountIndex": 2,
					"mint": "So11111111111111111111111111111111111111112",
					"owner": "TraderWallet111",
					"uiTokenAmount": {"amount": "500000000", "decimals": 9}
				},
				{
					"accountIndex": 3,
					"mint": "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v",
					"owner": "TraderWallet111",
					"uiTokenAmount": {"amount": "50000000", "decimals": 6}
				}
			],
			"innerInstructions": [
				{
					"index": 0,
					"instructions": [
						{"programIdIndex": 6, "accounts": [0, 1, 2, 3, 4, 5], "data": "SwapDataHop0"}
					]
				},
				{
					"index": 1,
					"instructions": [
						{"programIdIndex": 6, "accounts": [0, 8, 2, 3, 9, 10], "data": "SwapDataHop1"}
					]
				}
			]
		},
		"slot": 250000000,
		"transaction": {
			"message": {
				"accountKeys": [
					"TraderWallet111",
					"PoolAccountA",
					"TokenAccount1",
					"TokenAccount2",
					"VaultA1",
					"VaultB1",
					"675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8",
					"RouterProgram111111111111111111111111111111",
					"PoolAccountB",
					"VaultA2",
					"VaultB2"
				],
				"instructions": [
					{"programIdIndex": 7, "accounts": [0, 1, 2, 3, 4, 5], "data": "RouteHop0"},
					{"programIdIndex": 7, "accounts": [0, 8, 2, 3, 9, 10], "data": "RouteHop1"}
				]
			},
			"signatures": ["sig_multi_hop_0123456789"]
		}
	}`))
	if err != nil {
		t.Fatalf("DecodeTxJSON: %v", err)
	}

	facts := schema.FromJSON(tx, "sig_multi_hop_0123456789", 250000000)
	swaps := ParseRaydiumV4Swaps(facts, "solana-mainnet", 0, false)

	if len(swaps) != 2 {
		t.Fatalf("len(swaps) = %d, want 2", len(swaps))
	}

	hop0, hop1 := swaps[0], swaps[1]

	if hop0.RouteID == nil || hop1.RouteID == nil {
		t.Fatalf("RouteID = (%v, %v), want both set", hop0.RouteID, hop1.RouteID)
	}
	if *hop0.RouteID != *hop1.RouteID {
		t.Errorf("RouteID mismatch: %q != %q", *hop0.RouteID, *hop1.RouteID)
	}

	if hop0.HopIndex != 0 {
		t.Errorf("hop0.HopIndex = %d, want 0", hop0.HopIndex)
	}
	if hop1.HopIndex != 1 {
		t.Errorf("hop1.HopIndex = %d, want 1", hop1.HopIndex)
	}

	if hop0.ConfidenceReasons.Has(schema.ReasonSingleHop) {
		t.Error("hop0 has ReasonSingleHop set, want unset for a multi-hop route")
	}
	if hop1.ConfidenceReasons.Has(schema.ReasonSingleHop) {
		t.Error("hop1 has ReasonSingleHop set, want unset for a multi-hop route")
	}
}

func TestConfidenceScoringThreshold(t *testing.T) {
	var r schema.ConfidenceReasons
	r.Set(schema.ReasonProgramGate)
	r.Set(schema.ReasonPoolIDFromIx)
	r.Set(schema.ReasonTraderFromOwner)
	r.Set(schema.ReasonAmountsConfirmed)
	r.Set(schema.ReasonTxSuccess)

	if conf := r.ToConfidenceU8(); conf < 75 {
		t.Errorf("ToConfidenceU8() = %d, want >= 75", conf)
	}
}
