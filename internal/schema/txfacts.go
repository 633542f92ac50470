package schema

import (
	"math/big"
	"sort"
)

// TokenBalance is one entry of meta.preTokenBalances / postTokenBalances.
type TokenBalance struct {
	AccountIndex uint32
	Mint         string
	Owner        string
	// Amount is kept as the original base-unit string; ComputeTokenDeltas
	// parses it into big.Int so precision survives past u64 (some SPL
	// tokens mint supplies that don't fit in 64 bits).
	Amount   string
	Decimals *uint8
}

// TokenBalanceDelta is the change in one account's token balance across a
// transaction, keyed by (account_index, mint). Pre/Post/Delta are
// arbitrary-precision since SPL token amounts are u64 but accumulated
// supply/delta math in the original indexer used u128/i128.
type TokenBalanceDelta struct {
	AccountIndex uint32
	Mint         string
	Owner        string
	PreAmount    *big.Int
	PostAmount   *big.Int
	Delta        *big.Int
	Decimals     *uint8
}

// SolBalanceDelta is the lamport balance change for one account.
type SolBalanceDelta struct {
	AccountIndex int
	Account      string
	PreBalance   uint64
	PostBalance  uint64
	Delta        int64
}

// TxFacts is every fact a detector needs, extracted once from the raw
// getTransaction response. Detectors never touch the transaction JSON
// directly — they only see TxFacts, so they stay pure functions over data
// instead of RPC-shaped trees.
type TxFacts struct {
	Signature string
	Slot       uint64
	BlockTime  *int64
	// Version is nil for legacy transactions, 0 for v0.
	Version  *uint8
	IsSuccess bool
	Fee       uint64
	ComputeUnits *uint64

	FullAccountKeys      []string
	StaticAccountKeysLen int
	HasLoadedAddresses   bool

	OuterInstructions []ParsedInstruction
	AllInstructions   []ParsedInstruction

	PreTokenBalances  []TokenBalance
	PostTokenBalances []TokenBalance
	TokenBalanceDeltas []TokenBalanceDelta
	SolBalanceDeltas   []SolBalanceDelta

	Logs []string
}

// FromJSON extracts TxFacts from a decoded getTransaction jsonParsed
// response body. tx must come from DecodeTxJSON so numeric fields are
// json.Number rather than float64.
func FromJSON(tx map[string]interface{}, signature string, slot uint64) TxFacts {
	var blockTime *int64
	if bt, ok := asInt64(get(tx, "blockTime")); ok {
		blockTime = &bt
	}

	var version *uint8
	if v, ok := asUint64(get(tx, "version")); ok {
		v8 := uint8(v)
		version = &v8
	}

	isSuccess := false
	if errVal, ok := ptr(tx, "meta", "err"); ok {
		isSuccess = errVal == nil
	}

	fee, _ := asUint64(ptr(tx, "meta", "fee"))

	var computeUnits *uint64
	if cu, ok := asUint64(ptr(tx, "meta", "computeUnitsConsumed")); ok {
		computeUnits = &cu
	}

	fullAccountKeys := ResolveFullAccountKeys(tx)
	staticLen := StaticAccountKeysLen(tx)
	hasLoadedAddresses := HasLoadedAddresses(tx)

	outerInstructions := parseOuterInstructions(tx, fullAccountKeys)
	allInstructions := parseAllInstructions(tx, fullAccountKeys)

	preTokenBalances := parseTokenBalances(tx, "meta", "preTokenBalances")
	postTokenBalances := parseTokenBalances(tx, "meta", "postTokenBalances")
	tokenDeltas := ComputeTokenDeltas(preTokenBalances, postTokenBalances)

	solDeltas := parseSolDeltas(tx, fullAccountKeys)

	var logs []string
	if arr, ok := asArray(ptr(tx, "meta", "logMessages")); ok {
		logs = make([]string, 0, len(arr))
		for _, v := range arr {
			if s, ok := asString(v, v != nil); ok {
				logs = append(logs, s)
			}
		}
	}

	return TxFacts{
		Signature:            signature,
		Slot:                 slot,
		BlockTime:            blockTime,
		Version:              version,
		IsSuccess:            isSuccess,
		Fee:                  fee,
		ComputeUnits:         computeUnits,
		FullAccountKeys:      fullAccountKeys,
		StaticAccountKeysLen: staticLen,
		HasLoadedAddresses:   hasLoadedAddresses,
		OuterInstructions:    outerInstructions,
		AllInstructions:      allInstructions,
		PreTokenBalances:     preTokenBalances,
		PostTokenBalances:    postTokenBalances,
		TokenBalanceDeltas:   tokenDeltas,
		SolBalanceDeltas:     solDeltas,
		Logs:                 logs,
	}
}

func parseTokenBalances(tx map[string]interface{}, path ...string) []TokenBalance {
	arr, ok := asArray(ptr(tx, path...))
	if !ok {
		return nil
	}

	out := make([]TokenBalance, 0, len(arr))
	for _, v := range arr {
		b, ok := asObject(v, v != nil)
		if !ok {
			continue
		}
		accountIndexU, ok := asUint64(get(b, "accountIndex"))
		if !ok {
			continue
		}
		mint, ok := asString(get(b, "mint"))
		if !ok {
			continue
		}
		owner, _ := asString(get(b, "owner"))

		amount := "0"
		if a, ok := asString(ptr(b, "uiTokenAmount", "amount")); ok {
			amount = a
		}

		var decimals *uint8
		if d, ok := asUint64(ptr(b, "uiTokenAmount", "decimals")); ok {
			d8 := uint8(d)
			decimals = &d8
		}

		out = append(out, TokenBalance{
			AccountIndex: uint32(accountIndexU),
			Mint:         mint,
			Owner:        owner,
			Amount:       amount,
			Decimals:     decimals,
		})
	}
	return out
}

type tokenBalanceKey struct {
	accountIndex uint32
	mint         string
}

// ComputeTokenDeltas diffs pre/post token balance snapshots keyed by
// (account_index, mint), skipping accounts whose balance didn't change.
// Exported so tests and tools can exercise it against hand-built balance
// sets without a full transaction payload.
func ComputeTokenDeltas(pre, post []TokenBalance) []TokenBalanceDelta {
	preMap := make(map[tokenBalanceKey]TokenBalance, len(pre))
	for _, b := range pre {
		preMap[tokenBalanceKey{b.AccountIndex, b.Mint}] = b
	}
	postMap := make(map[tokenBalanceKey]TokenBalance, len(post))
	for _, b := range post {
		postMap[tokenBalanceKey{b.AccountIndex, b.Mint}] = b
	}

	keys := make([]tokenBalanceKey, 0, len(preMap)+len(postMap))
	seen := make(map[tokenBalanceKey]bool, len(preMap)+len(postMap))
	for k := range preMap {
		keys = append(keys, k)
		seen[k] = true
	}
	for k := range postMap {
		if !seen[k] {
			keys = append(keys, k)
			seen[k] = true
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].accountIndex != keys[j].accountIndex {
			return keys[i].accountIndex < keys[j].accountIndex
		}
		return keys[i].mint < keys[j].mint
	})

	deltas := make([]TokenBalanceDelta, 0, len(keys))
	for _, k := range keys {
		preBal, hasPre := preMap[k]
		postBal, hasPost := postMap[k]

		preAmount := parseBigUint(preBal.Amount, hasPre)
		postAmount := parseBigUint(postBal.Amount, hasPost)

		if preAmount.Cmp(postAmount) == 0 {
			continue
		}

		delta := new(big.Int).Sub(postAmount, preAmount)

		owner := postBal.Owner
		if owner == "" {
			owner = preBal.Owner
		}
		decimals := postBal.Decimals
		if decimals == nil {
			decimals = preBal.Decimals
		}

		deltas = append(deltas, TokenBalanceDelta{
			AccountIndex: k.accountIndex,
			Mint:         k.mint,
			Owner:        owner,
			PreAmount:    preAmount,
			PostAmount:   postAmount,
			Delta:        delta,
			Decimals:     decimals,
		})
	}

	return deltas
}

func parseBigUint(amount string, present bool) *big.Int {
	if !present || amount == "" {
		return big.NewInt(0)
	}
	n, ok := new(big.Int).SetString(amount, 10)
	if !ok {
		return big.NewInt(0)
	}
	return n
}

func parseSolDeltas(tx map[string]interface{}, accountKeys []string) []SolBalanceDelta {
	preArr, _ := asArray(ptr(tx, "meta", "preBalances"))
	postArr, _ := asArray(ptr(tx, "meta", "postBalances"))

	n := len(accountKeys)
	if len(preArr) < n {
		n = len(preArr)
	}
	if len(postArr) < n {
		n = len(postArr)
	}

	out := make([]SolBalanceDelta, 0, n)
	for i := 0; i < n; i++ {
		preBal, _ := asUint64(preArr[i], true)
		postBal, _ := asUint64(postArr[i], true)
		if preBal == postBal {
			continue
		}
		out = append(out, SolBalanceDelta{
			AccountIndex: i,
			Account:      accountKeys[i],
			PreBalance:   preBal,
			PostBalance:  postBal,
			Delta:        int64(postBal) - int64(preBal),
		})
	}
	return out
}

// TokenDeltasForOwner returns every token balance delta owned by owner.
func (f TxFacts) TokenDeltasForOwner(owner string) []TokenBalanceDelta {
	var out []TokenBalanceDelta
	for _, d := range f.TokenBalanceDeltas {
		if d.Owner == owner {
			out = append(out, d)
		}
	}
	return out
}

// InstructionsForProgram returns every outer or inner instruction invoking
// programID, in original order.
func (f TxFacts) InstructionsForProgram(programID string) []ParsedInstruction {
	var out []ParsedInstruction
	for _, ix := range f.AllInstructions {
		if ix.ProgramID == programID {
			out = append(out, ix)
		}
	}
	return out
}

// FeePayer is the first entry of FullAccountKeys, which the runtime always
// fills with the fee-paying signer.
func (f TxFacts) FeePayer() (string, bool) {
	if len(f.FullAccountKeys) == 0 {
		return "", false
	}
	return f.FullAccountKeys[0], true
}

// HasProgram reports whether programID appears in any outer or inner
// instruction.
func (f TxFacts) HasProgram(programID string) bool {
	for _, ix := range f.AllInstructions {
		if ix.ProgramID == programID {
			return true
		}
	}
	return false
}

// AccountAt resolves an account index into FullAccountKeys.
func (f TxFacts) AccountAt(index int) (string, bool) {
	if index < 0 || index >= len(f.FullAccountKeys) {
		return "", false
	}
	return f.FullAccountKeys[index], true
}
