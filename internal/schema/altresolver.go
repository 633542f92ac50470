package schema

import "github.com/mr-tron/base58"

// Well-known program ids skipped by PickMainProgram.
const (
	SystemProgramID        = "11111111111111111111111111111111"
	TokenProgramID         = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"
	ComputeBudgetProgramID = "ComputeBudget111111111111111111111111111111"
	RaydiumAMMv4ProgramID  = "675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8"
)

// ResolveFullAccountKeys builds the single authoritative account key list
// for a transaction: static keys from transaction.message.accountKeys,
// followed by meta.loadedAddresses.writable, followed by
// meta.loadedAddresses.readonly. This composite ordering is exactly the
// programIdIndex / account-index space the runtime uses for v0
// transactions; anything that splits the list instead of concatenating it
// will eventually resolve an index against the wrong table.
func ResolveFullAccountKeys(tx map[string]interface{}) []string {
	message, ok := asObject(ptr(tx, "transaction", "message"))
	if !ok {
		return nil
	}

	keys := make([]string, 0, 8)
	if arr, ok := asArray(get(message, "accountKeys")); ok {
		for _, entry := range arr {
			if s, ok := entry.(string); ok {
				keys = append(keys, s)
				continue
			}
			if obj, ok := entry.(map[string]interface{}); ok {
				if pk, ok := asString(obj["pubkey"], obj["pubkey"] != nil); ok {
					keys = append(keys, pk)
				}
			}
		}
	}

	loaded, ok := asObject(ptr(tx, "meta", "loadedAddresses"))
	if !ok {
		return keys
	}

	appendAddrs := func(field string) {
		arr, ok := asArray(get(loaded, field))
		if !ok {
			return
		}
		for _, entry := range arr {
			if s, ok := asString(entry, entry != nil); ok {
				keys = append(keys, s)
			}
		}
	}
	appendAddrs("writable")
	appendAddrs("readonly")

	return keys
}

// ExtractProgramIDsFromTransaction returns every unique program id invoked
// by the transaction's outer and inner instructions, in order of first
// appearance. Handles both jsonParsed (programId field) and raw
// (programIdIndex) instruction encodings.
func ExtractProgramIDsFromTransaction(tx map[string]interface{}) []string {
	accountKeys := ResolveFullAccountKeys(tx)
	if len(accountKeys) == 0 {
		return nil
	}

	message, ok := asObject(ptr(tx, "transaction", "message"))
	if !ok {
		return nil
	}

	var out []string
	seen := make(map[string]bool)

	collect := func(ix map[string]interface{}) {
		if pid, ok := asString(get(ix, "programId")); ok {
			if !seen[pid] {
				seen[pid] = true
				out = append(out, pid)
			}
			return
		}
		if idx, ok := asInt64(get(ix, "programIdIndex")); ok && idx >= 0 {
			if int(idx) < len(accountKeys) {
				pid := accountKeys[idx]
				if !seen[pid] {
					seen[pid] = true
					out = append(out, pid)
				}
			}
		}
	}

	if arr, ok := asArray(get(message, "instructions")); ok {
		for _, v := range arr {
			if ix, ok := asObject(v, v != nil); ok {
				collect(ix)
			}
		}
	}

	if groups, ok := asArray(ptr(tx, "meta", "innerInstructions")); ok {
		for _, g := range groups {
			group, ok := asObject(g, g != nil)
			if !ok {
				continue
			}
			innerArr, ok := asArray(get(group, "instructions"))
			if !ok {
				continue
			}
			for _, v := range innerArr {
				if ix, ok := asObject(v, v != nil); ok {
					collect(ix)
				}
			}
		}
	}

	return out
}

// StaticAccountKeysLen returns the split point between static accountKeys
// and any ALT-loaded addresses, informational only — every index lookup
// must go through the single full_account_keys list, never this split.
func StaticAccountKeysLen(tx map[string]interface{}) int {
	arr, ok := asArray(ptr(tx, "transaction", "message", "accountKeys"))
	if !ok {
		return 0
	}
	return len(arr)
}

// HasLoadedAddresses reports whether the transaction carries ALT-resolved
// addresses (only possible for version 0 transactions).
func HasLoadedAddresses(tx map[string]interface{}) bool {
	_, ok := ptr(tx, "meta", "loadedAddresses")
	return ok
}

// PickMainProgram returns the first program id that isn't one of the
// well-known system programs, or "" if only system programs were invoked.
func PickMainProgram(programIDs []string) string {
	skip := map[string]bool{
		ComputeBudgetProgramID: true,
		SystemProgramID:        true,
		TokenProgramID:         true,
	}
	for _, p := range programIDs {
		if !skip[p] {
			return p
		}
	}
	return ""
}

// IsWellFormedPubkey is a cheap sanity check (base58-decodes to 32 bytes)
// used to flag corrupted account keys without ever dropping them — the
// extractor must tolerate bad upstream data, not truncate on it.
func IsWellFormedPubkey(key string) bool {
	decoded, err := base58.Decode(key)
	if err != nil {
		return false
	}
	return len(decoded) == 32
}
