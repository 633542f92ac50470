package schema

// ParsedInstruction is a single outer or inner instruction, normalized to a
// resolved program id and account indices into TxFacts.FullAccountKeys
// regardless of whether the source JSON used jsonParsed or raw encoding.
type ParsedInstruction struct {
	ProgramID string
	Accounts  []int

	// Data is the base58-encoded instruction data, when the RPC response
	// carried raw (non-parsed) instruction bytes.
	Data string

	// OuterIxIndex is nil for a top-level instruction, and set to the
	// owning outer instruction's index for anything surfaced through
	// meta.innerInstructions.
	OuterIxIndex *int

	// StackDepth is 0 for outer instructions; inner instructions default
	// to 1 when the RPC response omits stackHeight.
	StackDepth uint8
}

func (p ParsedInstruction) IsInner() bool {
	return p.OuterIxIndex != nil
}

func parseSingleInstruction(ix map[string]interface{}, accountKeys []string, outerIxIndex *int, stackDepth uint8) (ParsedInstruction, bool) {
	var programID string
	if pid, ok := asString(get(ix, "programId")); ok {
		programID = pid
	} else if idx, ok := asUint64(get(ix, "programIdIndex")); ok {
		if int(idx) >= len(accountKeys) {
			return ParsedInstruction{}, false
		}
		programID = accountKeys[idx]
	} else {
		return ParsedInstruction{}, false
	}

	var accounts []int
	if arr, ok := asArray(get(ix, "accounts")); ok {
		accounts = make([]int, 0, len(arr))
		for _, v := range arr {
			if n, ok := asUint64(v, v != nil); ok {
				accounts = append(accounts, int(n))
			} else if key, ok := asString(v, v != nil); ok {
				// jsonParsed encoding lists account pubkeys, not indices.
				for i, k := range accountKeys {
					if k == key {
						accounts = append(accounts, i)
						break
					}
				}
			}
		}
	}

	data, _ := asString(get(ix, "data"))

	return ParsedInstruction{
		ProgramID:    programID,
		Accounts:     accounts,
		Data:         data,
		OuterIxIndex: outerIxIndex,
		StackDepth:   stackDepth,
	}, true
}

func parseOuterInstructions(tx map[string]interface{}, accountKeys []string) []ParsedInstruction {
	arr, ok := asArray(ptr(tx, "transaction", "message", "instructions"))
	if !ok {
		return nil
	}
	out := make([]ParsedInstruction, 0, len(arr))
	for _, v := range arr {
		ixObj, ok := asObject(v, v != nil)
		if !ok {
			continue
		}
		if parsed, ok := parseSingleInstruction(ixObj, accountKeys, nil, 0); ok {
			out = append(out, parsed)
		}
	}
	return out
}

func parseAllInstructions(tx map[string]interface{}, accountKeys []string) []ParsedInstruction {
	out := parseOuterInstructions(tx, accountKeys)

	groups, ok := asArray(ptr(tx, "meta", "innerInstructions"))
	if !ok {
		return out
	}

	for _, g := range groups {
		group, ok := asObject(g, g != nil)
		if !ok {
			continue
		}
		outerIdxU, _ := asUint64(get(group, "index"))
		outerIdx := int(outerIdxU)

		innerArr, ok := asArray(get(group, "instructions"))
		if !ok {
			continue
		}
		for _, v := range innerArr {
			ixObj, ok := asObject(v, v != nil)
			if !ok {
				continue
			}
			stackDepth := uint8(1)
			if h, ok := asUint64(get(ixObj, "stackHeight")); ok {
				stackDepth = uint8(h)
			}
			idx := outerIdx
			if parsed, ok := parseSingleInstruction(ixObj, accountKeys, &idx, stackDepth); ok {
				out = append(out, parsed)
			}
		}
	}

	return out
}
