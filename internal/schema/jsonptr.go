// Package schema holds the pure, side-effect-free transaction data model:
// TxFacts extraction, ALT (address lookup table) resolution, and the
// DexSwapV1 / confidence-reasons output schema.
package schema

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// DecodeTxJSON decodes a getTransaction jsonParsed result body while
// preserving full integer precision (lamport and slot values can exceed
// float64's 53-bit mantissa), matching how the original indexer kept
// serde_json::Value untyped throughout the extraction pipeline.
func DecodeTxJSON(data []byte) (map[string]interface{}, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var out map[string]interface{}
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

// ptr navigates a decoded JSON value through a sequence of object keys,
// returning (nil, false) the moment any segment is missing or the wrong
// shape. Mirrors serde_json::Value::pointer's tolerant traversal: a
// partially-formed transaction must never panic the extractor.
func ptr(v interface{}, path ...string) (interface{}, bool) {
	cur := v
	for _, p := range path {
		m, ok := cur.(map[string]interface{})
		if !ok {
			return nil, false
		}
		next, ok := m[p]
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

// get is the comma-ok map lookup, usable directly as an argument to the
// as* helpers below (get(m, "x") has the same (value, ok) shape as ptr).
func get(m map[string]interface{}, key string) (interface{}, bool) {
	v, ok := m[key]
	return v, ok
}

func asArray(v interface{}, ok bool) ([]interface{}, bool) {
	if !ok || v == nil {
		return nil, false
	}
	arr, ok := v.([]interface{})
	return arr, ok
}

func asObject(v interface{}, ok bool) (map[string]interface{}, bool) {
	if !ok || v == nil {
		return nil, false
	}
	m, ok := v.(map[string]interface{})
	return m, ok
}

func asString(v interface{}, ok bool) (string, bool) {
	if !ok || v == nil {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func asBool(v interface{}, ok bool) (bool, bool) {
	if !ok || v == nil {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}

// asUint64 accepts json.Number (the normal case, since we decode with
// UseNumber) and plain float64 (tests often build values with
// map[string]interface{} literals directly).
func asUint64(v interface{}, ok bool) (uint64, bool) {
	if !ok || v == nil {
		return 0, false
	}
	switch n := v.(type) {
	case json.Number:
		u, err := strconv.ParseUint(n.String(), 10, 64)
		return u, err == nil
	case float64:
		return uint64(n), true
	}
	return 0, false
}

func asInt64(v interface{}, ok bool) (int64, bool) {
	if !ok || v == nil {
		return 0, false
	}
	switch n := v.(type) {
	case json.Number:
		i, err := strconv.ParseInt(n.String(), 10, 64)
		return i, err == nil
	case float64:
		return int64(n), true
	}
	return 0, false
}
