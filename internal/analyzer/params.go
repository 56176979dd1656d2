package analyzer

import (
	"encoding/json"
	"strconv"
)

// TokenParams is the normalized output of the parameter walkers:
// which token a marketplace call is about, how many editions, and at
// what price. Price stays nil when the payload carries none.
type TokenParams struct {
	Contract string
	TokenID  string
	Qty      int64
	Price    *int64
}

// Marketplace contracts encode listing calls in a handful of shapes.
// ExtractTokenParams probes the known ones in order and returns false
// when none yields a (contract, token_id) pair. Callers count those as
// skipped and move on; a miss is expected, not an error.
func ExtractTokenParams(raw json.RawMessage) (TokenParams, bool) {
	if len(raw) == 0 {
		return TokenParams{}, false
	}
	var root map[string]any
	if err := json.Unmarshal(raw, &root); err != nil {
		return TokenParams{}, false
	}

	if tp, ok := probeObject(root); ok {
		return tp, true
	}

	// Nested single-object shapes: {"ask": {...}}, {"listing": {...}},
	// {"offer": {...}}.
	for _, key := range []string{"ask", "listing", "offer"} {
		if sub, ok := root[key].(map[string]any); ok {
			if tp, ok := probeObject(sub); ok {
				return tp, true
			}
		}
	}

	// Plural shape: {"asks": [{...}, ...]}, first entry wins.
	if arr, ok := root["asks"].([]any); ok && len(arr) > 0 {
		if sub, ok := arr[0].(map[string]any); ok {
			if tp, ok := probeObject(sub); ok {
				return tp, true
			}
		}
	}

	return TokenParams{}, false
}

// probeObject tries to read a token identity out of one JSON object.
func probeObject(obj map[string]any) (TokenParams, bool) {
	tp := TokenParams{Qty: 1}

	tp.Contract = firstString(obj, "token_contract", "fa2", "fa2_address", "contract", "token_address")
	tp.TokenID = firstString(obj, "token_id", "objkt_id", "tokenId")

	// hen-style token object: {"token": {"address": ..., "token_id": ...}}.
	if tok, ok := obj["token"].(map[string]any); ok {
		if tp.Contract == "" {
			tp.Contract = firstString(tok, "address", "fa2", "contract")
		}
		if tp.TokenID == "" {
			tp.TokenID = firstString(tok, "token_id", "nat", "tokenId")
		}
	}

	if tp.Contract == "" || tp.TokenID == "" {
		return TokenParams{}, false
	}

	if qty, ok := firstInt(obj, "editions", "amount", "objkt_amount", "quantity"); ok && qty > 0 {
		tp.Qty = qty
	}
	if price, ok := firstInt(obj, "price", "xtz_per_objkt", "amount_mutez"); ok {
		tp.Price = &price
	}
	return tp, true
}

// firstString returns the first present key coerced to a string.
// Michelson JSON serializes nats as strings, so numbers coerce too.
func firstString(obj map[string]any, keys ...string) string {
	for _, k := range keys {
		switch v := obj[k].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			return strconv.FormatInt(int64(v), 10)
		}
	}
	return ""
}

// firstInt returns the first present key parsed as an integer.
func firstInt(obj map[string]any, keys ...string) (int64, bool) {
	for _, k := range keys {
		switch v := obj[k].(type) {
		case string:
			if n, err := strconv.ParseInt(v, 10, 64); err == nil {
				return n, true
			}
		case float64:
			return int64(v), true
		}
	}
	return 0, false
}
