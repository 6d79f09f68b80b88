package cache

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// BuildKey derives the canonical cache key for a namespace and its
// parameters. The same logical query always yields the same key:
// object keys are sorted at every nesting level, null members are
// omitted (an unset optional field and an absent field are
// equivalent), numbers keep their upstream text, and arrays keep
// their order. Nil or empty params canonicalize to "{}".
//
// Every façade and the cache warmer build keys through this function;
// namespaces are unique per entity and operation family.
func BuildKey(namespace string, params any) string {
	return namespace + ":" + canonicalize(params)
}

// canonicalize renders params as deterministic JSON.
func canonicalize(params any) string {
	if params == nil {
		return "{}"
	}

	raw, err := json.Marshal(params)
	if err != nil {
		// Non-serializable params never occur on the fetch paths;
		// keep the key usable rather than panic.
		return fmt.Sprintf("%v", params)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return string(raw)
	}
	if v == nil {
		return "{}"
	}

	out, err := json.Marshal(normalize(v))
	if err != nil {
		return string(raw)
	}
	return string(out)
}

// normalize drops null object members recursively. Marshaling the
// resulting maps emits keys in sorted order.
func normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for key, val := range t {
			if val == nil {
				continue
			}
			m[key] = normalize(val)
		}
		return m
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			if val == nil {
				out[i] = nil
				continue
			}
			out[i] = normalize(val)
		}
		return out
	default:
		return v
	}
}
