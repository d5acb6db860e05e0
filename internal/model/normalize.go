package model

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// NormalizePayload returns a copy of p with every string value converted to
// Unicode NFC, recursing into nested objects and arrays. Identifiers typed
// with a different normal form on another device then compare equal.
func NormalizePayload(p map[string]any) map[string]any {
	if p == nil {
		return nil
	}
	out := make(map[string]any, len(p))
	for k, v := range p {
		out[k] = normalizeValue(v)
	}
	return out
}

func normalizeValue(v any) any {
	switch val := v.(type) {
	case string:
		return norm.NFC.String(val)
	case map[string]any:
		return NormalizePayload(val)
	case []any:
		arr := make([]any, len(val))
		for i, e := range val {
			arr[i] = normalizeValue(e)
		}
		return arr
	default:
		return v
	}
}

// NormalizeID canonicalises a client identifier: NFC and surrounding
// whitespace removed.
func NormalizeID(id string) string {
	return strings.TrimSpace(norm.NFC.String(id))
}
