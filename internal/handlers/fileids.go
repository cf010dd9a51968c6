package handlers

import (
	"encoding/json"
	"strings"
)

// RawFileIDs tolerates the legacy contract's many shapes for "file_ids":
// a JSON array, a JSON-encoded string containing an array, a literal
// comma-separated string, or a bare single id. Go Pattern: json.RawMessage
// defers parsing so one field can accept any of these shapes; normalize at
// the request boundary into an ordered, deduplicated slice (see
// SPEC_FULL.md §9, "file_ids over-tolerance").
type RawFileIDs json.RawMessage

// Normalize converts the raw payload into an ordered slice of ids, with
// duplicates removed but order preserved.
func (r RawFileIDs) Normalize() []string {
	raw := strings.TrimSpace(string(r))
	if raw == "" || raw == "null" {
		return nil
	}

	var ids []string

	var arr []string
	if err := json.Unmarshal(r, &arr); err == nil {
		ids = arr
	} else {
		var single string
		if err := json.Unmarshal(r, &single); err == nil {
			single = strings.Trim(single, "[]")
			for _, part := range strings.Split(single, ",") {
				part = strings.Trim(strings.TrimSpace(part), `"' `)
				if part != "" {
					ids = append(ids, part)
				}
			}
		} else {
			for _, part := range strings.Split(strings.Trim(raw, `"[]`), ",") {
				part = strings.Trim(strings.TrimSpace(part), `"' `)
				if part != "" {
					ids = append(ids, part)
				}
			}
		}
	}

	return dedupeOrdered(ids)
}

func dedupeOrdered(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
