package models

import (
	"github.com/goccy/go-json"
)

// EncodeIDs serializes an identifier list into the TEXT form persisted by
// the local store (a JSON array). An empty list encodes as "[]" so column
// values stay NOT NULL.
func EncodeIDs(ids []string) string {
	if len(ids) == 0 {
		return "[]"
	}
	b, err := json.Marshal(ids)
	if err != nil {
		// Marshalling []string cannot fail; keep the signature simple.
		return "[]"
	}
	return string(b)
}

// DecodeIDs parses the persisted TEXT form back into an identifier list.
// Malformed or empty input decodes as an empty list rather than an error:
// id lists are derived sync state and a bad value only means relinking has
// nothing to resolve.
func DecodeIDs(s string) []string {
	if s == "" {
		return nil
	}
	var ids []string
	if err := json.Unmarshal([]byte(s), &ids); err != nil {
		return nil
	}
	return ids
}

// RemovedIDs returns the identifiers present in prev but absent from next.
// The upsert engine uses it to evict locally cached artifacts for entries
// dropped from a wholesale-replaced remote list.
func RemovedIDs(prev, next []string) []string {
	keep := make(map[string]struct{}, len(next))
	for _, id := range next {
		keep[id] = struct{}{}
	}
	var removed []string
	for _, id := range prev {
		if _, ok := keep[id]; !ok {
			removed = append(removed, id)
		}
	}
	return removed
}

// SameIDs reports whether two identifier lists contain the same ids in the
// same order. Remote lists are replaced wholesale, so order is significant.
func SameIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
