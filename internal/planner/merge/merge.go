// Package merge combines provider results for the same query into one list.
package merge

import (
	"fmt"

	"github.com/alex-user-go/tripplan/internal/providers"
)

// Merge combines sources in order. A record is identified by the value of
// identityKey. The first occurrence fixes the record's position; later
// occurrences overwrite it field by field, so the last source to set a field
// wins and fields it omits are kept. Records without an identity value are
// dropped. The inputs are not modified.
func Merge(sources [][]providers.RawRecord, identityKey string) []providers.RawRecord {
	index := make(map[string]int)
	var out []providers.RawRecord

	for _, records := range sources {
		for _, r := range records {
			id, ok := identity(r, identityKey)
			if !ok {
				continue
			}

			if i, seen := index[id]; seen {
				for k, v := range r.Clone() {
					out[i][k] = v
				}
				continue
			}

			index[id] = len(out)
			out = append(out, r.Clone())
		}
	}

	if out == nil {
		return []providers.RawRecord{}
	}
	return out
}

// identity renders the identity value as a string so that 7 and "7" from
// different providers collapse into one record.
func identity(r providers.RawRecord, key string) (string, bool) {
	v, ok := r[key]
	if !ok || v == nil {
		return "", false
	}
	s := fmt.Sprint(v)
	if s == "" {
		return "", false
	}
	return s, true
}
