package normalize

import (
	"sort"
	"strconv"
	"strings"

	"github.com/alex-user-go/tripplan/internal/providers"
)

// lookup walks a dot path through nested maps and arrays ("weather.0.main").
func lookup(r providers.RawRecord, path string) (any, bool) {
	var node any = map[string]any(r)
	for _, key := range strings.Split(path, ".") {
		switch n := node.(type) {
		case map[string]any:
			v, ok := n[key]
			if !ok {
				return nil, false
			}
			node = v
		case providers.RawRecord:
			v, ok := n[key]
			if !ok {
				return nil, false
			}
			node = v
		case []any:
			i, err := strconv.Atoi(key)
			if err != nil || i < 0 || i >= len(n) {
				return nil, false
			}
			node = n[i]
		default:
			return nil, false
		}
	}
	return node, true
}

// first returns the first value among paths that is present and not blank.
func first(r providers.RawRecord, paths ...string) (any, bool) {
	for _, p := range paths {
		v, ok := lookup(r, p)
		if !ok || v == nil {
			continue
		}
		if s, isString := v.(string); isString && strings.TrimSpace(s) == "" {
			continue
		}
		return v, true
	}
	return nil, false
}

func firstString(r providers.RawRecord, paths ...string) string {
	v, _ := first(r, paths...)
	return toString(v)
}

// stringSet flattens a list or comma separated string into sorted unique
// values.
func stringSet(v any) []string {
	var items []string
	switch t := v.(type) {
	case []any:
		for _, item := range t {
			items = append(items, toString(item))
		}
	case []string:
		items = append(items, t...)
	case string:
		items = strings.Split(t, ",")
	}

	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	sort.Strings(out)
	return out
}
