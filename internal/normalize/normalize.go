// Package normalize converts provider records into the canonical offer
// shapes. Nothing in this package fails a batch: malformed values degrade to
// defaults or sentinels and are reported alongside the result.
package normalize

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"math"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/alex-user-go/tripplan/internal/planner/types"
	"github.com/alex-user-go/tripplan/internal/providers"
)

// ErrMalformedRecord marks a record that needed default values.
var ErrMalformedRecord = errors.New("malformed record")

// RecordError lists the fields of one record that could not be parsed.
type RecordError struct {
	Kind   providers.Kind
	ID     string
	Fields []string
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("malformed %s record %q: unparsable %s", e.Kind, e.ID, strings.Join(e.Fields, ", "))
}

// Unwrap returns ErrMalformedRecord.
func (e *RecordError) Unwrap() error {
	return ErrMalformedRecord
}

var (
	priceToken   = regexp.MustCompile(`-?[0-9][0-9,]*(?:\.[0-9]+)?`)
	numberToken  = regexp.MustCompile(`-?[0-9]+(?:\.[0-9]+)?`)
	hoursToken   = regexp.MustCompile(`(?i)(\d+)\s*h`)
	minutesToken = regexp.MustCompile(`(?i)(\d+)\s*m`)
	keyReplacer  = strings.NewReplacer(" ", "_", "-", "_")
)

// Clean standardizes top-level keys with Key and trims string values. When
// several keys clean to the same name, a key already in clean form wins,
// then the lexically smallest one. The input is not modified.
func Clean(raw providers.RawRecord) providers.RawRecord {
	out := make(providers.RawRecord, len(raw))
	for _, k := range slices.Sorted(maps.Keys(raw)) {
		key := Key(k)
		if _, taken := out[key]; taken && k != key {
			continue
		}
		v := raw[k]
		if s, ok := v.(string); ok {
			v = strings.TrimSpace(s)
		}
		out[key] = v
	}
	return out
}

// Key returns the clean form of a field name: lowercase, with spaces and
// dashes turned into underscores.
func Key(k string) string {
	return keyReplacer.Replace(strings.ToLower(strings.TrimSpace(k)))
}

// ParsePrice resolves a price value. Strings are scanned for the first
// numeric token; thousands separators are accepted. Anything without a usable
// non-negative number yields types.Unknown() and false, including strings
// whose first number carries a minus sign ("-50", "USD -120.00").
func ParsePrice(v any) (types.Amount, bool) {
	switch p := v.(type) {
	case string:
		token := priceToken.FindString(p)
		if token == "" || strings.HasPrefix(token, "-") {
			return types.Unknown(), false
		}
		f, err := strconv.ParseFloat(strings.ReplaceAll(token, ",", ""), 64)
		if err != nil {
			return types.Unknown(), false
		}
		return types.Amount(f), true
	default:
		f, ok := toFloat(v)
		if !ok || f < 0 || math.IsInf(f, 0) {
			return types.Unknown(), false
		}
		return types.Amount(f), true
	}
}

// DurationMinutes converts strings like "2h 30m" or "PT2H30M" to minutes.
// Missing components count as zero.
func DurationMinutes(s string) int {
	total := 0
	if m := hoursToken.FindStringSubmatch(s); m != nil {
		h, _ := strconv.Atoi(m[1])
		total += h * 60
	}
	if m := minutesToken.FindStringSubmatch(s); m != nil {
		mins, _ := strconv.Atoi(m[1])
		total += mins
	}
	return total
}

// Rating maps a rating onto the 5-point scale. Values above 5 are treated as
// 10-point ratings. The result is clamped to [0, 5] with one decimal.
func Rating(r float64) float64 {
	if math.IsNaN(r) {
		return 0
	}
	if r > 5 {
		r /= 2
	}
	r = math.Min(5, math.Max(0, r))
	return math.Round(r*10) / 10
}

// TitleCase returns s in title case with collapsed whitespace.
func TitleCase(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return ""
	}
	return cases.Title(language.English).String(s)
}

// Currency upper-cases an ISO code, falling back to USD.
func Currency(v any) string {
	s, _ := v.(string)
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return "USD"
	}
	return s
}

// toFloat converts numeric values and numeric-looking strings. Strings may
// carry units ("22°C", "65%").
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, !math.IsNaN(n)
	case float32:
		return float64(n), !math.IsNaN(float64(n))
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		token := numberToken.FindString(n)
		if token == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(token, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// toInt converts like toFloat and truncates.
func toInt(v any) (int, bool) {
	f, ok := toFloat(v)
	if !ok {
		return 0, false
	}
	return int(f), true
}

func toString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(s)
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case int:
		return strconv.Itoa(s)
	case json.Number:
		return s.String()
	case map[string]any, []any:
		return ""
	default:
		return strings.TrimSpace(fmt.Sprint(s))
	}
}
