package providers

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Kind identifies the category of data a provider serves.
type Kind string

// Provider kinds.
const (
	KindFlights Kind = "flights"
	KindLodging Kind = "lodging"
	KindWeather Kind = "weather"
)

// RawRecord is a single provider record in the provider's own shape.
type RawRecord map[string]any

// Query carries the search criteria sent to a provider.
type Query struct {
	Origin        string
	Destination   string
	LocationID    string
	DepartureDate string
	ReturnDate    string
	Adults        int
	Rooms         int
}

// Values encodes the query as URL parameters, skipping empty fields.
func (q Query) Values() url.Values {
	v := url.Values{}
	set := func(key, value string) {
		if value != "" {
			v.Set(key, value)
		}
	}
	set("origin", q.Origin)
	set("destination", q.Destination)
	set("location_id", q.LocationID)
	set("departure_date", q.DepartureDate)
	set("return_date", q.ReturnDate)
	if q.Adults > 0 {
		v.Set("adults", strconv.Itoa(q.Adults))
	}
	if q.Rooms > 0 {
		v.Set("rooms", strconv.Itoa(q.Rooms))
	}
	return v
}

// Provider defines the interface for travel data providers.
type Provider interface {
	// Name returns the provider name used in logs and warnings.
	Name() string
	// Search returns the provider's records for the query.
	Search(ctx context.Context, q Query) ([]RawRecord, error)
}

// LocationResolver is implemented by providers that need a destination id
// before they can search, such as lodging APIs.
type LocationResolver interface {
	ResolveLocation(ctx context.Context, query string) ([]RawRecord, error)
}

// ErrProviderUnavailable is returned when a provider is unavailable.
var ErrProviderUnavailable = errors.New("provider unavailable")

// StatusError reports a non-200 upstream response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("provider returned status %d: %s", e.Code, e.Body)
}

// Unwrap lets callers match the error against ErrProviderUnavailable.
func (e *StatusError) Unwrap() error {
	return ErrProviderUnavailable
}

// Records extracts records from a decoded JSON or YAML document. path is a
// dot separated list of keys leading to the records; an empty path uses the
// document itself. Arrays yield one record per object element, objects yield
// a single record.
func Records(doc any, path string) []RawRecord {
	node := doc
	for _, key := range splitPath(path) {
		m, ok := asMap(node)
		if !ok {
			return nil
		}
		node, ok = m[key]
		if !ok {
			return nil
		}
	}

	switch v := node.(type) {
	case []any:
		out := make([]RawRecord, 0, len(v))
		for _, item := range v {
			if m, ok := asMap(item); ok {
				out = append(out, RawRecord(m))
			}
		}
		return out
	case []RawRecord:
		return v
	default:
		if m, ok := asMap(v); ok {
			return []RawRecord{RawRecord(m)}
		}
		return nil
	}
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case RawRecord:
		return m, true
	default:
		return nil, false
	}
}

func splitPath(path string) []string {
	return strings.FieldsFunc(path, func(r rune) bool { return r == '.' })
}

// Clone returns a deep copy of r.
func (r RawRecord) Clone() RawRecord {
	if r == nil {
		return nil
	}
	return cloneValue(map[string]any(r)).(map[string]any)
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = cloneValue(val)
		}
		return out
	case RawRecord:
		return RawRecord(cloneValue(map[string]any(t)).(map[string]any))
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = cloneValue(val)
		}
		return out
	default:
		return v
	}
}
