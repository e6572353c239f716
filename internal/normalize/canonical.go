package normalize

import (
	"strconv"

	"github.com/alex-user-go/tripplan/internal/providers"
)

// Canonical resolves a raw record to a flat record keyed by canonical field
// names, keeping the unparsed values. Fields the record does not carry are
// absent, so merging canonical records field by field lets a later source
// override exactly the fields it provides. Weather records are only cleaned.
func Canonical(kind providers.Kind, raw providers.RawRecord) providers.RawRecord {
	switch kind {
	case providers.KindFlights:
		return canonicalFlight(Clean(raw))
	case providers.KindLodging:
		return canonicalLodging(Clean(raw))
	default:
		return Clean(raw)
	}
}

func canonicalFlight(r providers.RawRecord) providers.RawRecord {
	out := providers.RawRecord{}
	pick(out, r, "id", "id", "flight_id")
	pick(out, r, "source", "source")
	pick(out, r, "currency", "currency", "price.currency")
	pick(out, r, "price", "price.total", "price", "total_price", "cost")
	pick(out, r, "carrier", "airline", "carrier", "airline_name")
	pick(out, r, "carrier_code", "carrier_code",
		"itineraries.0.segments.0.carrier", "itineraries.0.segments.0.carrierCode")
	pick(out, r, "departure_time", "departure", "departure_time",
		"itineraries.0.segments.0.departure_time", "itineraries.0.segments.0.departure.at")

	segments, _ := first(r, "itineraries.0.segments")
	segs, _ := segments.([]any)

	if !pick(out, r, "stop_count", "stops", "stop_count", "number_of_stops") && len(segs) > 0 {
		out["stop_count"] = len(segs) - 1
	}

	arrivals := []string{"arrival", "arrival_time"}
	if len(segs) > 0 {
		last := "itineraries.0.segments." + strconv.Itoa(len(segs)-1)
		arrivals = append(arrivals, last+".arrival_time", last+".arrival.at")
	}
	pick(out, r, "arrival_time", arrivals...)

	if !pick(out, r, "duration_minutes", "duration_minutes") {
		if s := firstString(r, "duration", "itineraries.0.duration"); s != "" {
			out["duration_minutes"] = DurationMinutes(s)
		}
	}
	return out
}

func canonicalLodging(r providers.RawRecord) providers.RawRecord {
	out := providers.RawRecord{}
	pick(out, r, "id", "id", "hotel_id", "property_id")
	pick(out, r, "source", "source")
	pick(out, r, "name", "name", "hotel_name")
	pick(out, r, "currency", "currency", "rateplan.price.currency")
	pick(out, r, "price_per_night", "price_per_night", "rateplan.price.current", "price", "nightly_rate")
	pick(out, r, "rating", "rating", "review_score", "guestreviews.score", "star_rating", "starrating")
	pick(out, r, "amenities", "amenities", "property_amenities")

	if loc := firstString(r, "location", "city", "address.cityName", "address.locality",
		"address.streetAddress", "address"); loc != "" {
		out["location"] = loc
	}
	return out
}

// pick copies the first present value among paths into out[key].
func pick(out, r providers.RawRecord, key string, paths ...string) bool {
	v, ok := first(r, paths...)
	if ok {
		out[key] = v
	}
	return ok
}
