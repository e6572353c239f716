package normalize

import (
	"strings"

	"github.com/alex-user-go/tripplan/internal/planner/types"
	"github.com/alex-user-go/tripplan/internal/providers"
)

// Flight converts a provider record into a FlightOffer. It accepts the flat
// agent shape, the Amadeus flight-offer shape and canonical records. The
// returned error, if any, is a *RecordError; the offer is usable either way.
func Flight(raw providers.RawRecord) (types.FlightOffer, error) {
	r := Canonical(providers.KindFlights, raw)
	var bad []string

	offer := types.FlightOffer{
		ID:            toString(r["id"]),
		Currency:      Currency(toString(r["currency"])),
		Source:        toString(r["source"]),
		DepartureTime: toString(r["departure_time"]),
		ArrivalTime:   toString(r["arrival_time"]),
	}

	price, ok := ParsePrice(r["price"])
	if !ok {
		bad = append(bad, "price")
	}
	offer.Price = price

	if name := toString(r["carrier"]); name != "" {
		offer.Carrier = TitleCase(name)
	} else {
		offer.Carrier = strings.ToUpper(toString(r["carrier_code"]))
	}

	if v, ok := r["stop_count"]; ok {
		stops, parsed := toInt(v)
		if !parsed {
			bad = append(bad, "stops")
		}
		offer.StopCount = max(stops, 0)
	}

	if v, ok := r["duration_minutes"]; ok {
		if mins, parsed := toInt(v); parsed && mins >= 0 {
			offer.DurationMinutes = mins
		} else {
			bad = append(bad, "duration_minutes")
		}
	}

	return offer, recordError(providers.KindFlights, offer.ID, offer.Carrier, bad)
}

// Lodging converts a provider record into a LodgingOffer. It accepts the flat
// agent shape, the RapidAPI hotels shape and canonical records.
func Lodging(raw providers.RawRecord) (types.LodgingOffer, error) {
	r := Canonical(providers.KindLodging, raw)
	var bad []string

	offer := types.LodgingOffer{
		ID:       toString(r["id"]),
		Name:     TitleCase(toString(r["name"])),
		Currency: Currency(toString(r["currency"])),
		Location: toString(r["location"]),
		Source:   toString(r["source"]),
	}

	price, ok := ParsePrice(r["price_per_night"])
	if !ok {
		bad = append(bad, "price")
	}
	offer.PricePerNight = price

	if v, ok := r["rating"]; ok {
		rating, parsed := toFloat(v)
		if !parsed {
			bad = append(bad, "rating")
		}
		offer.Rating = Rating(rating)
	}

	if v, ok := r["amenities"]; ok {
		offer.Amenities = stringSet(v)
	}

	return offer, recordError(providers.KindLodging, offer.ID, offer.Name, bad)
}

// Weather converts a provider record into a WeatherSnapshot. It accepts the
// agent shape ("22°C"), the flattened OpenWeather shape and the raw
// OpenWeather current-weather document.
func Weather(raw providers.RawRecord) (types.WeatherSnapshot, error) {
	r := Clean(raw)
	var bad []string

	snap := types.WeatherSnapshot{
		Location:  firstString(r, "location", "city", "name"),
		Condition: firstString(r, "condition", "description", "weather.0.description", "weather.0.main"),
	}

	parse := func(field string, dst *float64, paths ...string) {
		v, ok := first(r, paths...)
		if !ok {
			return
		}
		f, parsed := toFloat(v)
		if !parsed {
			bad = append(bad, field)
			return
		}
		*dst = f
	}
	parse("temperature", &snap.TemperatureC, "temperature_celsius", "temperature", "temp", "main.temp")
	parse("humidity", &snap.HumidityPct, "humidity_pct", "humidity", "main.humidity")
	parse("wind_speed", &snap.WindSpeed, "wind_speed", "wind.speed")

	return snap, recordError(providers.KindWeather, snap.Location, "", bad)
}

// Flights normalizes a batch. The output always has one offer per record.
func Flights(records []providers.RawRecord) ([]types.FlightOffer, []error) {
	out := make([]types.FlightOffer, 0, len(records))
	var errs []error
	for _, r := range records {
		offer, err := Flight(r)
		if err != nil {
			errs = append(errs, err)
		}
		out = append(out, offer)
	}
	return out, errs
}

// Lodgings normalizes a batch. The output always has one offer per record.
func Lodgings(records []providers.RawRecord) ([]types.LodgingOffer, []error) {
	out := make([]types.LodgingOffer, 0, len(records))
	var errs []error
	for _, r := range records {
		offer, err := Lodging(r)
		if err != nil {
			errs = append(errs, err)
		}
		out = append(out, offer)
	}
	return out, errs
}

func recordError(kind providers.Kind, id, fallback string, fields []string) error {
	if len(fields) == 0 {
		return nil
	}
	if id == "" {
		id = fallback
	}
	return &RecordError{Kind: kind, ID: id, Fields: fields}
}
