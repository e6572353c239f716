package types

import (
	"encoding/json"
	"math"
	"time"
)

// DateLayout is the layout of every date carried in a planning request.
const DateLayout = "2006-01-02"

// Amount is a money value. +Inf marks a price that could not be parsed.
type Amount float64

// Unknown returns a price that sorts after every real price.
func Unknown() Amount {
	return Amount(math.Inf(1))
}

// Known reports whether the amount is a finite number.
func (a Amount) Known() bool {
	f := float64(a)
	return !math.IsInf(f, 0) && !math.IsNaN(f)
}

// MarshalJSON encodes unknown amounts as null.
func (a Amount) MarshalJSON() ([]byte, error) {
	if !a.Known() {
		return []byte("null"), nil
	}
	return json.Marshal(float64(a))
}

// UnmarshalJSON decodes null back into an unknown amount.
func (a *Amount) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*a = Unknown()
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*a = Amount(f)
	return nil
}

// FlightOffer is a normalized flight option.
type FlightOffer struct {
	ID              string `json:"id,omitempty"`
	Carrier         string `json:"carrier"`
	Price           Amount `json:"price"`
	Currency        string `json:"currency"`
	StopCount       int    `json:"stop_count"`
	DepartureTime   string `json:"departure_time,omitempty"`
	ArrivalTime     string `json:"arrival_time,omitempty"`
	DurationMinutes int    `json:"duration_minutes"`
	Source          string `json:"source,omitempty"`
}

// LodgingOffer is a normalized lodging option. Rating is on a 0-5 scale.
type LodgingOffer struct {
	ID            string   `json:"id,omitempty"`
	Name          string   `json:"name"`
	PricePerNight Amount   `json:"price_per_night"`
	Currency      string   `json:"currency"`
	Rating        float64  `json:"rating"`
	Location      string   `json:"location,omitempty"`
	Amenities     []string `json:"amenities,omitempty"`
	Source        string   `json:"source,omitempty"`
}

// WeatherSnapshot is the current weather at the destination.
type WeatherSnapshot struct {
	Location     string  `json:"location"`
	TemperatureC float64 `json:"temperature_celsius"`
	Condition    string  `json:"condition_description"`
	HumidityPct  float64 `json:"humidity_pct"`
	WindSpeed    float64 `json:"wind_speed"`
}

// Criteria is a planning request.
type Criteria struct {
	Origin        string   `json:"origin"`
	Destination   string   `json:"destination"`
	DepartureDate string   `json:"departure_date"`
	ReturnDate    string   `json:"return_date"`
	PartySize     int      `json:"party_size"`
	Rooms         int      `json:"rooms"`
	Budget        *float64 `json:"budget,omitempty"`
}

// Nights returns the number of nights between departure and return,
// or 0 when either date is missing or the range is empty.
func (c Criteria) Nights() int {
	dep, err := time.Parse(DateLayout, c.DepartureDate)
	if err != nil {
		return 0
	}
	ret, err := time.Parse(DateLayout, c.ReturnDate)
	if err != nil {
		return 0
	}
	nights := int(ret.Sub(dep).Hours() / 24)
	if nights < 0 {
		return 0
	}
	return nights
}

// TripBundle is the aggregate result of one planning request.
type TripBundle struct {
	Origin          string           `json:"origin"`
	Destination     string           `json:"destination"`
	DepartureDate   string           `json:"departure_date"`
	ReturnDate      string           `json:"return_date"`
	PartySize       int              `json:"party_size"`
	Rooms           int              `json:"rooms"`
	Budget          *float64         `json:"budget,omitempty"`
	Flights         []FlightOffer    `json:"flights"`
	Lodgings        []LodgingOffer   `json:"lodgings"`
	Weather         *WeatherSnapshot `json:"weather"`
	Recommendations []string         `json:"recommendations"`
}

// NewBundle returns an empty bundle for the given request.
func NewBundle(c Criteria) *TripBundle {
	return &TripBundle{
		Origin:          c.Origin,
		Destination:     c.Destination,
		DepartureDate:   c.DepartureDate,
		ReturnDate:      c.ReturnDate,
		PartySize:       c.PartySize,
		Rooms:           c.Rooms,
		Budget:          c.Budget,
		Flights:         []FlightOffer{},
		Lodgings:        []LodgingOffer{},
		Recommendations: []string{},
	}
}

// Clone returns a copy that shares no slices or pointers with b.
func (b TripBundle) Clone() TripBundle {
	out := b
	out.Flights = append([]FlightOffer{}, b.Flights...)
	out.Lodgings = make([]LodgingOffer, len(b.Lodgings))
	for i, l := range b.Lodgings {
		l.Amenities = append([]string(nil), l.Amenities...)
		out.Lodgings[i] = l
	}
	out.Recommendations = append([]string{}, b.Recommendations...)
	if b.Weather != nil {
		w := *b.Weather
		out.Weather = &w
	}
	if b.Budget != nil {
		v := *b.Budget
		out.Budget = &v
	}
	return out
}

// ScoredCombination is a ranked flight/lodging pairing.
type ScoredCombination struct {
	Flight     FlightOffer  `json:"flight"`
	Lodging    LodgingOffer `json:"lodging"`
	Nights     int          `json:"nights"`
	TotalCost  Amount       `json:"total_cost"`
	ValueScore float64      `json:"value_score"`
}

// State is a step of the planning state machine.
type State string

// Planning states, in the order they are reached.
const (
	StateInit                 State = "INIT"
	StateFlightsFetched       State = "FLIGHTS_FETCHED"
	StateLodgingResolved      State = "LODGING_RESOLVED"
	StateLodgingFetched       State = "LODGING_FETCHED"
	StateWeatherFetched       State = "WEATHER_FETCHED"
	StateRecommendationsBuilt State = "RECOMMENDATIONS_BUILT"
	StateFiltered             State = "FILTERED"
	StateScored               State = "SCORED"
	StateDone                 State = "DONE"
)

// PriceStats summarizes the known prices of one offer category.
type PriceStats struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	StdDev float64 `json:"std_dev"`
}

// PlanStats describes how a plan was assembled.
type PlanStats struct {
	ProvidersTotal     int        `json:"providers_total"`
	ProvidersSucceeded int        `json:"providers_succeeded"`
	ProvidersFailed    int        `json:"providers_failed"`
	MalformedRecords   int        `json:"malformed_records"`
	Candidates         int        `json:"candidates"`
	Flights            PriceStats `json:"flights"`
	Lodgings           PriceStats `json:"lodgings"`
}

// Plan is the planning response.
type Plan struct {
	ID       string              `json:"id"`
	Bundle   TripBundle          `json:"bundle"`
	Best     *ScoredCombination  `json:"best_combination"`
	Ranked   []ScoredCombination `json:"ranked"`
	Warnings []string            `json:"warnings"`
	Trace    []State             `json:"trace"`
	Stats    PlanStats           `json:"stats"`
}
