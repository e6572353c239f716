package planner

import (
	"time"

	"github.com/alex-user-go/tripplan/internal/planner/budget"
	"github.com/alex-user-go/tripplan/internal/planner/scoring"
	"github.com/alex-user-go/tripplan/internal/providers"
)

// Sources lists the providers queried for each kind of data. Providers of
// one kind are merged in the listed order.
type Sources struct {
	Flights []providers.Provider
	Lodging []providers.Provider
	Weather []providers.Provider
}

func (s Sources) total() int {
	return len(s.Flights) + len(s.Lodging) + len(s.Weather)
}

// Options configures an Orchestrator.
type Options struct {
	// Timeout bounds the whole fetch phase. Zero means no limit beyond the
	// caller's context.
	Timeout time.Duration
	// ProviderTimeout bounds each provider call.
	ProviderTimeout time.Duration
	// Parallel fetches flights, lodging and weather concurrently.
	Parallel bool
	// Score ranks flight/lodging pairings after assembly.
	Score bool
	// TopN limits Plan.Ranked. Zero keeps every pairing.
	TopN int
	// DefaultNights is used for scoring when the request has no dates.
	DefaultNights int
	Allocation    budget.Allocation
	Weights       scoring.Weights
	// FlightKey and LodgingKey name the record field that identifies the same
	// offer across providers.
	FlightKey  string
	LodgingKey string
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		Timeout:         10 * time.Second,
		ProviderTimeout: 5 * time.Second,
		Parallel:        true,
		Score:           true,
		TopN:            10,
		DefaultNights:   5,
		Allocation:      budget.DefaultAllocation(),
		Weights:         scoring.DefaultWeights(),
		FlightKey:       "id",
		LodgingKey:      "id",
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.FlightKey == "" {
		o.FlightKey = def.FlightKey
	}
	if o.LodgingKey == "" {
		o.LodgingKey = def.LodgingKey
	}
	if o.DefaultNights <= 0 {
		o.DefaultNights = def.DefaultNights
	}
	if o.Allocation == (budget.Allocation{}) {
		o.Allocation = def.Allocation
	}
	return o
}
