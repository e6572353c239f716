// Package budget removes offers that do not fit a traveller's budget.
package budget

import (
	"errors"
	"fmt"
	"math"

	"github.com/alex-user-go/tripplan/internal/planner/types"
)

// ErrInvalidConfiguration is matched by every *InvalidConfigurationError.
var ErrInvalidConfiguration = errors.New("invalid budget configuration")

// InvalidConfigurationError reports an unusable budget or allocation.
type InvalidConfigurationError struct {
	Field  string
	Value  float64
	Reason string
}

func (e *InvalidConfigurationError) Error() string {
	return fmt.Sprintf("invalid %s %v: %s", e.Field, e.Value, e.Reason)
}

// Unwrap returns ErrInvalidConfiguration.
func (e *InvalidConfigurationError) Unwrap() error {
	return ErrInvalidConfiguration
}

// Allocation is the share of the total budget each category may use.
// The shares need not add up to one.
type Allocation struct {
	Flight  float64 `mapstructure:"flight_allocation" yaml:"flight_allocation"`
	Lodging float64 `mapstructure:"lodging_allocation" yaml:"lodging_allocation"`
}

// DefaultAllocation returns a 60/40 split between flights and lodging.
func DefaultAllocation() Allocation {
	return Allocation{Flight: 0.6, Lodging: 0.4}
}

// Validate checks that both shares are in (0, 1].
func (a Allocation) Validate() error {
	if err := validShare("flight_allocation", a.Flight); err != nil {
		return err
	}
	return validShare("lodging_allocation", a.Lodging)
}

func validShare(field string, v float64) error {
	if math.IsNaN(v) || v <= 0 || v > 1 {
		return &InvalidConfigurationError{Field: field, Value: v, Reason: "must be in (0, 1]"}
	}
	return nil
}

// Filter returns a copy of bundle without the flights priced above
// budget*alloc.Flight and the lodgings priced per night above
// budget*alloc.Lodging. Offers with an unknown price are always removed.
// The input bundle is not modified.
func Filter(bundle types.TripBundle, budget float64, alloc Allocation) (types.TripBundle, error) {
	if err := alloc.Validate(); err != nil {
		return types.TripBundle{}, err
	}
	if math.IsNaN(budget) || budget < 0 {
		return types.TripBundle{}, &InvalidConfigurationError{Field: "budget", Value: budget, Reason: "must be a non-negative number"}
	}

	out := bundle.Clone()
	flightCap := budget * alloc.Flight
	lodgingCap := budget * alloc.Lodging

	out.Flights = out.Flights[:0]
	for _, f := range bundle.Flights {
		if f.Price.Known() && float64(f.Price) <= flightCap {
			out.Flights = append(out.Flights, f)
		}
	}

	lodgings := out.Lodgings
	out.Lodgings = make([]types.LodgingOffer, 0, len(lodgings))
	for _, l := range lodgings {
		if l.PricePerNight.Known() && float64(l.PricePerNight) <= lodgingCap {
			out.Lodgings = append(out.Lodgings, l)
		}
	}

	return out, nil
}
