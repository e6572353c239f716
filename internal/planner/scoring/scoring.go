// Package scoring ranks flight and lodging pairings by value for money.
package scoring

import (
	"cmp"
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/alex-user-go/tripplan/internal/planner/types"
)

// ErrInvalidCost is matched by every *InvalidCostError.
var ErrInvalidCost = errors.New("invalid total cost")

// InvalidCostError is returned for a pairing whose total cost is not positive.
type InvalidCostError struct {
	Flight  string
	Lodging string
	Total   float64
}

func (e *InvalidCostError) Error() string {
	return fmt.Sprintf("pairing %s/%s has non-positive total cost %.2f", e.Flight, e.Lodging, e.Total)
}

// Unwrap returns ErrInvalidCost.
func (e *InvalidCostError) Unwrap() error {
	return ErrInvalidCost
}

// Weights holds the constants of the value heuristic.
type Weights struct {
	// MaxStopPenalty caps the quality points a flight loses for stops.
	MaxStopPenalty int
	// PerAmount is the cost unit the quality points are divided by.
	PerAmount float64
}

// DefaultWeights returns the standard heuristic constants.
func DefaultWeights() Weights {
	return Weights{MaxStopPenalty: 4, PerAmount: 100}
}

// Scorer scores pairings with a fixed set of weights.
type Scorer struct {
	weights Weights
}

// New creates a Scorer. Zero fields fall back to DefaultWeights.
func New(w Weights) *Scorer {
	def := DefaultWeights()
	if w.MaxStopPenalty <= 0 {
		w.MaxStopPenalty = def.MaxStopPenalty
	}
	if w.PerAmount <= 0 {
		w.PerAmount = def.PerAmount
	}
	return &Scorer{weights: w}
}

// Score computes the total cost and value score of one pairing.
// Pairings with an unknown price get a zero score and an unknown total.
func (s *Scorer) Score(f types.FlightOffer, l types.LodgingOffer, nights int) (types.ScoredCombination, error) {
	nights = max(nights, 0)
	combo := types.ScoredCombination{
		Flight:  f,
		Lodging: l,
		Nights:  nights,
	}

	if !f.Price.Known() || !l.PricePerNight.Known() {
		combo.TotalCost = types.Unknown()
		return combo, nil
	}

	total := float64(f.Price) + float64(l.PricePerNight)*float64(nights)
	if total <= 0 {
		return combo, &InvalidCostError{Flight: label(f.ID, f.Carrier), Lodging: label(l.ID, l.Name), Total: total}
	}

	flightQuality := float64(5 - min(max(f.StopCount, 0), s.weights.MaxStopPenalty))
	combo.TotalCost = types.Amount(total)
	combo.ValueScore = (flightQuality + l.Rating) / (total / s.weights.PerAmount)
	return combo, nil
}

// Rank scores the full cross product and sorts it by descending score, then
// ascending total cost, then input order. Pairings with an invalid cost are
// left out; their errors are joined and returned with the ranking.
func (s *Scorer) Rank(flights []types.FlightOffer, lodgings []types.LodgingOffer, nights int) ([]types.ScoredCombination, error) {
	ranked := make([]types.ScoredCombination, 0, len(flights)*len(lodgings))
	var errs []error

	for _, f := range flights {
		for _, l := range lodgings {
			combo, err := s.Score(f, l, nights)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			ranked = append(ranked, combo)
		}
	}

	slices.SortStableFunc(ranked, func(a, b types.ScoredCombination) int {
		if c := cmp.Compare(b.ValueScore, a.ValueScore); c != 0 {
			return c
		}
		return cmp.Compare(float64(a.TotalCost), float64(b.TotalCost))
	})

	return ranked, errors.Join(errs...)
}

// Best returns the highest ranked pairing. The boolean is false when there
// is nothing to rank.
func (s *Scorer) Best(flights []types.FlightOffer, lodgings []types.LodgingOffer, nights int) (types.ScoredCombination, bool) {
	ranked, _ := s.Rank(flights, lodgings, nights)
	if len(ranked) == 0 {
		return types.ScoredCombination{}, false
	}
	return ranked[0], true
}

// BestDeals orders lodgings by rating per unit of nightly price, best first.
// Lodgings without a usable price sort last. The input is not modified.
func BestDeals(lodgings []types.LodgingOffer) []types.LodgingOffer {
	out := slices.Clone(lodgings)
	slices.SortStableFunc(out, func(a, b types.LodgingOffer) int {
		return cmp.Compare(dealRatio(b), dealRatio(a))
	})
	return out
}

func dealRatio(l types.LodgingOffer) float64 {
	price := float64(l.PricePerNight)
	if !l.PricePerNight.Known() || price <= 0 {
		return math.Inf(-1)
	}
	return l.Rating / price
}

var defaultScorer = New(DefaultWeights())

// Score scores a pairing with DefaultWeights.
func Score(f types.FlightOffer, l types.LodgingOffer, nights int) (types.ScoredCombination, error) {
	return defaultScorer.Score(f, l, nights)
}

// Rank ranks pairings with DefaultWeights.
func Rank(flights []types.FlightOffer, lodgings []types.LodgingOffer, nights int) ([]types.ScoredCombination, error) {
	return defaultScorer.Rank(flights, lodgings, nights)
}

// Best returns the best pairing under DefaultWeights.
func Best(flights []types.FlightOffer, lodgings []types.LodgingOffer, nights int) (types.ScoredCombination, bool) {
	return defaultScorer.Best(flights, lodgings, nights)
}

func label(id, name string) string {
	if id != "" {
		return id
	}
	if name != "" {
		return name
	}
	return "?"
}
