package planner

import (
	"math"
	"slices"

	"github.com/alex-user-go/tripplan/internal/planner/types"
)

// PriceStatsOf summarizes prices. Unknown prices are ignored; an empty input
// yields the zero value.
func PriceStatsOf(prices []types.Amount) types.PriceStats {
	values := make([]float64, 0, len(prices))
	for _, p := range prices {
		if p.Known() {
			values = append(values, float64(p))
		}
	}
	if len(values) == 0 {
		return types.PriceStats{}
	}
	slices.Sort(values)

	var sum float64
	for _, v := range values {
		sum += v
	}
	n := float64(len(values))
	mean := sum / n

	var sq float64
	for _, v := range values {
		sq += (v - mean) * (v - mean)
	}

	mid := len(values) / 2
	median := values[mid]
	if len(values)%2 == 0 {
		median = (values[mid-1] + values[mid]) / 2
	}

	return types.PriceStats{
		Count:  len(values),
		Mean:   mean,
		Median: median,
		Min:    values[0],
		Max:    values[len(values)-1],
		StdDev: math.Sqrt(sq / n),
	}
}

func flightPrices(flights []types.FlightOffer) []types.Amount {
	out := make([]types.Amount, len(flights))
	for i, f := range flights {
		out[i] = f.Price
	}
	return out
}

func lodgingPrices(lodgings []types.LodgingOffer) []types.Amount {
	out := make([]types.Amount, len(lodgings))
	for i, l := range lodgings {
		out[i] = l.PricePerNight
	}
	return out
}
