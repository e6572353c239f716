// Package planner assembles a trip plan from independent flight, lodging and
// weather providers, then filters and ranks the result.
package planner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/alex-user-go/tripplan/internal/obs"
	"github.com/alex-user-go/tripplan/internal/planner/budget"
	"github.com/alex-user-go/tripplan/internal/planner/scoring"
	"github.com/alex-user-go/tripplan/internal/planner/types"
	"github.com/alex-user-go/tripplan/internal/providers"
)

// Orchestrator plans trips.
type Orchestrator struct {
	sources Sources
	opts    Options
	scorer  *scoring.Scorer
	metrics *obs.Metrics
	logger  *slog.Logger
}

// New creates a new Orchestrator.
func New(sources Sources, opts Options, metrics *obs.Metrics, logger *slog.Logger) *Orchestrator {
	opts = opts.withDefaults()
	return &Orchestrator{
		sources: sources,
		opts:    opts,
		scorer:  scoring.New(opts.Weights),
		metrics: metrics,
		logger:  logger,
	}
}

// Options returns the effective options.
func (o *Orchestrator) Options() Options {
	return o.opts
}

// run holds the state shared by the stages of one Plan call. Each stage
// writes only its own bundle field; the counters are guarded by mu.
type run struct {
	bundle *types.TripBundle

	mu        sync.Mutex
	warnings  []string
	succeeded int
	failed    int
	malformed int
}

// Plan queries every provider and assembles a plan. Provider failures are
// reported as warnings; only invalid criteria or configuration return an
// error.
func (o *Orchestrator) Plan(ctx context.Context, criteria types.Criteria) (*types.Plan, error) {
	c, err := validateCriteria(criteria)
	if err != nil {
		return nil, err
	}
	if c.Budget != nil {
		if err := o.opts.Allocation.Validate(); err != nil {
			return nil, err
		}
	}

	start := time.Now()
	plan := &types.Plan{
		ID:       uuid.NewString(),
		Ranked:   []types.ScoredCombination{},
		Warnings: []string{},
		Trace:    []types.State{types.StateInit},
	}
	logger := o.logger.With("plan_id", plan.ID, "destination", c.Destination)

	r := &run{bundle: types.NewBundle(c)}
	o.fetch(ctx, r, c, logger)
	plan.Trace = append(plan.Trace,
		types.StateFlightsFetched,
		types.StateLodgingResolved,
		types.StateLodgingFetched,
		types.StateWeatherFetched,
	)

	r.bundle.Recommendations = Recommendations(c.Destination, r.bundle.Weather)
	plan.Trace = append(plan.Trace, types.StateRecommendationsBuilt)

	bundle := *r.bundle
	if c.Budget != nil {
		filtered, err := budget.Filter(bundle, *c.Budget, o.opts.Allocation)
		if err != nil {
			return nil, err
		}
		logger.Debug("budget filter applied",
			"budget", *c.Budget,
			"flights_kept", len(filtered.Flights),
			"flights_dropped", len(bundle.Flights)-len(filtered.Flights),
			"lodgings_kept", len(filtered.Lodgings),
			"lodgings_dropped", len(bundle.Lodgings)-len(filtered.Lodgings))
		bundle = filtered
		plan.Trace = append(plan.Trace, types.StateFiltered)
	}

	if o.opts.Score {
		ranked, err := o.scorer.Rank(bundle.Flights, bundle.Lodgings, o.nights(c))
		if err != nil {
			skipped := countInvalidCost(err)
			logger.Warn("skipped pairings during scoring", "count", skipped, "error", err)
			r.warnings = append(r.warnings, fmt.Sprintf("scoring: skipped %d pairings with non-positive total cost", skipped))
		}
		if len(ranked) > 0 {
			best := ranked[0]
			plan.Best = &best
		}
		plan.Stats.Candidates = len(ranked)
		if o.opts.TopN > 0 && len(ranked) > o.opts.TopN {
			ranked = ranked[:o.opts.TopN]
		}
		plan.Ranked = ranked
		plan.Trace = append(plan.Trace, types.StateScored)
	}

	plan.Trace = append(plan.Trace, types.StateDone)
	plan.Bundle = bundle
	slices.Sort(r.warnings)
	plan.Warnings = append(plan.Warnings, r.warnings...)
	plan.Stats.ProvidersTotal = o.sources.total()
	plan.Stats.ProvidersSucceeded = r.succeeded
	plan.Stats.ProvidersFailed = r.failed
	plan.Stats.MalformedRecords = r.malformed
	plan.Stats.Flights = PriceStatsOf(flightPrices(bundle.Flights))
	plan.Stats.Lodgings = PriceStatsOf(lodgingPrices(bundle.Lodgings))

	o.metrics.IncPlans()
	logger.Info("plan assembled",
		"flights", len(bundle.Flights),
		"lodgings", len(bundle.Lodgings),
		"has_weather", bundle.Weather != nil,
		"providers_failed", r.failed,
		"warnings", len(plan.Warnings),
		"duration_ms", time.Since(start).Milliseconds())

	return plan, nil
}

// fetch runs the three provider stages, concurrently when configured, and
// returns once all of them have finished or the fetch deadline has passed.
func (o *Orchestrator) fetch(ctx context.Context, r *run, c types.Criteria, logger *slog.Logger) {
	if o.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.opts.Timeout)
		defer cancel()
	}

	q := providers.Query{
		Origin:        c.Origin,
		Destination:   c.Destination,
		DepartureDate: c.DepartureDate,
		ReturnDate:    c.ReturnDate,
		Adults:        c.PartySize,
		Rooms:         c.Rooms,
	}

	stages := []func(context.Context){
		func(ctx context.Context) { o.fetchFlights(ctx, r, q, logger) },
		func(ctx context.Context) { o.fetchLodging(ctx, r, q, logger) },
		func(ctx context.Context) { o.fetchWeather(ctx, r, q, logger) },
	}

	if !o.opts.Parallel {
		for _, stage := range stages {
			stage(ctx)
		}
		return
	}

	var wg sync.WaitGroup
	for _, stage := range stages {
		wg.Go(func() {
			stage(ctx)
		})
	}
	wg.Wait()
}

func (o *Orchestrator) nights(c types.Criteria) int {
	if c.DepartureDate == "" || c.ReturnDate == "" {
		return o.opts.DefaultNights
	}
	return c.Nights()
}

// validateCriteria trims the request and fills party size and rooms.
func validateCriteria(c types.Criteria) (types.Criteria, error) {
	c.Origin = strings.TrimSpace(c.Origin)
	c.Destination = strings.TrimSpace(c.Destination)
	c.DepartureDate = strings.TrimSpace(c.DepartureDate)
	c.ReturnDate = strings.TrimSpace(c.ReturnDate)

	if c.Destination == "" {
		return c, fmt.Errorf("%w: destination is required", ErrInvalidCriteria)
	}
	if c.Origin == "" {
		return c, fmt.Errorf("%w: origin is required", ErrInvalidCriteria)
	}

	var dep, ret time.Time
	var err error
	if c.DepartureDate != "" {
		if dep, err = time.Parse(types.DateLayout, c.DepartureDate); err != nil {
			return c, fmt.Errorf("%w: departure_date must be YYYY-MM-DD", ErrInvalidCriteria)
		}
	}
	if c.ReturnDate != "" {
		if ret, err = time.Parse(types.DateLayout, c.ReturnDate); err != nil {
			return c, fmt.Errorf("%w: return_date must be YYYY-MM-DD", ErrInvalidCriteria)
		}
	}
	if !dep.IsZero() && !ret.IsZero() && ret.Before(dep) {
		return c, fmt.Errorf("%w: return_date is before departure_date", ErrInvalidCriteria)
	}

	if c.PartySize < 0 {
		return c, fmt.Errorf("%w: party_size must not be negative", ErrInvalidCriteria)
	}
	if c.PartySize == 0 {
		c.PartySize = 1
	}
	if c.Rooms < 0 {
		return c, fmt.Errorf("%w: rooms must not be negative", ErrInvalidCriteria)
	}
	if c.Rooms == 0 {
		c.Rooms = 1
	}
	if c.Budget != nil && (math.IsNaN(*c.Budget) || math.IsInf(*c.Budget, 0) || *c.Budget < 0) {
		return c, fmt.Errorf("%w: budget must be a non-negative number", ErrInvalidCriteria)
	}
	return c, nil
}

func countInvalidCost(err error) int {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		return len(joined.Unwrap())
	}
	if errors.Is(err, scoring.ErrInvalidCost) {
		return 1
	}
	return 0
}
