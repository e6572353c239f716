package planner_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alex-user-go/tripplan/internal/obs"
	"github.com/alex-user-go/tripplan/internal/planner"
	"github.com/alex-user-go/tripplan/internal/planner/budget"
	"github.com/alex-user-go/tripplan/internal/planner/types"
	"github.com/alex-user-go/tripplan/internal/providers"
)

// mockProvider is a test provider that returns predefined records.
type mockProvider struct {
	name      string
	records   []providers.RawRecord
	err       error
	delay     time.Duration
	ignoreCtx bool
	panics    bool
	log       *callLog
}

func (m *mockProvider) Name() string {
	return m.name
}

func (m *mockProvider) Search(ctx context.Context, _ providers.Query) ([]providers.RawRecord, error) {
	m.log.add(m.name)
	if m.panics {
		panic("boom")
	}
	if m.delay > 0 {
		if m.ignoreCtx {
			time.Sleep(m.delay)
		} else {
			select {
			case <-time.After(m.delay):
			case <-ctx.Done():
				return nil, context.Cause(ctx)
			}
		}
	}
	return m.records, m.err
}

// resolvingProvider is a lodging provider with a location lookup step.
type resolvingProvider struct {
	mockProvider
	locations []providers.RawRecord
	lastQuery providers.Query
}

func (r *resolvingProvider) ResolveLocation(_ context.Context, _ string) ([]providers.RawRecord, error) {
	return r.locations, nil
}

func (r *resolvingProvider) Search(ctx context.Context, q providers.Query) ([]providers.RawRecord, error) {
	r.lastQuery = q
	return r.mockProvider.Search(ctx, q)
}

type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) add(name string) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, name)
}

func fixture(t *testing.T, kind providers.Kind) providers.Provider {
	t.Helper()
	p, err := providers.BuiltinFixture(kind)
	if err != nil {
		t.Fatalf("failed to load %s fixture: %v", kind, err)
	}
	return p
}

func fixtureSources(t *testing.T) planner.Sources {
	return planner.Sources{
		Flights: []providers.Provider{fixture(t, providers.KindFlights)},
		Lodging: []providers.Provider{fixture(t, providers.KindLodging)},
		Weather: []providers.Provider{fixture(t, providers.KindWeather)},
	}
}

func newOrchestrator(sources planner.Sources, opts planner.Options) (*planner.Orchestrator, *obs.Metrics) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	metrics := obs.NewMetrics(logger)
	return planner.New(sources, opts, metrics, logger), metrics
}

func parisTrip() types.Criteria {
	return types.Criteria{
		Origin:        "NYC",
		Destination:   "Paris",
		DepartureDate: "2025-06-01",
		ReturnDate:    "2025-06-06",
		PartySize:     2,
	}
}

func TestOrchestrator_Plan_Fixtures(t *testing.T) {
	orch, _ := newOrchestrator(fixtureSources(t), planner.DefaultOptions())

	plan, err := orch.Plan(context.Background(), parisTrip())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if plan.ID == "" {
		t.Error("expected a plan id")
	}
	if len(plan.Bundle.Flights) != 3 {
		t.Errorf("expected 3 flights, got %d", len(plan.Bundle.Flights))
	}
	if len(plan.Bundle.Lodgings) != 3 {
		t.Errorf("expected 3 lodgings, got %d", len(plan.Bundle.Lodgings))
	}
	if plan.Bundle.Weather == nil {
		t.Fatal("expected weather")
	}
	if plan.Bundle.Weather.TemperatureC != 22 || plan.Bundle.Weather.Location != "Paris" {
		t.Errorf("unexpected weather: %+v", *plan.Bundle.Weather)
	}
	if len(plan.Warnings) != 0 {
		t.Errorf("expected no warnings, got %v", plan.Warnings)
	}

	// 22°C and sunny: no packing advice, only the Paris list.
	if len(plan.Bundle.Recommendations) != 4 || plan.Bundle.Recommendations[0] != "Visit the Eiffel Tower" {
		t.Errorf("unexpected recommendations: %v", plan.Bundle.Recommendations)
	}

	wantTrace := []types.State{
		types.StateInit,
		types.StateFlightsFetched,
		types.StateLodgingResolved,
		types.StateLodgingFetched,
		types.StateWeatherFetched,
		types.StateRecommendationsBuilt,
		types.StateScored,
		types.StateDone,
	}
	if strings.Join(stateNames(plan.Trace), ",") != strings.Join(stateNames(wantTrace), ",") {
		t.Errorf("expected trace %v, got %v", wantTrace, plan.Trace)
	}

	if plan.Best == nil {
		t.Fatal("expected a best combination")
	}
	if plan.Best.Flight.Carrier != "Sky Airlines" || plan.Best.Lodging.Name != "City Central Inn" {
		t.Errorf("unexpected best combination: %s + %s", plan.Best.Flight.Carrier, plan.Best.Lodging.Name)
	}
	if plan.Best.Nights != 5 {
		t.Errorf("expected 5 nights, got %d", plan.Best.Nights)
	}
	if plan.Stats.Candidates != 9 || len(plan.Ranked) != 9 {
		t.Errorf("expected 9 candidates, got %d (%d ranked)", plan.Stats.Candidates, len(plan.Ranked))
	}

	if plan.Stats.ProvidersTotal != 3 || plan.Stats.ProvidersSucceeded != 3 || plan.Stats.ProvidersFailed != 0 {
		t.Errorf("unexpected provider stats: %+v", plan.Stats)
	}
	if plan.Stats.Flights.Count != 3 || plan.Stats.Flights.Min != 380 || plan.Stats.Flights.Max != 520 {
		t.Errorf("unexpected flight price stats: %+v", plan.Stats.Flights)
	}
}

func TestOrchestrator_Plan_PartialFailure(t *testing.T) {
	sources := fixtureSources(t)
	sources.Weather = []providers.Provider{
		&mockProvider{name: "weather-down", err: errors.New("connection refused")},
	}
	orch, metrics := newOrchestrator(sources, planner.DefaultOptions())

	plan, err := orch.Plan(context.Background(), parisTrip())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(plan.Bundle.Flights) == 0 || len(plan.Bundle.Lodgings) == 0 {
		t.Errorf("expected flights and lodgings, got %d and %d", len(plan.Bundle.Flights), len(plan.Bundle.Lodgings))
	}
	if plan.Bundle.Weather != nil {
		t.Errorf("expected no weather, got %+v", *plan.Bundle.Weather)
	}
	if len(plan.Warnings) != 1 {
		t.Fatalf("expected 1 warning, got %v", plan.Warnings)
	}
	if !strings.Contains(plan.Warnings[0], "weather-down") {
		t.Errorf("expected warning to name the provider, got %q", plan.Warnings[0])
	}
	if plan.Stats.ProvidersFailed != 1 || plan.Stats.ProvidersSucceeded != 2 {
		t.Errorf("unexpected provider stats: %+v", plan.Stats)
	}
	if got := metrics.Snapshot().ProviderErrors[providers.KindWeather]; got != 1 {
		t.Errorf("expected 1 weather provider error, got %d", got)
	}
}

func TestOrchestrator_Plan_AllProvidersFail(t *testing.T) {
	providerErr := errors.New("all providers down")
	sources := planner.Sources{
		Flights: []providers.Provider{&mockProvider{name: "flights-down", err: providerErr}},
		Lodging: []providers.Provider{&mockProvider{name: "lodging-down", err: providerErr}},
		Weather: []providers.Provider{&mockProvider{name: "weather-down", err: providerErr}},
	}
	orch, _ := newOrchestrator(sources, planner.DefaultOptions())

	criteria := parisTrip()
	criteria.Destination = "Lisbon"
	plan, err := orch.Plan(context.Background(), criteria)
	if err != nil {
		t.Fatalf("expected a best-effort plan, got error: %v", err)
	}

	if plan.Trace[len(plan.Trace)-1] != types.StateDone {
		t.Errorf("expected trace to end in DONE, got %v", plan.Trace)
	}
	if len(plan.Warnings) != 3 {
		t.Errorf("expected 3 warnings, got %v", plan.Warnings)
	}
	if len(plan.Bundle.Flights) != 0 || len(plan.Bundle.Lodgings) != 0 || plan.Bundle.Weather != nil {
		t.Errorf("expected an empty bundle, got %+v", plan.Bundle)
	}
	if plan.Bundle.Flights == nil || plan.Bundle.Lodgings == nil {
		t.Error("expected empty, non-nil offer lists")
	}
	if plan.Best != nil {
		t.Errorf("expected no best combination, got %+v", *plan.Best)
	}
	want := []string{"Research popular attractions in Lisbon", "Learn about local customs in Lisbon"}
	if strings.Join(plan.Bundle.Recommendations, "|") != strings.Join(want, "|") {
		t.Errorf("unexpected recommendations: %v", plan.Bundle.Recommendations)
	}
}

func TestOrchestrator_Plan_ProviderTimeout(t *testing.T) {
	sources := fixtureSources(t)
	sources.Flights = []providers.Provider{
		&mockProvider{
			name:    "fast-provider",
			delay:   10 * time.Millisecond,
			records: []providers.RawRecord{{"id": "F1", "airline": "fast air", "price": 300}},
		},
		&mockProvider{
			name:    "slow-provider",
			delay:   2 * time.Second,
			records: []providers.RawRecord{{"id": "F2", "airline": "slow air", "price": 200}},
		},
	}
	opts := planner.DefaultOptions()
	opts.ProviderTimeout = 200 * time.Millisecond
	orch, _ := newOrchestrator(sources, opts)

	plan, err := orch.Plan(context.Background(), parisTrip())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(plan.Bundle.Flights) != 1 || plan.Bundle.Flights[0].ID != "F1" {
		t.Fatalf("expected only F1, got %+v", plan.Bundle.Flights)
	}
	if len(plan.Warnings) != 1 || !strings.Contains(plan.Warnings[0], "slow-provider") {
		t.Errorf("expected a warning for slow-provider, got %v", plan.Warnings)
	}
}

func TestOrchestrator_Plan_ProviderIgnoresContext(t *testing.T) {
	sources := fixtureSources(t)
	sources.Weather = []providers.Provider{
		&mockProvider{name: "stubborn", delay: time.Second, ignoreCtx: true},
	}
	opts := planner.DefaultOptions()
	opts.ProviderTimeout = 50 * time.Millisecond
	orch, _ := newOrchestrator(sources, opts)

	start := time.Now()
	plan, err := orch.Plan(context.Background(), parisTrip())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("expected plan to return at the provider deadline, took %v", elapsed)
	}
	if plan.Stats.ProvidersFailed != 1 {
		t.Errorf("expected 1 failed provider, got %d", plan.Stats.ProvidersFailed)
	}
}

func TestOrchestrator_Plan_ProviderPanics(t *testing.T) {
	sources := fixtureSources(t)
	sources.Lodging = []providers.Provider{&mockProvider{name: "crashy", panics: true}}
	orch, _ := newOrchestrator(sources, planner.DefaultOptions())

	plan, err := orch.Plan(context.Background(), parisTrip())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(plan.Warnings) != 1 || !strings.Contains(plan.Warnings[0], "crashy") {
		t.Errorf("expected a warning for crashy, got %v", plan.Warnings)
	}
	if len(plan.Bundle.Flights) != 3 {
		t.Errorf("expected flights to survive, got %d", len(plan.Bundle.Flights))
	}
}

func TestOrchestrator_Plan_Sequential(t *testing.T) {
	log := &callLog{}
	sources := planner.Sources{
		Flights: []providers.Provider{&mockProvider{name: "flights", log: log}},
		Lodging: []providers.Provider{&mockProvider{name: "lodging", log: log}},
		Weather: []providers.Provider{&mockProvider{name: "weather", log: log}},
	}
	opts := planner.DefaultOptions()
	opts.Parallel = false
	orch, _ := newOrchestrator(sources, opts)

	if _, err := orch.Plan(context.Background(), parisTrip()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := strings.Join(log.calls, ","); got != "flights,lodging,weather" {
		t.Errorf("expected providers in stage order, got %s", got)
	}
}

func TestOrchestrator_Plan_Budget(t *testing.T) {
	orch, _ := newOrchestrator(fixtureSources(t), planner.DefaultOptions())

	criteria := parisTrip()
	limit := 700.0
	criteria.Budget = &limit

	plan, err := orch.Plan(context.Background(), criteria)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// 700*0.6 = 420 leaves only the 380 flight; 700*0.4 = 280 keeps every lodging.
	if len(plan.Bundle.Flights) != 1 || plan.Bundle.Flights[0].Price != 380 {
		t.Fatalf("expected only the 380 flight, got %+v", plan.Bundle.Flights)
	}
	if len(plan.Bundle.Lodgings) != 3 {
		t.Errorf("expected 3 lodgings, got %d", len(plan.Bundle.Lodgings))
	}
	if plan.Best == nil || plan.Best.Flight.Price != 380 {
		t.Errorf("expected best combination to use the 380 flight, got %+v", plan.Best)
	}

	var filtered bool
	for _, s := range plan.Trace {
		if s == types.StateFiltered {
			filtered = true
		}
	}
	if !filtered {
		t.Errorf("expected FILTERED in trace, got %v", plan.Trace)
	}
}

func TestOrchestrator_Plan_InvalidAllocation(t *testing.T) {
	opts := planner.DefaultOptions()
	opts.Allocation = budget.Allocation{Flight: 1.5, Lodging: 0.4}
	orch, _ := newOrchestrator(fixtureSources(t), opts)

	criteria := parisTrip()
	limit := 1000.0
	criteria.Budget = &limit

	_, err := orch.Plan(context.Background(), criteria)
	if !errors.Is(err, budget.ErrInvalidConfiguration) {
		t.Fatalf("expected ErrInvalidConfiguration, got %v", err)
	}
}

func TestOrchestrator_Plan_LodgingResolution(t *testing.T) {
	resolver := &resolvingProvider{
		mockProvider: mockProvider{
			name:    "hotels-api",
			records: []providers.RawRecord{{"id": "H1", "name": "harbor inn", "price": 90, "rating": 8}},
		},
		locations: []providers.RawRecord{{"dest_id": "-1456928", "name": "Paris"}},
	}
	sources := fixtureSources(t)
	sources.Lodging = []providers.Provider{resolver}
	orch, _ := newOrchestrator(sources, planner.DefaultOptions())

	plan, err := orch.Plan(context.Background(), parisTrip())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if resolver.lastQuery.LocationID != "-1456928" {
		t.Errorf("expected resolved location id in query, got %q", resolver.lastQuery.LocationID)
	}
	if len(plan.Bundle.Lodgings) != 1 || plan.Bundle.Lodgings[0].Name != "Harbor Inn" {
		t.Errorf("unexpected lodgings: %+v", plan.Bundle.Lodgings)
	}
	if plan.Bundle.Lodgings[0].Source != "hotels-api" {
		t.Errorf("expected source hotels-api, got %q", plan.Bundle.Lodgings[0].Source)
	}
}

func TestOrchestrator_Plan_NoLocation(t *testing.T) {
	resolver := &resolvingProvider{
		mockProvider: mockProvider{
			name:    "hotels-api",
			records: []providers.RawRecord{{"id": "H1", "name": "unused", "price": 90}},
		},
	}
	sources := fixtureSources(t)
	sources.Lodging = []providers.Provider{resolver}
	orch, _ := newOrchestrator(sources, planner.DefaultOptions())

	plan, err := orch.Plan(context.Background(), parisTrip())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(plan.Bundle.Lodgings) != 0 {
		t.Errorf("expected no lodgings, got %d", len(plan.Bundle.Lodgings))
	}
	if len(plan.Warnings) != 1 || !strings.Contains(plan.Warnings[0], "no location found") {
		t.Errorf("expected a no-location warning, got %v", plan.Warnings)
	}
	if plan.Best != nil {
		t.Errorf("expected no best combination without lodgings")
	}
}

func TestOrchestrator_Plan_MergesSources(t *testing.T) {
	sources := fixtureSources(t)
	sources.Flights = []providers.Provider{
		&mockProvider{
			name: "agent-a",
			records: []providers.RawRecord{
				{"id": "F1", "airline": "sky airlines", "price": 500, "stops": 0},
				{"id": "F2", "airline": "ocean airways", "price": 420},
			},
		},
		&mockProvider{
			name:    "agent-b",
			records: []providers.RawRecord{{"id": "F1", "price": 450}},
		},
	}
	orch, _ := newOrchestrator(sources, planner.DefaultOptions())

	plan, err := orch.Plan(context.Background(), parisTrip())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(plan.Bundle.Flights) != 2 {
		t.Fatalf("expected 2 merged flights, got %d", len(plan.Bundle.Flights))
	}
	f1 := plan.Bundle.Flights[0]
	if f1.ID != "F1" || f1.Price != 450 || f1.Carrier != "Sky Airlines" {
		t.Errorf("expected F1 with later price and earlier carrier, got %+v", f1)
	}
}

func TestOrchestrator_Plan_MergesDifferentShapes(t *testing.T) {
	sources := fixtureSources(t)
	sources.Flights = []providers.Provider{
		&mockProvider{
			name:    "agent-a",
			records: []providers.RawRecord{{"id": "F1", "airline": "sky airlines", "Price": "500", "stops": 1}},
		},
		&mockProvider{
			name:    "agent-b",
			records: []providers.RawRecord{{"id": "F1", "carrier": "ocean airways", "price": "450", "stop_count": 0}},
		},
	}
	orch, _ := newOrchestrator(sources, planner.DefaultOptions())

	// Map iteration order must not leak into the merged offer.
	for range 50 {
		plan, err := orch.Plan(context.Background(), parisTrip())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(plan.Bundle.Flights) != 1 {
			t.Fatalf("expected 1 merged flight, got %d", len(plan.Bundle.Flights))
		}
		f := plan.Bundle.Flights[0]
		if f.Carrier != "Ocean Airways" || f.Price != 450 || f.StopCount != 0 || f.Source != "agent-b" {
			t.Fatalf("expected the later source to win every field, got %+v", f)
		}
	}
}

func TestOrchestrator_Plan_CustomMergeKey(t *testing.T) {
	sources := fixtureSources(t)
	sources.Flights = []providers.Provider{
		&mockProvider{
			name:    "agent-a",
			records: []providers.RawRecord{{"Flight Number": "AF11", "airline": "air france", "price": 500}},
		},
		&mockProvider{
			name:    "agent-b",
			records: []providers.RawRecord{{"flight_number": "AF11", "price": 470}},
		},
	}
	opts := planner.DefaultOptions()
	opts.FlightKey = "flight-number"
	orch, _ := newOrchestrator(sources, opts)

	plan, err := orch.Plan(context.Background(), parisTrip())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(plan.Bundle.Flights) != 1 {
		t.Fatalf("expected 1 merged flight, got %d", len(plan.Bundle.Flights))
	}
	if f := plan.Bundle.Flights[0]; f.Price != 470 || f.Carrier != "Air France" {
		t.Errorf("unexpected merged flight: %+v", f)
	}
}

func TestOrchestrator_Plan_MalformedRecords(t *testing.T) {
	sources := fixtureSources(t)
	sources.Flights = []providers.Provider{
		&mockProvider{
			name: "messy",
			records: []providers.RawRecord{
				{"id": "F1", "airline": "a", "price": 300},
				{"id": "F2", "airline": "b", "price": "ask at desk"},
			},
		},
	}
	orch, metrics := newOrchestrator(sources, planner.DefaultOptions())

	plan, err := orch.Plan(context.Background(), parisTrip())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(plan.Bundle.Flights) != 2 {
		t.Fatalf("expected malformed flight to be kept, got %d flights", len(plan.Bundle.Flights))
	}
	if plan.Stats.MalformedRecords != 1 {
		t.Errorf("expected 1 malformed record, got %d", plan.Stats.MalformedRecords)
	}
	if metrics.Snapshot().MalformedRecords != 1 {
		t.Errorf("expected malformed metric 1, got %d", metrics.Snapshot().MalformedRecords)
	}
	if len(plan.Warnings) != 0 {
		t.Errorf("expected no warnings, got %v", plan.Warnings)
	}
	if last := plan.Ranked[len(plan.Ranked)-1]; last.Flight.ID != "F2" {
		t.Errorf("expected unknown price to rank last, got %s", last.Flight.ID)
	}
}

func TestOrchestrator_Plan_CancelledContext(t *testing.T) {
	orch, _ := newOrchestrator(planner.Sources{
		Flights: []providers.Provider{&mockProvider{name: "slow", delay: time.Second}},
	}, planner.DefaultOptions())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	plan, err := orch.Plan(ctx, parisTrip())
	if err != nil {
		t.Fatalf("expected a best-effort plan, got error: %v", err)
	}
	if plan.Stats.ProvidersFailed != 1 {
		t.Errorf("expected 1 failed provider, got %d", plan.Stats.ProvidersFailed)
	}
}

func TestOrchestrator_Plan_InvalidCriteria(t *testing.T) {
	tests := []struct {
		name   string
		modify func(c *types.Criteria)
	}{
		{name: "missing destination", modify: func(c *types.Criteria) { c.Destination = " " }},
		{name: "missing origin", modify: func(c *types.Criteria) { c.Origin = "" }},
		{name: "bad date", modify: func(c *types.Criteria) { c.DepartureDate = "06/01/2025" }},
		{name: "return before departure", modify: func(c *types.Criteria) { c.ReturnDate = "2025-05-01" }},
		{name: "negative party", modify: func(c *types.Criteria) { c.PartySize = -1 }},
		{name: "negative budget", modify: func(c *types.Criteria) { b := -5.0; c.Budget = &b }},
	}

	orch, _ := newOrchestrator(fixtureSources(t), planner.DefaultOptions())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := parisTrip()
			tt.modify(&c)
			_, err := orch.Plan(context.Background(), c)
			if !errors.Is(err, planner.ErrInvalidCriteria) {
				t.Errorf("expected ErrInvalidCriteria, got %v", err)
			}
		})
	}
}

func TestProviderError(t *testing.T) {
	err := error(&planner.ProviderError{
		Kind:     providers.KindWeather,
		Provider: "owm",
		Err:      context.DeadlineExceeded,
	})

	if !errors.Is(err, providers.ErrProviderUnavailable) {
		t.Error("expected ProviderError to match ErrProviderUnavailable")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Error("expected ProviderError to match its cause")
	}
	if !strings.Contains(err.Error(), `"owm"`) {
		t.Errorf("expected error to name the provider, got %q", err.Error())
	}
}

func stateNames(states []types.State) []string {
	out := make([]string, len(states))
	for i, s := range states {
		out[i] = string(s)
	}
	return out
}
