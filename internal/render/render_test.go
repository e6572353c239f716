package render

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/mattn/go-runewidth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alex-user-go/tripplan/internal/planner/types"
)

func TestTable_AlignsWideRunes(t *testing.T) {
	var buf bytes.Buffer
	table := Table{
		Header: []string{"Name", "City"},
		Rows: [][]string{
			{"Hotel Okura", "東京"},
			{"Inn", "Paris"},
		},
	}
	require.NoError(t, table.Write(&buf))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	width := runewidth.StringWidth(lines[0])
	for _, l := range lines {
		assert.Equal(t, width, runewidth.StringWidth(l), "line %q", l)
	}
	assert.True(t, strings.HasPrefix(lines[1], "| ---"))
}

func TestTable_TruncatesLongCells(t *testing.T) {
	var buf bytes.Buffer
	long := strings.Repeat("x", 80)
	require.NoError(t, Table{Header: []string{"A"}, Rows: [][]string{{long}}}.Write(&buf))

	assert.NotContains(t, buf.String(), long)
	assert.Contains(t, buf.String(), "…")
}

func TestMoney(t *testing.T) {
	assert.Equal(t, "450.00 USD", Money(450, "USD"))
	assert.Equal(t, "85.50", Money(85.5, ""))
	assert.Equal(t, "n/a", Money(types.Unknown(), "USD"))
}

func TestDuration(t *testing.T) {
	tests := []struct {
		minutes int
		want    string
	}{
		{495, "8h 15m"},
		{120, "2h"},
		{45, "45m"},
		{0, "-"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Duration(tt.minutes))
	}
}

func samplePlan() *types.Plan {
	flight := types.FlightOffer{Carrier: "Sky Airlines", Price: 450, Currency: "USD", DurationMinutes: 495, Source: "fixture-flights"}
	lodging := types.LodgingOffer{Name: "City Central Inn", PricePerNight: 85, Currency: "USD", Rating: 4, Location: "City Center"}
	best := types.ScoredCombination{Flight: flight, Lodging: lodging, Nights: 5, TotalCost: 875, ValueScore: 1.029}
	limit := 3000.0
	return &types.Plan{
		Bundle: types.TripBundle{
			Origin:          "NYC",
			Destination:     "Paris",
			DepartureDate:   "2025-06-01",
			ReturnDate:      "2025-06-06",
			PartySize:       2,
			Rooms:           1,
			Budget:          &limit,
			Flights:         []types.FlightOffer{flight},
			Lodgings:        []types.LodgingOffer{lodging},
			Weather:         &types.WeatherSnapshot{Location: "Paris", TemperatureC: 22, Condition: "Sunny", HumidityPct: 65, WindSpeed: 10},
			Recommendations: []string{"Visit the Eiffel Tower"},
		},
		Best:     &best,
		Ranked:   []types.ScoredCombination{best, best},
		Warnings: []string{`weather provider "owm" unavailable: timeout`},
	}
}

func TestPlan(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Plan(&buf, samplePlan()))
	out := buf.String()

	for _, want := range []string{
		"Trip NYC -> Paris",
		"Dates: 2025-06-01 to 2025-06-06",
		"budget: 3000.00",
		"Weather in Paris: Sunny, 22.0°C",
		"Flights (1)",
		"Sky Airlines",
		"8h 15m",
		"Lodging (1)",
		"City Central Inn",
		"Best value: Sky Airlines + City Central Inn, 5 nights, total 875.00 USD",
		"Top combinations",
		"Recommendations",
		"  - Visit the Eiffel Tower",
		"Warnings",
	} {
		assert.Contains(t, out, want)
	}
}

func TestPlan_Empty(t *testing.T) {
	var buf bytes.Buffer
	plan := &types.Plan{Bundle: *types.NewBundle(types.Criteria{Origin: "NYC", Destination: "Lisbon", PartySize: 1, Rooms: 1})}
	require.NoError(t, Plan(&buf, plan))

	out := buf.String()
	assert.Contains(t, out, "Flights (0)")
	assert.NotContains(t, out, "Best value")
	assert.NotContains(t, out, "Dates:")
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("closed") }

func TestPlan_WriteError(t *testing.T) {
	assert.Error(t, Plan(failingWriter{}, samplePlan()))
}
