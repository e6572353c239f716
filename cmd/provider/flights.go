package main

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/alex-user-go/tripplan/internal/planner/types"
)

// flightMock answers /search in the shape of the Amadeus flight-offers API.
type flightMock struct {
	sim *simulator
}

var carriers = []string{"AF", "BA", "DL", "LH", "UA"}

func (m *flightMock) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /search", m.search)
}

func (m *flightMock) search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	origin := strings.ToUpper(strings.TrimSpace(q.Get("origin")))
	destination := strings.ToUpper(strings.TrimSpace(q.Get("destination")))
	if origin == "" || destination == "" {
		http.Error(w, "missing required parameters", http.StatusBadRequest)
		return
	}

	day, err := time.Parse(types.DateLayout, q.Get("departure_date"))
	if err != nil {
		day = time.Now().AddDate(0, 0, 14).Truncate(24 * time.Hour)
	}

	if err := m.sim.wait(r.Context()); err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	offers := make([]map[string]any, 0, 4)
	for i := range 4 {
		offers = append(offers, m.offer(i, origin, destination, day))
	}
	m.sim.writeJSON(w, map[string]any{
		"meta": map[string]any{"count": len(offers)},
		"data": offers,
	})
}

func (m *flightMock) offer(i int, origin, destination string, day time.Time) map[string]any {
	carrier := carriers[m.sim.intn(len(carriers))]
	stops := m.sim.intn(3)
	depart := day.Add(time.Duration(6+3*i) * time.Hour)

	segments := make([]any, 0, stops+1)
	at := depart
	for s := 0; s <= stops; s++ {
		leg := time.Duration(2+m.sim.intn(5)) * time.Hour
		segments = append(segments, map[string]any{
			"carrierCode": carrier,
			"number":      fmt.Sprintf("%d", 100+m.sim.intn(900)),
			"departure":   map[string]any{"iataCode": origin, "at": at.Format("2006-01-02T15:04:05")},
			"arrival":     map[string]any{"iataCode": destination, "at": at.Add(leg).Format("2006-01-02T15:04:05")},
		})
		at = at.Add(leg + time.Hour)
	}
	total := at.Add(-time.Hour).Sub(depart)

	return map[string]any{
		"id":     fmt.Sprintf("%s-%s-%d", carrier, destination, i+1),
		"source": "GDS",
		"price": map[string]any{
			"currency": "EUR",
			"total":    fmt.Sprintf("%.2f", m.sim.price(250, 900)),
		},
		"itineraries": []any{
			map[string]any{
				"duration": fmt.Sprintf("PT%dH%dM", int(total.Hours()), int(total.Minutes())%60),
				"segments": segments,
			},
		},
	}
}
