package main

import (
	"fmt"
	"net/http"
	"strings"
)

// lodgingMock mimics a hotel API that needs a destination id before search.
type lodgingMock struct {
	sim *simulator
}

var hotelNames = []string{"grand hotel", "CITY CENTER INN", "budget stay", "Luxury Palace", "harbor view suites"}

func (m *lodgingMock) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /locations", m.locations)
	mux.HandleFunc("GET /search", m.search)
}

func (m *lodgingMock) locations(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("query"))
	if query == "" {
		http.Error(w, "missing query", http.StatusBadRequest)
		return
	}
	if err := m.sim.wait(r.Context()); err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	m.sim.writeJSON(w, map[string]any{
		"data": []any{
			map[string]any{"dest_id": destID(query), "dest_type": "city", "name": query},
		},
	})
}

func (m *lodgingMock) search(w http.ResponseWriter, r *http.Request) {
	locationID := strings.TrimSpace(r.URL.Query().Get("location_id"))
	if locationID == "" {
		http.Error(w, "missing location_id", http.StatusBadRequest)
		return
	}
	if err := m.sim.wait(r.Context()); err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	properties := make([]any, 0, len(hotelNames))
	for i, name := range hotelNames {
		properties = append(properties, map[string]any{
			"id":   fmt.Sprintf("P%s-%d", strings.TrimPrefix(locationID, "-"), i+1),
			"name": name,
			"address": map[string]any{
				"streetAddress": fmt.Sprintf("%d Main Street", 10+i),
				"locality":      "District " + fmt.Sprint(i+1),
			},
			"guestreviews": map[string]any{"score": float64(50+m.sim.intn(50)) / 10},
			"rateplan": map[string]any{
				"price": map[string]any{
					"current":  fmt.Sprintf("$%.0f", m.sim.price(60, 400)),
					"currency": "USD",
				},
			},
			"property_amenities": []any{"WiFi", "Breakfast", "Parking"}[:1+i%3],
		})
	}
	m.sim.writeJSON(w, map[string]any{"data": properties})
}

// destID derives a stable negative id from the city name.
func destID(city string) string {
	var h int
	for _, r := range strings.ToLower(city) {
		h = h*31 + int(r)
	}
	if h < 0 {
		h = -h
	}
	return fmt.Sprintf("-%d", 1000000+h%1000000)
}
