package main

import (
	"net/http"
	"strings"
)

// weatherMock answers /search with an OpenWeather current-weather document.
type weatherMock struct {
	sim *simulator
}

var conditions = []struct{ main, description string }{
	{"Clear", "clear sky"},
	{"Clouds", "scattered clouds"},
	{"Rain", "light rain"},
	{"Drizzle", "drizzle"},
	{"Snow", "light snow"},
}

func (m *weatherMock) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /search", m.search)
}

func (m *weatherMock) search(w http.ResponseWriter, r *http.Request) {
	city := strings.TrimSpace(r.URL.Query().Get("destination"))
	if city == "" {
		http.Error(w, "missing destination", http.StatusBadRequest)
		return
	}
	if err := m.sim.wait(r.Context()); err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	c := conditions[m.sim.intn(len(conditions))]
	m.sim.writeJSON(w, map[string]any{
		"name":    city,
		"weather": []any{map[string]any{"main": c.main, "description": c.description}},
		"main": map[string]any{
			"temp":     m.sim.price(-5, 35),
			"humidity": 30 + m.sim.intn(60),
		},
		"wind": map[string]any{"speed": m.sim.price(0, 15)},
	})
}
