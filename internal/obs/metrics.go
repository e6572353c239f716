package obs

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"

	"github.com/alex-user-go/tripplan/internal/providers"
)

// Metrics tracks application metrics using atomic counters.
type Metrics struct {
	requests         atomic.Int64
	cacheHits        atomic.Int64
	rateLimited      atomic.Int64
	plans            atomic.Int64
	malformedRecords atomic.Int64
	flightErrors     atomic.Int64
	lodgingErrors    atomic.Int64
	weatherErrors    atomic.Int64
	logger           *slog.Logger
}

// NewMetrics creates a new Metrics instance.
func NewMetrics(logger *slog.Logger) *Metrics {
	return &Metrics{
		logger: logger,
	}
}

// IncRequests increments the total request counter.
func (m *Metrics) IncRequests() {
	m.requests.Add(1)
}

// IncCacheHits increments the cache hits counter.
func (m *Metrics) IncCacheHits() {
	m.cacheHits.Add(1)
}

// IncRateLimited increments the rejected request counter.
func (m *Metrics) IncRateLimited() {
	m.rateLimited.Add(1)
}

// IncPlans increments the completed plan counter.
func (m *Metrics) IncPlans() {
	m.plans.Add(1)
}

// AddMalformedRecords adds n to the malformed record counter.
func (m *Metrics) AddMalformedRecords(n int) {
	m.malformedRecords.Add(int64(n))
}

// IncProviderErrors increments the error counter of one provider kind.
func (m *Metrics) IncProviderErrors(kind providers.Kind) {
	switch kind {
	case providers.KindFlights:
		m.flightErrors.Add(1)
	case providers.KindLodging:
		m.lodgingErrors.Add(1)
	case providers.KindWeather:
		m.weatherErrors.Add(1)
	}
}

// Snapshot returns current metric values.
func (m *Metrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		Requests:         m.requests.Load(),
		CacheHits:        m.cacheHits.Load(),
		RateLimited:      m.rateLimited.Load(),
		Plans:            m.plans.Load(),
		MalformedRecords: m.malformedRecords.Load(),
		ProviderErrors: map[providers.Kind]int64{
			providers.KindFlights: m.flightErrors.Load(),
			providers.KindLodging: m.lodgingErrors.Load(),
			providers.KindWeather: m.weatherErrors.Load(),
		},
	}
}

// MetricsSnapshot represents a point-in-time snapshot of metrics.
type MetricsSnapshot struct {
	Requests         int64
	CacheHits        int64
	RateLimited      int64
	Plans            int64
	MalformedRecords int64
	ProviderErrors   map[providers.Kind]int64
}

// TotalProviderErrors sums provider errors over every kind.
func (s MetricsSnapshot) TotalProviderErrors() int64 {
	var total int64
	for _, n := range s.ProviderErrors {
		total += n
	}
	return total
}

// HealthHandler returns a handler for /healthz requests.
func HealthHandler(logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			logger.Error("failed to write health response", "error", err)
		}
	}
}

// MetricsHandler returns a handler for /metrics requests in Prometheus format.
func (m *Metrics) MetricsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snapshot := m.Snapshot()

		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		w.WriteHeader(http.StatusOK)

		if err := writeMetrics(w, snapshot); err != nil {
			m.logger.Error("failed to write metrics", "error", err)
		}
	}
}

func writeMetrics(w io.Writer, s MetricsSnapshot) error {
	counters := []struct {
		name  string
		help  string
		value int64
	}{
		{"requests_total", "Total number of plan requests", s.Requests},
		{"cache_hits_total", "Total number of cache hits", s.CacheHits},
		{"rate_limited_total", "Total number of rate limited requests", s.RateLimited},
		{"plans_total", "Total number of assembled plans", s.Plans},
		{"malformed_records_total", "Total number of provider records normalized with defaults", s.MalformedRecords},
	}
	for _, c := range counters {
		if _, err := fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s counter\n%s %d\n", c.name, c.help, c.name, c.name, c.value); err != nil {
			return err
		}
	}

	if _, err := fmt.Fprintf(w, "# HELP provider_errors_total Total number of provider errors\n# TYPE provider_errors_total counter\n"); err != nil {
		return err
	}
	for _, kind := range []providers.Kind{providers.KindFlights, providers.KindLodging, providers.KindWeather} {
		if _, err := fmt.Fprintf(w, "provider_errors_total{kind=%q} %d\n", kind, s.ProviderErrors[kind]); err != nil {
			return err
		}
	}
	return nil
}
