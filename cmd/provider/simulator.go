package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"math/rand"
	"net/http"
	"sync"
	"time"
)

// simulator adds random latency and failures to a mock provider.
type simulator struct {
	mu          sync.Mutex
	rng         *rand.Rand
	minLatency  time.Duration
	maxLatency  time.Duration
	failureRate float64
	logger      *slog.Logger
}

func newSimulator(minLatency, maxLatency time.Duration, failureRate float64, logger *slog.Logger) *simulator {
	return &simulator{
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
		minLatency:  minLatency,
		maxLatency:  maxLatency,
		failureRate: failureRate,
		logger:      logger,
	}
}

// wait sleeps for a random latency and then fails at the configured rate.
func (s *simulator) wait(ctx context.Context) error {
	s.mu.Lock()
	latency := s.minLatency
	if spread := s.maxLatency - s.minLatency; spread > 0 {
		latency += time.Duration(s.rng.Int63n(int64(spread)))
	}
	fail := s.rng.Float64() < s.failureRate
	s.mu.Unlock()

	select {
	case <-time.After(latency):
	case <-ctx.Done():
		return context.Cause(ctx)
	}

	if fail {
		return errProviderUnavailable
	}
	return nil
}

// price returns a random price in [lo, hi) with two decimals.
func (s *simulator) price(lo, hi float64) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := lo + s.rng.Float64()*(hi-lo)
	return float64(int(p*100)) / 100
}

func (s *simulator) intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Intn(n)
}

func (s *simulator) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}
