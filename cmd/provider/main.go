// Command provider runs a mock travel data provider for local development.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"
)

var errProviderUnavailable = errors.New("provider unavailable")

// mock is a provider that registers its own routes.
type mock interface {
	routes(mux *http.ServeMux)
}

func newMock(kind string, sim *simulator) (mock, bool) {
	switch kind {
	case "flights":
		return &flightMock{sim: sim}, true
	case "lodging":
		return &lodgingMock{sim: sim}, true
	case "weather":
		return &weatherMock{sim: sim}, true
	default:
		return nil, false
	}
}

func newMux(m mock, logger *slog.Logger) *http.ServeMux {
	mux := http.NewServeMux()
	m.routes(mux)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			logger.Error("failed to write healthz response", "error", err)
		}
	})
	return mux
}

func main() {
	port := getEnv("PORT", "9001")
	kind := getEnv("PROVIDER_TYPE", "flights")
	failureRate, err := strconv.ParseFloat(getEnv("FAILURE_RATE", "0.1"), 64)
	if err != nil {
		failureRate = 0.1
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	sim := newSimulator(50*time.Millisecond, 300*time.Millisecond, failureRate, logger)
	m, ok := newMock(kind, sim)
	if !ok {
		logger.Error("unknown provider type", "type", kind)
		os.Exit(1)
	}
	logger.Info("starting provider", "type", kind, "port", port, "failure_rate", failureRate)

	addr := ":" + port
	srv := &http.Server{
		Addr:         addr,
		Handler:      newMux(m, logger),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
