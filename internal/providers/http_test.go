package providers_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alex-user-go/tripplan/internal/providers"
)

func TestRemoteProvider_Search(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		resultsPath string
		wantCount   int
	}{
		{
			name:      "json array",
			body:      `[{"id":"A","price":100},{"id":"B","price":200}]`,
			wantCount: 2,
		},
		{
			name:        "envelope path",
			body:        `{"data":{"body":{"searchResults":{"results":[{"id":"H1"}]}}}}`,
			resultsPath: "data.body.searchResults.results",
			wantCount:   1,
		},
		{
			name:      "single object",
			body:      `{"name":"Paris","main":{"temp":21.5}}`,
			wantCount: 1,
		},
		{
			name:        "missing envelope",
			body:        `{"errors":[]}`,
			resultsPath: "data",
			wantCount:   0,
		},
		{
			name:      "non-object elements skipped",
			body:      `[{"id":"A"}, 3, "x"]`,
			wantCount: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/search", r.URL.Path)
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			p := providers.NewRemoteProvider(providers.RemoteOptions{
				Name:        "remote",
				BaseURL:     srv.URL,
				ResultsPath: tt.resultsPath,
				Timeout:     time.Second,
			})

			records, err := p.Search(context.Background(), providers.Query{Destination: "PAR"})
			require.NoError(t, err)
			assert.Len(t, records, tt.wantCount)
		})
	}
}

func TestRemoteProvider_SendsQueryAndKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "NYC", q.Get("origin"))
		assert.Equal(t, "PAR", q.Get("destination"))
		assert.Equal(t, "2", q.Get("adults"))
		assert.Equal(t, "metric", q.Get("units"))
		assert.Equal(t, "secret", r.Header.Get("X-RapidAPI-Key"))
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	p := providers.NewRemoteProvider(providers.RemoteOptions{
		Name:         "remote",
		BaseURL:      srv.URL,
		APIKey:       "secret",
		APIKeyHeader: "X-RapidAPI-Key",
		Params:       map[string]string{"units": "metric"},
		Timeout:      time.Second,
	})

	records, err := p.Search(context.Background(), providers.Query{Origin: "NYC", Destination: "PAR", Adults: 2})
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestRemoteProvider_Retries(t *testing.T) {
	tests := []struct {
		name         string
		statuses     []int
		maxAttempts  int
		wantErr      bool
		wantRequests int32
	}{
		{
			name:         "recovers after server errors",
			statuses:     []int{http.StatusServiceUnavailable, http.StatusBadGateway, http.StatusOK},
			maxAttempts:  3,
			wantRequests: 3,
		},
		{
			name:         "gives up after max attempts",
			statuses:     []int{http.StatusServiceUnavailable, http.StatusServiceUnavailable},
			maxAttempts:  2,
			wantErr:      true,
			wantRequests: 2,
		},
		{
			name:         "client errors are final",
			statuses:     []int{http.StatusBadRequest, http.StatusOK},
			maxAttempts:  3,
			wantErr:      true,
			wantRequests: 1,
		},
		{
			name:         "rate limited is retried",
			statuses:     []int{http.StatusTooManyRequests, http.StatusOK},
			maxAttempts:  3,
			wantRequests: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				n := calls.Add(1)
				status := tt.statuses[n-1]
				if status != http.StatusOK {
					http.Error(w, "unavailable", status)
					return
				}
				_, _ = w.Write([]byte(`[{"id":"A"}]`))
			}))
			defer srv.Close()

			p := providers.NewRemoteProvider(providers.RemoteOptions{
				Name:        "remote",
				BaseURL:     srv.URL,
				Timeout:     time.Second,
				MaxAttempts: tt.maxAttempts,
				Backoff:     time.Millisecond,
			})

			records, err := p.Search(context.Background(), providers.Query{})
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, providers.ErrProviderUnavailable))
			} else {
				require.NoError(t, err)
				assert.Len(t, records, 1)
			}
			assert.Equal(t, tt.wantRequests, calls.Load())
		})
	}
}

func TestRemoteProvider_MaxAttemptsCapped(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	p := providers.NewRemoteProvider(providers.RemoteOptions{
		Name:        "remote",
		BaseURL:     srv.URL,
		Timeout:     time.Second,
		MaxAttempts: 1000,
		Backoff:     time.Microsecond,
	})

	_, err := p.Search(context.Background(), providers.Query{})
	require.Error(t, err)
	assert.Equal(t, int32(providers.MaxAttempts), calls.Load())
}

func TestRemoteProvider_MalformedResponse(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{not json`))
	}))
	defer srv.Close()

	p := providers.NewRemoteProvider(providers.RemoteOptions{
		Name:        "remote",
		BaseURL:     srv.URL,
		Timeout:     time.Second,
		MaxAttempts: 3,
	})

	_, err := p.Search(context.Background(), providers.Query{})
	require.Error(t, err)
	assert.ErrorIs(t, err, providers.ErrMalformedResponse)
	assert.Equal(t, int32(1), calls.Load())
}

func TestRemoteProvider_ContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()

	p := providers.NewRemoteProvider(providers.RemoteOptions{
		Name:    "slow",
		BaseURL: srv.URL,
		Timeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := p.Search(ctx, providers.Query{})
	require.Error(t, err)
}

func TestRemoteProvider_ResolveLocation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/locations", r.URL.Path)
		assert.Equal(t, "Paris", r.URL.Query().Get("query"))
		_, _ = w.Write([]byte(`{"suggestions":[{"dest_id":"504261","name":"Paris"}]}`))
	}))
	defer srv.Close()

	p := providers.NewRemoteProvider(providers.RemoteOptions{
		Name:               "hotels",
		BaseURL:            srv.URL,
		ResolvePath:        "/locations",
		ResolveResultsPath: "suggestions",
		Timeout:            time.Second,
	})

	locations, err := p.ResolveLocation(context.Background(), "Paris")
	require.NoError(t, err)
	require.Len(t, locations, 1)
	assert.Equal(t, "504261", locations[0]["dest_id"])
}

func TestRemoteProvider_ResolveLocationWithoutPath(t *testing.T) {
	p := providers.NewRemoteProvider(providers.RemoteOptions{Name: "hotels", BaseURL: "http://unused"})

	locations, err := p.ResolveLocation(context.Background(), "Tokyo")
	require.NoError(t, err)
	require.Len(t, locations, 1)
	assert.Equal(t, "Tokyo", locations[0]["dest_id"])
}
