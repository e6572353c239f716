package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// ErrMalformedResponse is returned when a provider response is not valid JSON.
var ErrMalformedResponse = errors.New("malformed provider response")

// RemoteOptions configures a RemoteProvider.
type RemoteOptions struct {
	Name               string
	BaseURL            string
	SearchPath         string
	ResultsPath        string
	ResolvePath        string
	ResolveResultsPath string
	APIKey             string
	APIKeyHeader       string
	Params             map[string]string
	Timeout            time.Duration
	MaxAttempts        int
	Backoff            time.Duration
}

// MaxAttempts caps RemoteOptions.MaxAttempts. The backoff doubles per retry.
const MaxAttempts = 10

// RemoteProvider queries a real HTTP endpoint for travel data.
type RemoteProvider struct {
	opts       RemoteOptions
	httpClient *http.Client
}

// NewRemoteProvider creates a new RemoteProvider.
func NewRemoteProvider(opts RemoteOptions) *RemoteProvider {
	if opts.SearchPath == "" {
		opts.SearchPath = "/search"
	}
	opts.MaxAttempts = min(max(opts.MaxAttempts, 1), MaxAttempts)
	if opts.APIKeyHeader == "" {
		opts.APIKeyHeader = "X-API-Key"
	}
	return &RemoteProvider{
		opts: opts,
		httpClient: &http.Client{
			Timeout: opts.Timeout,
		},
	}
}

// Name returns the provider name.
func (p *RemoteProvider) Name() string {
	return p.opts.Name
}

// Search searches the provider by making an HTTP GET request.
func (p *RemoteProvider) Search(ctx context.Context, q Query) ([]RawRecord, error) {
	return p.fetch(ctx, p.opts.SearchPath, q.Values(), p.opts.ResultsPath)
}

// ResolveLocation looks up destination ids. Providers without a resolve path
// echo the query back as the id.
func (p *RemoteProvider) ResolveLocation(ctx context.Context, query string) ([]RawRecord, error) {
	if p.opts.ResolvePath == "" {
		return []RawRecord{{"dest_id": query, "name": query}}, nil
	}
	params := url.Values{}
	params.Set("query", query)
	return p.fetch(ctx, p.opts.ResolvePath, params, p.opts.ResolveResultsPath)
}

// fetch performs the request with retries. Transport errors, 429 and 5xx
// responses are retried with exponential backoff; other statuses are final.
func (p *RemoteProvider) fetch(ctx context.Context, path string, params url.Values, resultsPath string) ([]RawRecord, error) {
	// Build URL with query parameters
	u, err := url.Parse(p.opts.BaseURL + path)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	q := u.Query()
	for k, v := range p.opts.Params {
		q.Set(k, v)
	}
	for k, vs := range params {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	u.RawQuery = q.Encode()

	var lastErr error
	for attempt := 1; attempt <= p.opts.MaxAttempts; attempt++ {
		if attempt > 1 {
			delay := p.opts.Backoff * time.Duration(1<<(attempt-2))
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, fmt.Errorf("request failed (attempt %d/%d): %w", attempt, p.opts.MaxAttempts, context.Cause(ctx))
			}
		}

		doc, err := p.do(ctx, u.String())
		if err == nil {
			return Records(doc, resultsPath), nil
		}
		lastErr = fmt.Errorf("request failed (attempt %d/%d): %w", attempt, p.opts.MaxAttempts, err)
		if !retryable(err) || ctx.Err() != nil {
			break
		}
	}

	return nil, lastErr
}

func (p *RemoteProvider) do(ctx context.Context, target string) (any, error) {
	// Create request with context
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if p.opts.APIKey != "" {
		req.Header.Set(p.opts.APIKeyHeader, p.opts.APIKey)
	}

	// Execute request
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close() // Explicitly ignore close error
	}()

	// Check status code
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &StatusError{Code: resp.StatusCode, Body: string(body)}
	}

	// Parse JSON response
	var doc any
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	return doc, nil
}

func retryable(err error) bool {
	if errors.Is(err, ErrMalformedResponse) {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code == http.StatusTooManyRequests || statusErr.Code >= 500
	}
	return true
}
