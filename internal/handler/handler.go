package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/alex-user-go/tripplan/internal/middleware"
	"github.com/alex-user-go/tripplan/internal/obs"
	"github.com/alex-user-go/tripplan/internal/planner"
	"github.com/alex-user-go/tripplan/internal/planner/budget"
	"github.com/alex-user-go/tripplan/internal/planner/cache"
	"github.com/alex-user-go/tripplan/internal/planner/ratelimit"
	"github.com/alex-user-go/tripplan/internal/planner/types"
)

// Handler handles HTTP requests.
type Handler struct {
	orchestrator *planner.Orchestrator
	cache        *cache.Cache
	rateLimiter  *ratelimit.Limiter
	metrics      *obs.Metrics
	logger       *slog.Logger
}

// New creates a new Handler. A nil rateLimiter disables rate limiting.
func New(
	orchestrator *planner.Orchestrator,
	planCache *cache.Cache,
	rateLimiter *ratelimit.Limiter,
	metrics *obs.Metrics,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		orchestrator: orchestrator,
		cache:        planCache,
		rateLimiter:  rateLimiter,
		metrics:      metrics,
		logger:       logger,
	}
}

// PlanResponse represents the complete API response.
type PlanResponse struct {
	Plan *types.Plan `json:"plan"`
	Meta Meta        `json:"meta"`
}

// Meta describes how the response was served.
type Meta struct {
	RequestID  string `json:"request_id,omitempty"`
	Cache      string `json:"cache"`
	DurationMs int64  `json:"duration_ms"`
}

// PlanHandler handles /plan requests.
func (h *Handler) PlanHandler(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now()
	h.metrics.IncRequests()
	requestID := middleware.RequestID(r.Context())

	// Check rate limit
	ip := ExtractIP(r)
	if h.rateLimiter != nil {
		decision := h.rateLimiter.Check(ip)
		if !decision.Allowed {
			h.metrics.IncRateLimited()
			h.logger.Warn("rate limit exceeded", "request_id", requestID, "ip", ip, "retry_after", decision.RetryAfter)
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(decision.RetryAfter.Seconds()))))
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
	}

	criteria, err := ParsePlanParams(r)
	if err != nil {
		h.logger.Debug("invalid request parameters", "request_id", requestID, "error", err, "ip", ip)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// The fetch is shared by every waiter on the key, so it must outlive
	// the request that started it. The orchestrator applies its own timeout.
	fetchCtx := context.WithoutCancel(r.Context())
	key := h.cache.Key(criteria)
	plan, cacheHit, err := h.cache.GetOrFetch(r.Context(), key, func() (*types.Plan, error) {
		return h.orchestrator.Plan(fetchCtx, criteria)
	})

	if err != nil {
		status, message := errorStatus(err)
		h.logger.Error("planning failed",
			"request_id", requestID,
			"error", err,
			"origin", criteria.Origin,
			"destination", criteria.Destination,
			"ip", ip,
		)
		writeError(w, status, message)
		return
	}

	cacheStatus := "miss"
	if cacheHit {
		cacheStatus = "hit"
		h.metrics.IncCacheHits()
	}

	response := PlanResponse{
		Plan: plan,
		Meta: Meta{
			RequestID:  requestID,
			Cache:      cacheStatus,
			DurationMs: time.Since(startTime).Milliseconds(),
		},
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		// Can't change status after WriteHeader, just log
		h.logger.Error("failed to encode response", "error", err)
	}
}

func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, planner.ErrInvalidCriteria):
		return http.StatusBadRequest, strings.TrimPrefix(err.Error(), planner.ErrInvalidCriteria.Error()+": ")
	case errors.Is(err, budget.ErrInvalidConfiguration):
		return http.StatusInternalServerError, "invalid budget configuration"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "request cancelled"
	default:
		return http.StatusInternalServerError, "planning failed"
	}
}

// ParsePlanParams parses and validates planning parameters from the request.
func ParsePlanParams(r *http.Request) (types.Criteria, error) {
	query := r.URL.Query()

	c := types.Criteria{
		Origin:        strings.TrimSpace(query.Get("origin")),
		Destination:   strings.TrimSpace(query.Get("destination")),
		DepartureDate: strings.TrimSpace(query.Get("departure_date")),
		ReturnDate:    strings.TrimSpace(query.Get("return_date")),
		PartySize:     1,
		Rooms:         1,
	}

	if c.Origin == "" {
		return c, fmt.Errorf("origin is required")
	}
	if c.Destination == "" {
		return c, fmt.Errorf("destination is required")
	}

	// Dates are optional; the planner assumes a default stay without them.
	var dep, ret time.Time
	var err error
	if c.DepartureDate != "" {
		if dep, err = time.Parse(types.DateLayout, c.DepartureDate); err != nil {
			return c, fmt.Errorf("departure_date must be in YYYY-MM-DD format")
		}
	}
	if c.ReturnDate != "" {
		if ret, err = time.Parse(types.DateLayout, c.ReturnDate); err != nil {
			return c, fmt.Errorf("return_date must be in YYYY-MM-DD format")
		}
	}
	if !dep.IsZero() && !ret.IsZero() && ret.Before(dep) {
		return c, fmt.Errorf("return_date must not be before departure_date")
	}

	if s := query.Get("party_size"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			return c, fmt.Errorf("party_size must be a positive integer")
		}
		c.PartySize = n
	}
	if s := query.Get("rooms"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			return c, fmt.Errorf("rooms must be a positive integer")
		}
		c.Rooms = n
	}
	if s := query.Get("budget"); s != "" {
		b, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(b) || math.IsInf(b, 0) || b < 0 {
			return c, fmt.Errorf("budget must be a non-negative number")
		}
		c.Budget = &b
	}

	return c, nil
}

// ExtractIP extracts the client IP from the request.
// Checks X-Forwarded-For, X-Real-IP, then falls back to RemoteAddr.
func ExtractIP(r *http.Request) string {
	// Check X-Forwarded-For (first IP in the list)
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	// Fallback to RemoteAddr (strip port)
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
