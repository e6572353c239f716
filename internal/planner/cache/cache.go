// Package cache stores assembled plans for a short time and collapses
// concurrent requests for the same trip into one planning run.
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/alex-user-go/tripplan/internal/planner/types"
)

// Store is a plan storage backend.
type Store interface {
	Get(ctx context.Context, key string) (*types.Plan, bool, error)
	Set(ctx context.Context, key string, plan *types.Plan, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Cache provides TTL caching with request collapsing on top of a Store.
type Cache struct {
	store  Store
	ttl    time.Duration
	group  singleflight.Group
	logger *slog.Logger
}

// New creates a Cache backed by store.
func New(store Store, ttl time.Duration, logger *slog.Logger) *Cache {
	return &Cache{
		store:  store,
		ttl:    ttl,
		logger: logger,
	}
}

// NewMemory creates a Cache backed by a MemoryStore.
func NewMemory(ttl time.Duration, logger *slog.Logger) *Cache {
	return New(NewMemoryStore(), ttl, logger)
}

// Close releases the backend.
func (c *Cache) Close() error {
	return c.store.Close()
}

// Key generates a cache key from the planning request.
func (c *Cache) Key(criteria types.Criteria) string {
	budget := "-"
	if criteria.Budget != nil {
		budget = strconv.FormatFloat(*criteria.Budget, 'f', -1, 64)
	}
	return fmt.Sprintf("%s:%s:%s:%s:%d:%d:%s",
		strings.ToLower(strings.TrimSpace(criteria.Origin)),
		strings.ToLower(strings.TrimSpace(criteria.Destination)),
		criteria.DepartureDate,
		criteria.ReturnDate,
		criteria.PartySize,
		criteria.Rooms,
		budget,
	)
}

// GetOrFetch retrieves from cache or executes the fetch function.
// Concurrent requests for the same key are collapsed (singleflight pattern).
// Returns the plan and a boolean indicating if it was a cache hit. Backend
// errors are logged and treated as a miss. Plans assembled with failed
// providers are returned but not stored.
func (c *Cache) GetOrFetch(ctx context.Context, key string, fetch func() (*types.Plan, error)) (*types.Plan, bool, error) {
	plan, ok, err := c.store.Get(ctx, key)
	if err != nil {
		c.logger.Warn("cache read failed", "key", key, "error", err)
	} else if ok {
		return plan, true, nil
	}

	ch := c.group.DoChan(key, func() (any, error) {
		plan, err := fetch()
		if err != nil || plan == nil || plan.Stats.ProvidersFailed > 0 {
			return plan, err
		}
		if err := c.store.Set(context.WithoutCancel(ctx), key, plan, c.ttl); err != nil {
			c.logger.Warn("cache write failed", "key", key, "error", err)
		}
		return plan, nil
	})

	select {
	case res := <-ch:
		plan, _ := res.Val.(*types.Plan)
		return plan, false, res.Err
	case <-ctx.Done():
		return nil, false, context.Cause(ctx)
	}
}

// Invalidate removes a specific key from the cache.
func (c *Cache) Invalidate(ctx context.Context, key string) error {
	c.group.Forget(key)
	return c.store.Delete(ctx, key)
}

// Disabled is a Store that never holds anything.
type Disabled struct{}

// Get always misses.
func (Disabled) Get(context.Context, string) (*types.Plan, bool, error) { return nil, false, nil }

// Set discards the plan.
func (Disabled) Set(context.Context, string, *types.Plan, time.Duration) error { return nil }

// Delete does nothing.
func (Disabled) Delete(context.Context, string) error { return nil }

// Close does nothing.
func (Disabled) Close() error { return nil }
