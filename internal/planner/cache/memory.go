package cache

import (
	"context"
	"sync"
	"time"

	"github.com/alex-user-go/tripplan/internal/planner/types"
)

// MemoryStore keeps plans in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]*cacheEntry
	done    chan struct{}
	once    sync.Once
}

type cacheEntry struct {
	plan      *types.Plan
	expiresAt time.Time
}

// NewMemoryStore creates a MemoryStore and starts its cleanup loop.
func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{
		entries: make(map[string]*cacheEntry),
		done:    make(chan struct{}),
	}

	// Start background cleanup
	go s.cleanup()

	return s
}

// Close stops the background cleanup goroutine.
func (s *MemoryStore) Close() error {
	s.once.Do(func() { close(s.done) })
	return nil
}

// Get returns an unexpired plan.
func (s *MemoryStore) Get(_ context.Context, key string) (*types.Plan, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[key]
	if !ok || !time.Now().Before(entry.expiresAt) {
		return nil, false, nil
	}
	return entry.plan, true, nil
}

// Set stores a plan for ttl.
func (s *MemoryStore) Set(_ context.Context, key string, plan *types.Plan, ttl time.Duration) error {
	s.mu.Lock()
	s.entries[key] = &cacheEntry{
		plan:      plan,
		expiresAt: time.Now().Add(ttl),
	}
	s.mu.Unlock()
	return nil
}

// Delete removes a specific key.
func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
	return nil
}

// Clear removes all entries.
func (s *MemoryStore) Clear() {
	s.mu.Lock()
	s.entries = make(map[string]*cacheEntry)
	s.mu.Unlock()
}

// Len returns the number of stored entries, expired ones included.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// cleanup periodically removes expired entries.
func (s *MemoryStore) cleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.evictExpired(time.Now())
		case <-s.done:
			return
		}
	}
}

func (s *MemoryStore) evictExpired(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, entry := range s.entries {
		if now.After(entry.expiresAt) {
			delete(s.entries, key)
		}
	}
}
