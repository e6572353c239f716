// Package ratelimit limits planning requests per client key.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter keeps one token bucket per key. Each bucket holds up to rate
// tokens and refills at rate tokens per window.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	rate    int           // tokens per window
	window  time.Duration // time window
	done    chan struct{}
	once    sync.Once
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// New creates a new Limiter. A rate of zero or less rejects every request.
func New(tokens int, window time.Duration) *Limiter {
	l := &Limiter{
		buckets: make(map[string]*bucket),
		rate:    tokens,
		window:  window,
		done:    make(chan struct{}),
	}

	// Start background cleanup
	go l.cleanup()

	return l
}

// Close stops the background cleanup goroutine.
func (l *Limiter) Close() {
	l.once.Do(func() { close(l.done) })
}

// Decision is the outcome of one Check.
type Decision struct {
	Allowed bool
	// Remaining is the number of whole tokens left after the request.
	Remaining int
	// RetryAfter is how long a rejected client should wait for one token.
	RetryAfter time.Duration
}

// Allow checks if a request for the given key is allowed.
func (l *Limiter) Allow(key string) bool {
	return l.Check(key).Allowed
}

// Check consumes a token for key when one is available.
func (l *Limiter) Check(key string) Decision {
	if l.rate <= 0 || l.window <= 0 {
		return Decision{RetryAfter: max(l.window, 0)}
	}

	now := time.Now()
	lim := l.bucket(key, now)
	if lim.AllowN(now, 1) {
		return Decision{Allowed: true, Remaining: int(lim.TokensAt(now))}
	}

	missing := 1 - lim.TokensAt(now)
	return Decision{RetryAfter: time.Duration(missing * float64(l.interval()))}
}

func (l *Limiter) interval() time.Duration {
	return l.window / time.Duration(l.rate)
}

func (l *Limiter) bucket(key string, now time.Time) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(rate.Every(l.interval()), l.rate)}
		l.buckets[key] = b
	}
	b.lastSeen = now
	return b.limiter
}

// Len returns the number of tracked keys.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// cleanup periodically removes stale buckets.
func (l *Limiter) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.evictIdle(time.Now())
		case <-l.done:
			return
		}
	}
}

// evictIdle drops buckets unused for two windows; they would be full again.
func (l *Limiter) evictIdle(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, b := range l.buckets {
		if now.Sub(b.lastSeen) > 2*l.window {
			delete(l.buckets, key)
		}
	}
}
