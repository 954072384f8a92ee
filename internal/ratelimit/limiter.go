// Package ratelimit limits how often a client may trigger an operation.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter manages one fixed-window bucket per key. Every bucket shares the
// limit and window the limiter was created with.
type Limiter struct {
	limit    int
	interval time.Duration
	now      func() time.Time

	mu      sync.Mutex
	buckets map[string]*bucket
}

type bucket struct {
	tokens   int
	lastFill time.Time
}

// NewLimiter allows limit requests per key in every interval. A limit of
// zero or less disables limiting.
func NewLimiter(limit int, interval time.Duration) *Limiter {
	return &Limiter{
		limit:    limit,
		interval: interval,
		now:      time.Now,
		buckets:  make(map[string]*bucket),
	}
}

// Allow takes a token for key and reports whether one was available.
func (l *Limiter) Allow(key string) bool {
	if l.limit <= 0 {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b, ok := l.buckets[key]
	if !ok || now.Sub(b.lastFill) >= l.interval {
		b = &bucket{tokens: l.limit, lastFill: now}
		l.buckets[key] = b
	}

	if b.tokens <= 0 {
		return false
	}
	b.tokens--
	return true
}

// RetryAfter returns how long key has to wait for its bucket to refill.
func (l *Limiter) RetryAfter(key string) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok {
		return 0
	}
	if d := l.interval - l.now().Sub(b.lastFill); d > 0 {
		return d
	}
	return 0
}

// Reset clears the bucket for key.
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.buckets, key)
}

// CleanupExpired removes buckets that have not been refilled for maxAge.
func (l *Limiter) CleanupExpired(maxAge time.Duration) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	removed := 0
	for key, b := range l.buckets {
		if now.Sub(b.lastFill) > maxAge {
			delete(l.buckets, key)
			removed++
		}
	}
	return removed
}

// Run calls CleanupExpired every interval until ctx is done.
func (l *Limiter) Run(ctx context.Context, every, maxAge time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.CleanupExpired(maxAge)
		}
	}
}
