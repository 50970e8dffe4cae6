package ratelimit

import (
	"context"
	"sync"
	"time"
)

// TokenBucket is an in-memory limiter. A bucket holds up to capacity tokens and
// refills at capacity tokens per window; idle buckets are dropped by Sweep.
type TokenBucket struct {
	mu       sync.Mutex
	buckets  map[string]*bucket
	capacity int
	window   time.Duration
	now      func() time.Time
}

type bucket struct {
	tokens   float64
	lastSeen time.Time
}

// NewTokenBucket creates a limiter allowing capacity requests per window
func NewTokenBucket(capacity int, window time.Duration) *TokenBucket {
	return &TokenBucket{
		buckets:  make(map[string]*bucket),
		capacity: capacity,
		window:   window,
		now:      time.Now,
	}
}

// Allow takes one token from key's bucket
func (tb *TokenBucket) Allow(ctx context.Context, key string) (*Info, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tb.mu.Lock()
	defer tb.mu.Unlock()

	now := tb.now()
	b, ok := tb.buckets[key]
	if !ok {
		b = &bucket{tokens: float64(tb.capacity), lastSeen: now}
		tb.buckets[key] = b
	} else if elapsed := now.Sub(b.lastSeen); elapsed > 0 {
		b.tokens += float64(tb.capacity) * elapsed.Seconds() / tb.window.Seconds()
		if b.tokens > float64(tb.capacity) {
			b.tokens = float64(tb.capacity)
		}
		b.lastSeen = now
	}

	info := &Info{Limit: tb.capacity}
	if b.tokens >= 1 {
		b.tokens--
		info.Allowed = true
	}
	info.Remaining = int(b.tokens)

	// time until the next whole token
	missing := 1 - (b.tokens - float64(int(b.tokens)))
	info.ResetAt = now.Add(time.Duration(missing * float64(tb.window) / float64(tb.capacity)))
	return info, nil
}

// Sweep drops buckets idle for longer than a window; a full bucket is
// indistinguishable from a missing one.
func (tb *TokenBucket) Sweep() int {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	now := tb.now()
	removed := 0
	for key, b := range tb.buckets {
		if now.Sub(b.lastSeen) > tb.window {
			delete(tb.buckets, key)
			removed++
		}
	}
	return removed
}

// Close is a no-op for in-memory buckets
func (tb *TokenBucket) Close() error {
	return nil
}
