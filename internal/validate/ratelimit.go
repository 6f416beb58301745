package validate

import (
	"sync"
	"time"

	"github.com/coder/quartz"
)

// Category buckets messages for throttling purposes.
type Category string

const (
	CategoryGame       Category = "game"       // ready, dealer call, select, play, set auto
	CategoryRoom       Category = "room"       // create, join, leave
	CategoryConnection Category = "connection" // reconnect
	CategoryHeartbeat  Category = "heartbeat"  // ping; bounded but never error-fed back
)

type limit struct {
	max    int
	window time.Duration
}

// Per-category sliding windows. Heartbeats are generous: the limit only
// guards against floods, exceeding it drops silently.
var limits = map[Category]limit{
	CategoryGame:       {max: 10, window: time.Second},
	CategoryRoom:       {max: 5, window: time.Second},
	CategoryConnection: {max: 10, window: time.Minute},
	CategoryHeartbeat:  {max: 120, window: time.Minute},
}

// RateLimiter throttles one connection with a sliding window per category.
// Cleanup is opportunistic on access; no background goroutine.
type RateLimiter struct {
	clock quartz.Clock
	mu    sync.Mutex
	seen  map[Category][]time.Time
}

// NewRateLimiter creates a limiter on the given clock.
func NewRateLimiter(clock quartz.Clock) *RateLimiter {
	return &RateLimiter{
		clock: clock,
		seen:  make(map[Category][]time.Time),
	}
}

// Allow records an arrival and reports whether it is within the category's
// window. Rejected messages are dropped by the caller; the connection stays
// open.
func (rl *RateLimiter) Allow(c Category) bool {
	lim, ok := limits[c]
	if !ok {
		return true
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.clock.Now()
	cutoff := now.Add(-lim.window)

	window := rl.seen[c]
	kept := window[:0]
	for _, t := range window {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}

	if len(kept) >= lim.max {
		rl.seen[c] = kept
		return false
	}
	rl.seen[c] = append(kept, now)
	return true
}
