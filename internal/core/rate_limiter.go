package core

// rate_limiter.go throttles repeated import attempts per user.
//
// Each user gets a window that opens on their first attempt. Up to
// maxAttempts are allowed inside it; after that Check reports how many
// seconds remain until the window resets. Windows reset lazily on the next
// Check once they have expired, and Sweep drops expired entries so the map
// does not grow without bound.

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"
)

// Upload path defaults.
const (
	DefaultMaxAttempts   = 10
	DefaultRateWindow    = 5 * time.Minute
	DefaultSweepInterval = time.Minute
)

// Decision is the outcome of a rate limit check.
type Decision struct {
	Allowed    bool
	RetryAfter int // Seconds until the window resets; zero when allowed
}

// RateLimitError is returned by Service when a user is over the limit.
type RateLimitError struct {
	RetryAfter int
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded: try again in %d seconds", e.RetryAfter)
}

type rateState struct {
	count       int
	windowStart time.Time
}

// RateLimiter counts attempts per user id within a fixed window.
type RateLimiter struct {
	maxAttempts int
	window      time.Duration
	clock       Clock

	mu    sync.Mutex
	users map[string]*rateState
}

// NewRateLimiter creates a limiter allowing maxAttempts per window.
// Non-positive values fall back to DefaultMaxAttempts and DefaultRateWindow.
func NewRateLimiter(maxAttempts int, window time.Duration, opts ...Option) *RateLimiter {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if window <= 0 {
		window = DefaultRateWindow
	}
	o := buildOptions(opts)
	return &RateLimiter{
		maxAttempts: maxAttempts,
		window:      window,
		clock:       o.clock,
		users:       make(map[string]*rateState),
	}
}

// Check records an attempt for userID. An empty userID is always allowed
// and never tracked.
func (l *RateLimiter) Check(userID string) Decision {
	if userID == "" {
		return Decision{Allowed: true}
	}
	now := l.clock.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	st, ok := l.users[userID]
	if !ok {
		st = &rateState{windowStart: now}
		l.users[userID] = st
	}
	if now.Sub(st.windowStart) > l.window {
		st.count = 0
		st.windowStart = now
	}

	if st.count >= l.maxAttempts {
		remaining := st.windowStart.Add(l.window).Sub(now)
		return Decision{
			Allowed:    false,
			RetryAfter: int(math.Ceil(remaining.Seconds())),
		}
	}

	st.count++
	return Decision{Allowed: true}
}

// Sweep deletes users whose window has expired and returns how many were dropped.
func (l *RateLimiter) Sweep() int {
	now := l.clock.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for id, st := range l.users {
		if now.Sub(st.windowStart) > l.window {
			delete(l.users, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked users.
func (l *RateLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.users)
}

// Run sweeps every interval until ctx is cancelled.
func (l *RateLimiter) Run(ctx context.Context, interval time.Duration) {
	RunSweeper(ctx, "rate_limiter", interval, l)
}
