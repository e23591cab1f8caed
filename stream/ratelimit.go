package stream

import (
	"sync"
	"time"
)

// RateLimiter admits at most limit events per window. The window opens at
// the first event and restarts with the first event after it has elapsed.
// Rejected events do not count against the budget.
type RateLimiter struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	now    func() time.Time

	start time.Time
	count int
}

// NewRateLimiter creates a limiter; a nil clock uses time.Now
func NewRateLimiter(limit int, window time.Duration, now func() time.Time) *RateLimiter {
	if now == nil {
		now = time.Now
	}
	return &RateLimiter{limit: limit, window: window, now: now}
}

// Allow reports whether one more event fits in the current window
func (r *RateLimiter) Allow() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	t := r.now()
	if r.start.IsZero() || t.Sub(r.start) >= r.window {
		r.start = t
		r.count = 0
	}
	if r.count >= r.limit {
		return false
	}
	r.count++
	return true
}
