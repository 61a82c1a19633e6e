// Package ratelimit caps how many report generations an owner may request
// inside a sliding window.
package ratelimit

import (
	"sync"
	"time"
)

// Limiter tracks request timestamps per owner and rejects requests once the
// window is full. Timestamps older than the window are dropped on every check,
// so memory stays proportional to recent activity.
type Limiter struct {
	mu       sync.Mutex
	requests map[string][]time.Time
	window   time.Duration
	max      int
	now      func() time.Time
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock replaces the wall clock, used by tests to advance time.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		l.now = now
	}
}

// New creates a limiter allowing max requests per owner within window.
func New(window time.Duration, max int, opts ...Option) *Limiter {
	l := &Limiter{
		requests: make(map[string][]time.Time),
		window:   window,
		max:      max,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Allow records a request for owner if the window has room and reports
// whether it was admitted. Rejected requests are not recorded.
func (l *Limiter) Allow(owner string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()

	if prior, ok := l.requests[owner]; ok {
		valid := prior[:0]
		for _, t := range prior {
			if now.Sub(t) < l.window {
				valid = append(valid, t)
			}
		}
		if len(valid) == 0 {
			delete(l.requests, owner)
		} else {
			l.requests[owner] = valid
		}
	}

	if len(l.requests[owner]) >= l.max {
		return false
	}

	l.requests[owner] = append(l.requests[owner], now)
	return true
}

// Remaining reports how many requests owner may still make in the current
// window without recording anything.
func (l *Limiter) Remaining(owner string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	used := 0
	for _, t := range l.requests[owner] {
		if now.Sub(t) < l.window {
			used++
		}
	}
	if used >= l.max {
		return 0
	}
	return l.max - used
}
