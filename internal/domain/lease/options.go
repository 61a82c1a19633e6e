// Package lease defines single-flight leases keyed by report fingerprint.
package lease

import "time"

// Option applies a configuration option to the in-memory leaser.
type Option func(*inMemoryLeaser)

// WithTTL sets how long an unreleased lease stays held. This should match
// the generation timeout budget so an abandoned lease clears no later than
// the generation that took it could have.
func WithTTL(ttl time.Duration) Option {
	return func(l *inMemoryLeaser) {
		l.ttl = ttl
	}
}

// WithClock replaces the wall clock, used by tests to force expiry.
func WithClock(now func() time.Time) Option {
	return func(l *inMemoryLeaser) {
		l.now = now
	}
}
