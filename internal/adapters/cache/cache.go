// Package cache provides the fingerprint cache for generated report content.
package cache

import "context"

// Stats are cumulative counters for cache effectiveness.
type Stats struct {
	Hits   uint64
	Misses uint64
	Errors uint64
}

// Cache stores validated report content keyed by fingerprint. The cache is a
// best-effort layer: a backend failure surfaces as a miss, never as a
// generation failure.
type Cache interface {
	// Get returns the cached content for fingerprint, or false on a miss.
	Get(ctx context.Context, fingerprint string) ([]byte, bool)

	// Put stores content under fingerprint for the configured TTL.
	Put(ctx context.Context, fingerprint string, content []byte)

	// Stats returns cumulative hit, miss, and error counts.
	Stats() Stats
}
