// Package lease defines single-flight leases keyed by report fingerprint.
package lease

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Leaser grants at most one in-flight generation per fingerprint. A lease
// expires on its own after the configured TTL, so a holder that crashes
// mid-generation cannot wedge the fingerprint forever.
type Leaser interface {
	// TryAcquire atomically takes the lease for fingerprint.
	// Returns false if another holder currently owns it.
	TryAcquire(ctx context.Context, fingerprint string) bool

	// Release frees the lease so the next request for the same
	// fingerprint can proceed immediately.
	Release(ctx context.Context, fingerprint string)

	Size() int64
}

type inMemoryLeaser struct {
	mu     sync.Mutex
	leases map[string]time.Time // fingerprint -> expiry
	ttl    time.Duration
	size   atomic.Int64
	now    func() time.Time
}

// NewInMemoryLeaser creates an in-memory leaser with configuration options.
func NewInMemoryLeaser(opts ...Option) Leaser {
	l := &inMemoryLeaser{
		leases: make(map[string]time.Time),
		ttl:    time.Minute,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *inMemoryLeaser) TryAcquire(_ context.Context, fingerprint string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if expiry, held := l.leases[fingerprint]; held && now.Before(expiry) {
		return false
	}
	if _, held := l.leases[fingerprint]; !held {
		l.size.Add(1)
	}
	l.leases[fingerprint] = now.Add(l.ttl)
	return true
}

func (l *inMemoryLeaser) Release(_ context.Context, fingerprint string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, held := l.leases[fingerprint]; held {
		delete(l.leases, fingerprint)
		l.size.Add(-1)
	}
}

func (l *inMemoryLeaser) Size() int64 {
	return l.size.Load()
}
