// Package queue buffers generation jobs between the HTTP accept path and the
// worker pool.
package queue

import (
	"context"
	"sync"
	"time"

	"github.com/hooplab/passport/pkg/metrics"
)

const defaultCapacity = 1024

// Job is one queued report generation.
type Job struct {
	ReportID      string
	PlayerID      string
	GameIDs       []string
	Fingerprint   string
	CorrelationID string
	EnqueuedAt    time.Time
}

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a job to the queue.
	// Returns false if the queue is full or closed.
	Enqueue(ctx context.Context, job Job) bool

	// Dequeue returns a channel that receives jobs as they become
	// available. The channel closes when the queue is closed.
	Dequeue(ctx context.Context) <-chan Job

	// Len returns the current number of queued jobs.
	Len(ctx context.Context) int

	// Close stops the queue. Queued jobs still drain to consumers.
	Close() error

	// IsClosed reports whether the queue has been closed.
	IsClosed() bool
}

// InMemoryQueue implements Queue on a buffered channel.
type InMemoryQueue struct {
	jobs     chan Job
	capacity int
	mu       sync.RWMutex
	closed   bool
}

// NewInMemoryQueue creates a bounded in-memory queue with configuration
// options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{
		capacity: defaultCapacity,
	}
	for _, opt := range opts {
		opt(q)
	}
	q.jobs = make(chan Job, q.capacity)

	metrics.UpdateQueueSize(0)
	return q
}

// Enqueue adds a job to the queue without blocking.
func (q *InMemoryQueue) Enqueue(ctx context.Context, job Job) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed || ctx.Err() != nil {
		return false
	}

	select {
	case q.jobs <- job:
		metrics.UpdateQueueSize(len(q.jobs))
		return true
	default:
		return false
	}
}

// Dequeue returns a channel that receives jobs until the queue closes or ctx
// ends.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Job {
	out := make(chan Job)
	go func() {
		defer close(out)
		for job := range q.jobs {
			select {
			case out <- job:
				metrics.UpdateQueueSize(len(q.jobs))
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Len returns the current number of queued jobs.
func (q *InMemoryQueue) Len(_ context.Context) int {
	return len(q.jobs)
}

// Close stops accepting new jobs and lets consumers drain the rest.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.jobs)
	q.closed = true
	return nil
}

// IsClosed reports whether the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
