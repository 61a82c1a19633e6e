// Package worker runs the pool that drains generation jobs off the queue.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"time"

	"github.com/hooplab/passport/internal/adapters/mq/queue"
	"github.com/hooplab/passport/pkg/logger"
	"github.com/hooplab/passport/pkg/metrics"
)

const poolShutdownTimeout = 30 * time.Second

// Generator runs the full generation pipeline for one queued job.
type Generator interface {
	Process(ctx context.Context, job queue.Job) error
}

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Job
}

// Worker drains jobs and hands them to the generator.
type Worker struct {
	queue     Queue
	generator Generator
	name      string

	shutdown chan struct{}
	done     chan struct{}

	log logger.Logger
}

// NewWorker creates a worker with configuration options.
func NewWorker(q Queue, generator Generator, opts ...Option) *Worker {
	w := &Worker{
		queue:     q,
		generator: generator,
		name:      "worker",
		shutdown:  make(chan struct{}),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.log == nil {
		w.log = logger.Named(w.name)
	}
	return w
}

// Run processes jobs until ctx ends, the queue closes, or Shutdown is called.
func (w *Worker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case job, ok := <-jobs:
			if !ok {
				return
			}
			if err := w.generator.Process(ctx, job); err != nil {
				w.log.Error(ctx, "job processing failed",
					logger.String("report_id", job.ReportID),
					logger.String("correlation_id", job.CorrelationID),
					logger.Error(err),
				)
			}
		}
	}
}

// Shutdown stops the worker, waiting for the in-flight job to finish.
func (w *Worker) Shutdown(ctx context.Context) error {
	close(w.shutdown)

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.log.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// Pool manages a fixed set of workers over one queue.
type Pool struct {
	workers []*Worker
	queue   Queue
	log     logger.Logger
}

// NewPool creates workerCount workers over q. A non-positive count defaults
// to the number of CPUs.
func NewPool(workerCount int, q Queue, generator Generator) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}

	p := &Pool{
		workers: make([]*Worker, workerCount),
		queue:   q,
		log:     logger.Named("worker-pool"),
	}
	for i := range p.workers {
		p.workers[i] = NewWorker(q, generator, WithName("worker-"+strconv.Itoa(i)))
	}

	metrics.UpdateWorkerCount(workerCount)
	return p
}

// Start launches all workers.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Shutdown closes the queue and waits for the workers to drain.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.log.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			p.log.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}

	metrics.UpdateWorkerCount(0)
	return nil
}
