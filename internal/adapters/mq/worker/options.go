// Package worker runs the pool that drains generation jobs off the queue.
package worker

import "github.com/hooplab/passport/pkg/logger"

// Option applies a configuration option to a Worker.
type Option func(*Worker)

// WithName sets the worker name used for logging.
func WithName(name string) Option {
	return func(w *Worker) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(log logger.Logger) Option {
	return func(w *Worker) {
		if log != nil {
			w.log = log
		}
	}
}
