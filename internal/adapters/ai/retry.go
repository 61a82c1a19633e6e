package ai

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/hooplab/passport/internal/domain/prompt"
	"github.com/hooplab/passport/pkg/logger"
	"github.com/hooplab/passport/pkg/metrics"
)

const maxBackoff = 10 * time.Second

// RetryClient decorates a Client with bounded retries. Attempts back off
// exponentially with jitter, a Retry-After hint from the provider takes
// precedence over the computed backoff, and non-retryable errors fail fast.
type RetryClient struct {
	inner       Client
	log         logger.Logger
	maxAttempts int
	backoffBase time.Duration
	sleep       func(ctx context.Context, d time.Duration) error
}

// RetryOption configures a RetryClient.
type RetryOption func(*RetryClient)

// WithMaxAttempts sets the total attempt budget, first call included.
func WithMaxAttempts(n int) RetryOption {
	return func(r *RetryClient) {
		if n > 0 {
			r.maxAttempts = n
		}
	}
}

// WithBackoffBase sets the delay before the first retry. Each later retry
// doubles it, capped at ten seconds.
func WithBackoffBase(d time.Duration) RetryOption {
	return func(r *RetryClient) {
		if d > 0 {
			r.backoffBase = d
		}
	}
}

// WithRetryLogger sets the logger.
func WithRetryLogger(log logger.Logger) RetryOption {
	return func(r *RetryClient) {
		r.log = log
	}
}

// WithSleep replaces the inter-attempt sleep, used by tests.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) RetryOption {
	return func(r *RetryClient) {
		r.sleep = sleep
	}
}

// NewRetryClient wraps inner with retry policy options.
func NewRetryClient(inner Client, opts ...RetryOption) *RetryClient {
	r := &RetryClient{
		inner:       inner,
		maxAttempts: 3,
		backoffBase: time.Second,
		sleep:       sleepCtx,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.log == nil {
		r.log = logger.Named("ai.retry")
	}
	return r
}

// Generate calls the inner client until it succeeds, a non-retryable error
// occurs, the attempt budget runs out, or the context ends.
func (r *RetryClient) Generate(ctx context.Context, req prompt.Request) (Result, error) {
	corrID := CorrelationIDFrom(ctx)
	backoff := r.backoffBase
	var lastErr error

	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}

		metrics.RecordAIAttempt()
		r.log.Debug(ctx, "model call attempt",
			logger.Int("attempt", attempt),
			logger.Int("max_attempts", r.maxAttempts),
			logger.String("correlation_id", corrID),
		)
		start := time.Now()
		res, err := r.inner.Generate(ctx, req)
		latency := time.Since(start)
		metrics.RecordAICallLatency(float64(latency.Milliseconds()))
		if err == nil {
			r.log.Debug(ctx, "model call succeeded",
				logger.Int("attempt", attempt),
				logger.Duration("latency", latency),
				logger.String("correlation_id", corrID),
			)
			return res, nil
		}
		lastErr = err

		if !retryable(err) {
			metrics.RecordAIFailure()
			r.log.Warn(ctx, "model call failed",
				logger.Int("attempt", attempt),
				logger.String("correlation_id", corrID),
				logger.Error(err),
			)
			return Result{}, err
		}
		if attempt == r.maxAttempts {
			break
		}

		wait := backoff
		var httpErr *HTTPError
		if errors.As(err, &httpErr) && httpErr.RetryAfter > 0 {
			wait = httpErr.RetryAfter
		}
		if wait > maxBackoff {
			wait = maxBackoff
		}
		wait = jitter(wait)

		metrics.RecordAIRetry()
		r.log.Warn(ctx, "model call failed, retrying",
			logger.Int("attempt", attempt),
			logger.Int("max_attempts", r.maxAttempts),
			logger.Duration("wait", wait),
			logger.String("correlation_id", corrID),
			logger.Error(err),
		)

		if sleepErr := r.sleep(ctx, wait); sleepErr != nil {
			return Result{}, sleepErr
		}
		backoff *= 2
	}

	metrics.RecordAIFailure()
	r.log.Warn(ctx, "model call attempts exhausted",
		logger.Int("max_attempts", r.maxAttempts),
		logger.String("correlation_id", corrID),
		logger.Error(lastErr),
	)
	return Result{}, lastErr
}

// jitter spreads a delay by +/- 20% so concurrent workers do not retry in
// lockstep.
func jitter(base time.Duration) time.Duration {
	if base <= 0 {
		return 0
	}
	delta := float64(base) * 0.2
	low := float64(base) - delta
	return time.Duration(low + rand.Float64()*2*delta)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
