package ai

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"
)

// ErrEmptyCompletion indicates the upstream answered 200 with no usable text.
var ErrEmptyCompletion = errors.New("empty completion")

// HTTPError is a non-2xx answer from the model provider. RetryAfter carries
// the provider's Retry-After hint when one was sent.
type HTTPError struct {
	StatusCode int
	Body       string
	RetryAfter time.Duration
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("model provider http %d: %s", e.StatusCode, e.Body)
}

// Retryable reports whether the status is worth another attempt.
// 408 and 429 are transient by definition, as is any 5xx.
func (e *HTTPError) Retryable() bool {
	if e.StatusCode == 408 || e.StatusCode == 429 {
		return true
	}
	return e.StatusCode >= 500 && e.StatusCode <= 599
}

// retryable classifies an attempt error. Client-side cancellation is never
// retried; timeouts, transient network failures, and retryable HTTP statuses
// are.
func retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Retryable()
	}
	return false
}
