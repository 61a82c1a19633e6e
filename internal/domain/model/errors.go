package model

import "errors"

// Sentinel kinds for the generation error taxonomy. Callers distinguish these
// with errors.Is; everything after report-row creation is recorded on the row
// instead of propagating.
var (
	// ErrInsufficientData rejects a request with fewer than the minimum games.
	ErrInsufficientData = errors.New("insufficient data")

	// ErrRateLimited rejects a request over the per-owner generation quota.
	ErrRateLimited = errors.New("rate limited")

	// ErrUpstreamTimeout marks an AI backend timeout after retries.
	ErrUpstreamTimeout = errors.New("upstream timeout")

	// ErrUpstreamError marks AI backend failure after retries.
	ErrUpstreamError = errors.New("upstream error")

	// ErrCacheUnavailable marks a cache backend failure; never fatal.
	ErrCacheUnavailable = errors.New("cache backend unavailable")

	// ErrNotFound marks a missing player, game, or report.
	ErrNotFound = errors.New("not found")

	// ErrTerminalState rejects transitions out of completed/failed.
	ErrTerminalState = errors.New("report in terminal state")

	// ErrInvalidGame rejects a stat line violating makes <= attempts bounds.
	ErrInvalidGame = errors.New("invalid game stat line")

	// ErrBusy rejects a request when the generation queue is full.
	ErrBusy = errors.New("generation queue is full")
)
