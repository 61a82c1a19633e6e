package content

import "errors"

// Sentinel kinds for this package.
var (
	// ErrMalformedResponse marks AI output that is not valid JSON for the schema.
	ErrMalformedResponse = errors.New("malformed AI response")

	// ErrContentRejected marks schema-valid output that violates structure
	// bounds, safety guardrails, or numeric consistency.
	ErrContentRejected = errors.New("content rejected")
)
