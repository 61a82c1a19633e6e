package ai

import "context"

type ctxKey int

const correlationIDKey ctxKey = iota

// WithCorrelationID tags ctx with the correlation id of the originating
// report so client layers can tie their log lines back to it.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey, id)
}

// CorrelationIDFrom returns the correlation id carried by ctx, or "".
func CorrelationIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(correlationIDKey).(string)
	return id
}
