package audit

import "context"

type contextKey struct{}

// ContextWithCorrelationID attaches a correlation id so audit records written
// deeper in the call chain can be traced back to the originating request.
func ContextWithCorrelationID(ctx context.Context, correlationID string) context.Context {
	if correlationID == "" {
		return ctx
	}
	return context.WithValue(ctx, contextKey{}, correlationID)
}

// CorrelationIDFromContext returns the attached correlation id, if any
func CorrelationIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(contextKey{}).(string); ok {
		return id
	}
	return ""
}
