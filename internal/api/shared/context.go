package shared

import (
	"context"

	"github.com/google/uuid"
)

// ContextKey is the type of request-scoped context keys set by the API layer.
type ContextKey string

const (
	// SubjectContextKey holds the "sub" claim of an authenticated caller.
	SubjectContextKey ContextKey = "subject"

	// TraceIDKey holds the trace ID of the request.
	TraceIDKey ContextKey = "traceID"
)

// SetTraceID stores traceID in the context, generating one when it is empty.
// Incoming request IDs are reused so logs correlate across hops.
func SetTraceID(ctx context.Context, traceID string) context.Context {
	if traceID == "" {
		traceID = uuid.NewString()
	}
	return context.WithValue(ctx, TraceIDKey, traceID)
}

// GetTraceID retrieves the trace ID from the context, or "" if none is set.
func GetTraceID(ctx context.Context) string {
	traceID, _ := ctx.Value(TraceIDKey).(string)
	return traceID
}

// GetSubject returns the authenticated caller, if any.
func GetSubject(ctx context.Context) (string, bool) {
	sub, ok := ctx.Value(SubjectContextKey).(string)
	return sub, ok && sub != ""
}
