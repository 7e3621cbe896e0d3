package common

import (
	"context"
)

// Context keys for storing values in context
type contextKey string

const (
	ContextKeyRequestID contextKey = "request_id"
	ContextKeyBearer    contextKey = "bearer_token"
)

// RequestIDHeader carries the request id between gateway and upstream.
const RequestIDHeader = "X-Request-ID"

// WithRequestID adds a request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// RequestIDFromContext extracts the request ID from context
func RequestIDFromContext(ctx context.Context) string {
	if requestID, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return requestID
	}
	return ""
}

// WithBearer stores the caller's bearer token for forwarding.
func WithBearer(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, ContextKeyBearer, token)
}

// BearerFromContext returns the bearer token stored by WithBearer.
func BearerFromContext(ctx context.Context) string {
	if token, ok := ctx.Value(ContextKeyBearer).(string); ok {
		return token
	}
	return ""
}
