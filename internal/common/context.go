package common

import "context"

// Context keys for storing values in context
type contextKey string

const (
	ContextKeyRequestID contextKey = "request_id"
	ContextKeyClaimID   contextKey = "claim_id"
)

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

// WithClaimID adds a claim ID to the context
func WithClaimID(ctx context.Context, claimID string) context.Context {
	return context.WithValue(ctx, ContextKeyClaimID, claimID)
}

// ClaimIDFromContext extracts the claim ID from context
func ClaimIDFromContext(ctx context.Context) string {
	if claimID, ok := ctx.Value(ContextKeyClaimID).(string); ok {
		return claimID
	}
	return ""
}
