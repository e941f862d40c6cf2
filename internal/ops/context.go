package ops

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

const (
	requestIDKey contextKey = "request_id"
	operationKey contextKey = "operation"
	pathKey      contextKey = "path"
)

// NewRequestID returns a fresh correlation identifier.
func NewRequestID() string {
	return uuid.NewString()
}

// WithRequestID annotates context with a correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the correlation identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(requestIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithOperation annotates context with the orchestrator operation name.
func WithOperation(ctx context.Context, op string) context.Context {
	if op == "" {
		return ctx
	}
	return context.WithValue(ctx, operationKey, op)
}

// OperationFromContext returns the operation name if present.
func OperationFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(operationKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithPath annotates context with the file the operation acts on.
func WithPath(ctx context.Context, path string) context.Context {
	if path == "" {
		return ctx
	}
	return context.WithValue(ctx, pathKey, path)
}

// PathFromContext returns the file path if present.
func PathFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(pathKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// Begin stamps a new request id plus the operation and path onto ctx.
func Begin(ctx context.Context, op, path string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if _, ok := RequestIDFromContext(ctx); !ok {
		ctx = WithRequestID(ctx, NewRequestID())
	}
	return WithPath(WithOperation(ctx, op), path)
}
