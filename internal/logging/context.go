package logging

import (
	"context"
	"log/slog"

	"atelier/internal/ops"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldOperation is the standardized key for orchestrator operation names.
	FieldOperation = "operation"
	// FieldPath is the standardized key for the file an operation acts on.
	FieldPath = "path"
	// FieldRequestID is the standardized key for request correlation identifiers.
	FieldRequestID = "request_id"
	// FieldDecisionType labels decision log lines.
	FieldDecisionType = "decision_type"
	// FieldEventType classifies warning and error lines for filtering.
	FieldEventType = "event_type"
	// FieldErrorHint suggests what the user can do about a failure.
	FieldErrorHint = "error_hint"
	// FieldImpact describes what a degraded operation skipped.
	FieldImpact = "impact"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 3)
	if op, ok := ops.OperationFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldOperation, op))
	}
	if path, ok := ops.PathFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldPath, path))
	}
	if rid, ok := ops.RequestIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldRequestID, rid))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(Args(fields...)...)
}
