package logging

import (
	"context"
	"log/slog"

	"podgen/internal/services"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldSessionID identifies the studio session emitting the record.
	FieldSessionID = "session_id"
	// FieldRequestID identifies the generation request handle.
	FieldRequestID = "request_id"
	// FieldEventType classifies a record for filtering.
	FieldEventType = "event_type"
	// FieldErrorHint suggests the next step after a failure.
	FieldErrorHint = "error_hint"
	// FieldImpact is the user-facing consequence of a warning.
	FieldImpact = "impact"
	// FieldState carries a controller state name.
	FieldState = "state"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 3)
	if comp, ok := services.ComponentFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldComponent, comp))
	}
	if sid, ok := services.SessionIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldSessionID, sid))
	}
	if rid, ok := services.RequestIDFromContext(ctx); ok {
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
	return logger.With(args(fields...)...)
}
