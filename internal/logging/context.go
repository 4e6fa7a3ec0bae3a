package logging

import (
	"context"
	"log/slog"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldPhoto is the standardized structured logging key for photo file paths.
	FieldPhoto = "photo"
	// FieldPatientID is the standardized structured logging key for patient identifiers.
	FieldPatientID = "patient_id"
	// FieldSessionID is the standardized structured logging key for session identifiers.
	FieldSessionID = "session_id"
	// FieldReason is the standardized structured logging key for error sink reason codes.
	FieldReason = "reason"
	// FieldCorrelationID is the standardized structured logging key for per-event correlation ids.
	FieldCorrelationID = "correlation_id"
)

type correlationIDKey struct{}

// WithCorrelationID stores a per-event correlation id in the context.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, correlationIDKey{}, id)
}

// CorrelationIDFromContext extracts a correlation id previously stored with
// WithCorrelationID.
func CorrelationIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	id, ok := ctx.Value(correlationIDKey{}).(string)
	return id, ok && id != ""
}

// WithContext returns a logger augmented with structured fields derived from
// the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	if id, ok := CorrelationIDFromContext(ctx); ok {
		return logger.With(String(FieldCorrelationID, id))
	}
	return logger
}
