package logging

import (
	"context"
	"log/slog"

	"sbsconv/internal/services"
)

const (
	// FieldComponent is the structured logging key for component names.
	FieldComponent = "component"
	// FieldShot is the structured logging key for shot names.
	FieldShot = "shot"
	// FieldRunID is the structured logging key for conversion run identifiers.
	FieldRunID = "run_id"
	// FieldFrame is the structured logging key for a single frame file name.
	FieldFrame = "frame"
	// FieldEventType tags a log line with a stable, greppable event name.
	FieldEventType = "event_type"
	// FieldErrorHint carries the operator-facing next step for a failure.
	FieldErrorHint = "error_hint"
	// FieldImpact is the key for the user-facing consequence of a warning.
	FieldImpact = "impact"
	// FieldProgressPercent is the key for overall or per-shot completion.
	FieldProgressPercent = "progress_percent"
	// FieldProgressETA is the key for the remaining-time estimate.
	FieldProgressETA = "progress_eta"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 3)
	if shot, ok := services.ShotFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldShot, shot))
	}
	if runID, ok := services.RunIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldRunID, runID))
	}
	if component, ok := services.ComponentFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldComponent, component))
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
