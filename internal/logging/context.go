package logging

import (
	"context"
	"log/slog"

	"cfts/internal/session"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldRunID is the standardized structured logging key for launch and batch run identifiers.
	FieldRunID = "run_id"
	// FieldRecording is the standardized structured logging key for the recording file being processed.
	FieldRecording = "recording"
	// FieldStage is the standardized structured logging key for pipeline stage names.
	FieldStage = "stage"
	// FieldStarship is the standardized structured logging key for the selected starship ID.
	FieldStarship = "starship"
	// FieldLoader is the standardized structured logging key for calibration loader names.
	FieldLoader = "loader"
	// FieldEventType classifies warnings and errors for later filtering.
	FieldEventType = "event_type"
	// FieldErrorHint tells the operator what to do next.
	FieldErrorHint = "error_hint"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 4)
	if id, ok := session.RunIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldRunID, id))
	}
	if path, ok := session.RecordingFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldRecording, path))
	}
	if stage, ok := session.StageFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldStage, stage))
	}
	if id, ok := session.StarshipFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldStarship, id))
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
	return logger.With(attrsToArgs(fields)...)
}
