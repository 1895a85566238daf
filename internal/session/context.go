package session

import "context"

type contextKey string

const (
	runIDKey     contextKey = "run_id"
	recordingKey contextKey = "recording"
	stageKey     contextKey = "stage"
	starshipKey  contextKey = "starship"
)

// WithRunID annotates context with the launch or batch run identifier.
func WithRunID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, runIDKey, id)
}

// RunIDFromContext extracts the run identifier if present.
func RunIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(runIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithRecording annotates context with the recording file being processed.
func WithRecording(ctx context.Context, path string) context.Context {
	if path == "" {
		return ctx
	}
	return context.WithValue(ctx, recordingKey, path)
}

// RecordingFromContext returns the recording path if present.
func RecordingFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(recordingKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithStage annotates context with the pipeline stage name.
func WithStage(ctx context.Context, stage string) context.Context {
	if stage == "" {
		return ctx
	}
	return context.WithValue(ctx, stageKey, stage)
}

// StageFromContext returns the stage name if present.
func StageFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(stageKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithStarship annotates context with the selected starship ID.
func WithStarship(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, starshipKey, id)
}

// StarshipFromContext returns the starship ID if present.
func StarshipFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(starshipKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
