package services

import "context"

type contextKey string

const (
	seriesKey    contextKey = "series"
	clipKey      contextKey = "clip"
	stageKey     contextKey = "stage"
	requestIDKey contextKey = "request_id"
)

// WithSeries annotates context with the TV series being processed.
func WithSeries(ctx context.Context, series string) context.Context {
	if series == "" {
		return ctx
	}
	return context.WithValue(ctx, seriesKey, series)
}

// SeriesFromContext returns the series name if present.
func SeriesFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(seriesKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithClip annotates context with a clip's episode_timeframe key.
func WithClip(ctx context.Context, key string) context.Context {
	if key == "" {
		return ctx
	}
	return context.WithValue(ctx, clipKey, key)
}

// ClipFromContext returns the clip key if present.
func ClipFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(clipKey).(string); ok && v != "" {
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
	v := ctx.Value(stageKey)
	if str, ok := v.(string); ok && str != "" {
		return str, true
	}
	return "", false
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
