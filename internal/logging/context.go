package logging

import (
	"context"
	"log/slog"

	"heatclip/internal/services"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldSeries is the standardized structured logging key for TV series names.
	FieldSeries = "series"
	// FieldClip is the standardized structured logging key for clip keys (episode:start:end).
	FieldClip = "clip"
	// FieldEpisode is the standardized structured logging key for episode numbers.
	FieldEpisode = "episode"
	// FieldLink is the standardized structured logging key for video links.
	FieldLink = "link"
	// FieldStage is the standardized structured logging key for pipeline stage names.
	FieldStage = "stage"
	// FieldCorrelationID is the standardized structured logging key for run correlation identifiers.
	FieldCorrelationID = "correlation_id"
	// FieldEventType labels the kind of event a line records.
	FieldEventType = "event_type"
	// FieldErrorHint carries an operator-facing next step for warnings and errors.
	FieldErrorHint = "error_hint"
	// FieldImpact is the standardized key for the user-facing consequence of a warning.
	FieldImpact = "impact"
	// FieldAlert flags warnings or anomalies that should stand out in structured logs.
	FieldAlert = "alert"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 4)
	if series, ok := services.SeriesFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldSeries, series))
	}
	if clip, ok := services.ClipFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldClip, clip))
	}
	if stage, ok := services.StageFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldStage, stage))
	}
	if rid, ok := services.RequestIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldCorrelationID, rid))
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
