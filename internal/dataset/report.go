package dataset

import (
	"context"
	"fmt"

	"heatclip/internal/clipstore"
	"heatclip/internal/config"
	"heatclip/internal/logging"
	"heatclip/internal/services"
)

// Report returns progress and accuracy figures for series (all series when empty).
func (p *Pipeline) Report(ctx context.Context, series string) (clipstore.Stats, error) {
	var stats clipstore.Stats
	err := p.withStore(func() error {
		var err error
		stats, err = p.deps.Store.Stats(ctx, series)
		return err
	})
	if err != nil {
		return stats, fmt.Errorf("report: %w", err)
	}
	attrs := []logging.Attr{
		logging.Int("clips", stats.Total),
		logging.Int("classified", stats.Classified),
		logging.Int("violent", stats.Violent),
	}
	if pct, ok := stats.ViolentPercent(); ok {
		attrs = append(attrs, logging.Float64("violent_percent", pct))
	}
	if acc, ok := stats.Accuracy(); ok {
		attrs = append(attrs, logging.Float64("accuracy_percent", acc))
	}
	logging.WithContext(services.WithSeries(ctx, series), p.logger).Info("report", logging.Args(attrs...)...)
	return stats, nil
}

// RunSummary collects the outcome of every stage of Run.
type RunSummary struct {
	Collect    CollectResult
	Transcribe Result
	Classify   Result
	Stats      clipstore.Stats
}

// Run executes collect, transcribe, classify and report for one series.
// A cancelled context stops the run after the current stage.
func (p *Pipeline) Run(ctx context.Context, series config.Series) (RunSummary, error) {
	var (
		summary RunSummary
		err     error
	)
	if summary.Collect, err = p.Collect(ctx, series); err != nil {
		return summary, err
	}
	if summary.Transcribe, err = p.Transcribe(ctx, series.Name); err != nil {
		return summary, err
	}
	if summary.Classify, err = p.Classify(ctx, series.Name); err != nil {
		return summary, err
	}
	summary.Stats, err = p.Report(ctx, series.Name)
	return summary, err
}
