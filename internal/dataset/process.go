package dataset

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"heatclip/internal/clipstore"
	"heatclip/internal/logging"
	"heatclip/internal/services"
	"heatclip/internal/timing"
)

// Transcribe fills in transcripts for clips that have audio but no text.
// An empty series covers every series in the store.
func (p *Pipeline) Transcribe(ctx context.Context, series string) (Result, error) {
	if p.deps.Transcriber == nil {
		return Result{}, missing("transcribe", "transcriber")
	}
	filter := clipstore.Filter{Series: series, NeedsTranscript: true}
	return p.forEachClip(ctx, "transcribe", series, filter, p.cfg.Workers.Transcribe, func(ctx context.Context, clip clipstore.Clip) error {
		text, err := p.deps.Transcriber.Transcribe(ctx, clip.AudioPath)
		if err != nil {
			return err
		}
		if text == "" {
			return services.Wrap(services.ErrValidation, "transcribe", "", "empty transcript", nil)
		}
		return p.withStore(func() error {
			return p.deps.Store.SetTranscript(ctx, clip.Series, clip.Key, text)
		})
	})
}

// Classify asks the classifier about every transcribed clip without a
// prediction. An empty series covers every series in the store.
func (p *Pipeline) Classify(ctx context.Context, series string) (Result, error) {
	if p.deps.Classifier == nil {
		return Result{}, missing("classify", "classifier")
	}
	filter := clipstore.Filter{Series: series, NeedsPrediction: true}
	return p.forEachClip(ctx, "classify", series, filter, p.cfg.Workers.Classify, func(ctx context.Context, clip clipstore.Clip) error {
		prediction, err := p.deps.Classifier.Classify(ctx, clip.Transcript)
		if err != nil {
			return err
		}
		logging.WithContext(ctx, p.logger).Debug("clip classified", logging.Int("prediction", prediction))
		return p.withStore(func() error {
			return p.deps.Store.SetPrediction(ctx, clip.Series, clip.Key, prediction)
		})
	})
}

// ResetPredictions clears predictions for series (every series when empty) so
// the next Classify run revisits those clips. Labels are kept.
func (p *Pipeline) ResetPredictions(ctx context.Context, series string) (int, error) {
	var cleared int
	err := p.withStore(func() error {
		var err error
		cleared, err = p.deps.Store.ResetPredictions(ctx, series)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("reset predictions: %w", err)
	}
	logging.WithContext(services.WithSeries(ctx, series), p.logger).Info("predictions cleared", logging.Int("clips", cleared))
	return cleared, nil
}

func (p *Pipeline) forEachClip(ctx context.Context, stage, series string, filter clipstore.Filter, workers int, fn func(context.Context, clipstore.Clip) error) (Result, error) {
	ctx = services.WithStage(services.WithSeries(ctx, series), stage)
	logger := logging.WithContext(ctx, p.logger)

	var pending []clipstore.Clip
	err := p.withStore(func() error {
		var err error
		pending, err = p.deps.Store.List(ctx, filter)
		return err
	})
	if err != nil {
		return Result{}, fmt.Errorf("%s: list clips: %w", stage, err)
	}
	if len(pending) == 0 {
		logger.Info("nothing to do")
		return Result{}, nil
	}

	var counts tally
	_, elapsed := timing.Measure(func() struct{} {
		p.deps.Progress.Begin(stage, len(pending))
		defer p.deps.Progress.End()

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(workers)
		for _, clip := range pending {
			g.Go(func() error {
				defer p.deps.Progress.Step()
				if gctx.Err() != nil {
					return nil
				}
				clipCtx := services.WithClip(services.WithSeries(gctx, clip.Series), clip.Key)
				counts.add(func(r *Result) { r.Attempted++ })
				_, took, err := timing.MeasureErr(func() (struct{}, error) {
					return struct{}{}, fn(clipCtx, clip)
				})
				clipLogger := logging.WithContext(clipCtx, p.logger)
				if err != nil {
					counts.add(func(r *Result) { r.Failed++ })
					if errors.Is(err, context.Canceled) {
						return nil
					}
					logging.WarnWithContext(clipLogger, stage+" failed", stage+"_failed",
						logging.Error(err),
						logging.Duration("elapsed", took),
					)
					return nil
				}
				counts.add(func(r *Result) { r.Succeeded++ })
				clipLogger.Debug(stage+" done", logging.Duration("elapsed", took))
				return nil
			})
		}
		_ = g.Wait()
		return struct{}{}
	})

	result := counts.snapshot()
	result.Skipped = len(pending) - result.Attempted
	result.Elapsed = elapsed
	logger.Info(stage+" finished",
		logging.Int("clips", len(pending)),
		logging.Int("succeeded", result.Succeeded),
		logging.Int("failed", result.Failed),
		logging.Duration("elapsed", elapsed),
	)
	if err := ctx.Err(); err != nil {
		return result, err
	}
	return result, nil
}
