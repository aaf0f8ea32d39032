package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"heatclip/internal/browser"
	"heatclip/internal/config"
	"heatclip/internal/dataset"
	"heatclip/internal/deps"
	"heatclip/internal/logging"
	"heatclip/internal/preflight"
	"heatclip/internal/retry"
	"heatclip/internal/services/assemblyai"
	"heatclip/internal/services/llm"
	"heatclip/internal/services/whisperx"
	"heatclip/internal/services/ytdlp"
)

func newPipelineCommands(ctx *commandContext) []*cobra.Command {
	return []*cobra.Command{
		newRunCommand(ctx),
		newCollectCommand(ctx),
		newTranscribeCommand(ctx),
		newClassifyCommand(ctx),
	}
}

func newRunCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "run [series...]",
		Short: "Collect, transcribe and classify clips, then report",
		Long:  "Run every stage for the named series, or for every configured series when none are named.",
		RunE: func(cmd *cobra.Command, args []string) error {
			selected, err := resolveSeries(ctx.configValue(), args)
			if err != nil {
				return err
			}
			return ctx.withPipeline(cmd, preflight.AllStages(), func(runCtx context.Context, p *dataset.Pipeline) error {
				out := cmd.OutOrStdout()
				for _, series := range selected {
					summary, err := p.Run(runCtx, series)
					if err != nil {
						return fmt.Errorf("run %s: %w", series.Name, err)
					}
					fmt.Fprintf(out, "%s\n", series.Name)
					printCollectResult(out, summary.Collect)
					printStageResult(out, "transcribe", summary.Transcribe)
					printStageResult(out, "classify", summary.Classify)
					fmt.Fprintln(out, renderStats(summary.Stats))
				}
				return nil
			})
		},
	}
}

func newCollectCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "collect [series...]",
		Short: "Download heatmap peak clips for configured series",
		RunE: func(cmd *cobra.Command, args []string) error {
			selected, err := resolveSeries(ctx.configValue(), args)
			if err != nil {
				return err
			}
			return ctx.withPipeline(cmd, preflight.Stages{Collect: true}, func(runCtx context.Context, p *dataset.Pipeline) error {
				out := cmd.OutOrStdout()
				for _, series := range selected {
					result, err := p.Collect(runCtx, series)
					if err != nil {
						return fmt.Errorf("collect %s: %w", series.Name, err)
					}
					fmt.Fprintf(out, "%s\n", series.Name)
					printCollectResult(out, result)
				}
				return nil
			})
		},
	}
}

func newTranscribeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "transcribe [series]",
		Short: "Transcribe collected clips that have no transcript",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			series := seriesArg(args)
			return ctx.withPipeline(cmd, preflight.Stages{Transcribe: true}, func(runCtx context.Context, p *dataset.Pipeline) error {
				result, err := p.Transcribe(runCtx, series)
				if err != nil {
					return err
				}
				printStageResult(cmd.OutOrStdout(), "transcribe", result)
				return nil
			})
		},
	}
}

func newClassifyCommand(ctx *commandContext) *cobra.Command {
	var reset bool

	cmd := &cobra.Command{
		Use:   "classify [series]",
		Short: "Classify transcribed clips that have no prediction",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			series := seriesArg(args)
			return ctx.withPipeline(cmd, preflight.Stages{Classify: true}, func(runCtx context.Context, p *dataset.Pipeline) error {
				out := cmd.OutOrStdout()
				if reset {
					cleared, err := p.ResetPredictions(runCtx, series)
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Cleared %d predictions\n", cleared)
				}
				result, err := p.Classify(runCtx, series)
				if err != nil {
					return err
				}
				printStageResult(out, "classify", result)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&reset, "reset", false, "Clear existing predictions before classifying")
	return cmd
}

// withPipeline opens a batch session, gates it on preflight checks for the
// requested stages and wires the collaborators those stages need.
func (c *commandContext) withPipeline(cmd *cobra.Command, stages preflight.Stages, fn func(context.Context, *dataset.Pipeline) error) error {
	runCtx, sess, err := c.openSession(cmd, true)
	if err != nil {
		return err
	}
	defer sess.Close()

	if failed := preflight.Failed(preflight.RunAll(runCtx, sess.cfg, stages)); len(failed) > 0 {
		return fmt.Errorf("preflight failed: %s", preflight.Summary(failed))
	}

	cfg := sess.cfg
	wiring := dataset.Dependencies{
		Store:    sess.store,
		Lock:     &sync.Mutex{},
		Progress: newProgress(cmd.ErrOrStderr()),
	}
	if stages.Collect {
		pages, err := browser.Open(runCtx, browser.Options{
			ExecPath:    cfg.Heatmap.ChromePath,
			Headless:    cfg.Heatmap.Headless,
			Settle:      seconds(cfg.Heatmap.SettleSeconds),
			PageTimeout: seconds(cfg.Heatmap.PageTimeoutSeconds),
			Logger:      sess.logger,
		})
		if err != nil {
			return err
		}
		defer pages.Close()
		wiring.Pages = pages
		wiring.Downloader = ytdlp.New(cfg.Download.Binary, cfg.Download.Format, seconds(cfg.Download.TimeoutSeconds), sess.logger)
	}
	if stages.Transcribe {
		transcriber, err := newTranscriber(runCtx, cfg, sess.logger)
		if err != nil {
			return err
		}
		wiring.Transcriber = transcriber
	}
	if stages.Classify {
		classifier, err := newClassifier(cfg, sess.logger)
		if err != nil {
			return err
		}
		wiring.Classifier = classifier
	}

	pipeline, err := dataset.New(cfg, wiring, sess.logger)
	if err != nil {
		return err
	}
	logger := logging.WithContext(runCtx, sess.logger)
	if err := fn(runCtx, pipeline); err != nil {
		logging.ErrorWithContext(logger, "heatclip run failed", "run_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "rerun the command; finished clips are not repeated"),
		)
		return err
	}
	logger.Info("heatclip run finished", logging.String("run_log", sess.logPath))
	return nil
}

func newTranscriber(ctx context.Context, cfg *config.Config, logger *slog.Logger) (dataset.Transcriber, error) {
	policy := retryPolicy(cfg)
	if cfg.Transcription.Backend == "whisperx" {
		ffmpeg := deps.CheckFFmpegForDownloader(ctx, cfg.Download.Binary)
		return whisperx.NewService(whisperx.Config{
			Model:       cfg.Transcription.WhisperXModel,
			CUDAEnabled: cfg.Transcription.WhisperXCUDA,
			Language:    cfg.Transcription.Language,
		}, ffmpeg.Command, policy, logger), nil
	}
	transcriber, err := assemblyai.New(assemblyai.Options{
		APIKey:        cfg.Transcription.APIKey,
		Language:      cfg.Transcription.Language,
		SpeakerLabels: cfg.Transcription.SpeakerLabels,
		Retry:         policy,
		Logger:        logger,
	})
	if err != nil {
		return nil, err
	}
	return transcriber, nil
}

func newClassifier(cfg *config.Config, logger *slog.Logger) (dataset.Classifier, error) {
	classifier, err := llm.NewClassifier(llm.Config{
		APIKey:         cfg.LLM.APIKey,
		BaseURL:        cfg.LLM.BaseURL,
		Model:          cfg.LLM.Model,
		Temperature:    cfg.LLM.Temperature,
		TimeoutSeconds: cfg.LLM.TimeoutSeconds,
	}, retryPolicy(cfg), logger)
	if err != nil {
		return nil, err
	}
	logger.Debug("classifier ready", logging.String("model", classifier.Model()))
	return classifier, nil
}

func retryPolicy(cfg *config.Config) retry.Policy {
	return retry.FromSeconds(cfg.Retry.Attempts, cfg.Retry.MinSeconds, cfg.Retry.MaxSeconds)
}

func seconds(value int) time.Duration {
	return time.Duration(value) * time.Second
}

func seriesArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

func printCollectResult(out io.Writer, result dataset.CollectResult) {
	fmt.Fprintf(out, "  collect: %d videos (%d failed, %d without heatmap), %d clips saved, %d skipped, %d failed in %s\n",
		result.Videos, result.VideoFailures, result.NoSignal,
		result.Clips.Succeeded, result.Clips.Skipped, result.Clips.Failed,
		result.Clips.Elapsed.Round(time.Second))
}

func printStageResult(out io.Writer, stage string, result dataset.Result) {
	fmt.Fprintf(out, "  %s: %d of %d clips succeeded, %d failed in %s\n",
		stage, result.Succeeded, result.Attempted+result.Skipped, result.Failed,
		result.Elapsed.Round(time.Second))
}
