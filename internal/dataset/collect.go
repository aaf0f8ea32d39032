package dataset

import (
	"context"
	"errors"
	"fmt"
	"os"

	"golang.org/x/sync/errgroup"

	"heatclip/internal/clipstore"
	"heatclip/internal/config"
	"heatclip/internal/heatmap"
	"heatclip/internal/logging"
	"heatclip/internal/services"
	"heatclip/internal/services/ytdlp"
	"heatclip/internal/timing"
)

// Video is the heatmap analysis of one episode page.
type Video struct {
	Link     string
	Title    string
	Episode  string
	Analysis heatmap.Analysis
}

// CollectResult tallies a collection run. Clips counts search ranges.
type CollectResult struct {
	Videos        int
	VideoFailures int
	NoSignal      int
	Clips         Result
}

// Inspect renders link and runs the heatmap core without downloading anything.
func (p *Pipeline) Inspect(ctx context.Context, link string) (Video, error) {
	video := Video{Link: link}
	if p.deps.Pages == nil {
		return video, missing("collect", "page source")
	}
	page, err := p.deps.Pages.Fetch(ctx, link)
	if err != nil {
		return video, fmt.Errorf("fetch page: %w", err)
	}
	video.Title = page.Title
	if video.Episode, err = heatmap.EpisodeNumber(page.Title); err != nil {
		return video, err
	}
	if video.Analysis, err = heatmap.Analyze(page, p.heatmapOptions()); err != nil {
		return video, err
	}
	return video, nil
}

// Collect processes every link of series: one worker per video, bounded by
// workers.videos. Clips whose audio is already on disk are skipped.
func (p *Pipeline) Collect(ctx context.Context, series config.Series) (CollectResult, error) {
	var result CollectResult
	if p.deps.Pages == nil {
		return result, missing("collect", "page source")
	}
	if p.deps.Downloader == nil {
		return result, missing("collect", "downloader")
	}
	ctx = services.WithStage(services.WithSeries(ctx, series.Name), "collect")
	logger := logging.WithContext(ctx, p.logger)
	audioDir := p.cfg.SeriesAudioDir(series.Name)

	var (
		videos tally
		clips  tally
	)
	_, elapsed := timing.Measure(func() struct{} {
		p.deps.Progress.Begin("collect", len(series.Links))
		defer p.deps.Progress.End()

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(p.cfg.Workers.Videos)
		for _, link := range series.Links {
			g.Go(func() error {
				defer p.deps.Progress.Step()
				p.collectVideo(gctx, series.Name, audioDir, link, &videos, &clips)
				return nil
			})
		}
		_ = g.Wait()
		return struct{}{}
	})

	v := videos.snapshot()
	result.Videos = v.Attempted
	result.VideoFailures = v.Failed
	result.NoSignal = v.Skipped
	result.Clips = clips.snapshot()
	result.Clips.Elapsed = elapsed

	logger.Info("collection finished",
		logging.Int("videos", result.Videos),
		logging.Int("video_failures", result.VideoFailures),
		logging.Int("no_heatmap", result.NoSignal),
		logging.Int("clips", result.Clips.Succeeded),
		logging.Int("clip_failures", result.Clips.Failed),
		logging.Int("clips_skipped", result.Clips.Skipped),
		logging.Duration("elapsed", elapsed),
	)
	if err := ctx.Err(); err != nil {
		return result, err
	}
	return result, nil
}

func (p *Pipeline) collectVideo(ctx context.Context, series, audioDir, link string, videos, clips *tally) {
	videos.add(func(r *Result) { r.Attempted++ })
	logger := logging.WithContext(ctx, p.logger).With(logging.String(logging.FieldLink, link))

	video, elapsed, err := timing.MeasureErr(func() (Video, error) {
		video, err := p.Inspect(ctx, link)
		if err != nil {
			return video, err
		}
		for _, window := range video.Analysis.Ranges {
			if ctx.Err() != nil {
				break
			}
			p.collectClip(ctx, series, audioDir, video, window, clips)
		}
		return video, nil
	})
	if err != nil {
		videos.add(func(r *Result) { r.Failed++ })
		logging.WarnWithContext(logger, "video skipped", "video_failed",
			logging.Error(err),
			logging.Duration("elapsed", elapsed),
			logging.String(logging.FieldErrorHint, "check the link and that Chrome can render it"),
		)
		return
	}
	if video.Analysis.NoSignal {
		videos.add(func(r *Result) { r.Skipped++ })
		logger.Info("video has no heatmap",
			logging.String(logging.FieldEpisode, video.Episode),
			logging.Alert("no_heatmap"),
			logging.Duration("elapsed", elapsed),
		)
		return
	}
	videos.add(func(r *Result) { r.Succeeded++ })
	logger.Info("video processed",
		logging.String(logging.FieldEpisode, video.Episode),
		logging.Int("peaks", len(video.Analysis.Peaks)),
		logging.Int("ranges", len(video.Analysis.Ranges)),
		logging.Duration("elapsed", elapsed),
	)
}

func (p *Pipeline) collectClip(ctx context.Context, series, audioDir string, video Video, window heatmap.SearchRange, clips *tally) {
	key := clipstore.Key(video.Episode, window.StartCode(), window.EndCode())
	ctx = services.WithClip(ctx, key)
	logger := logging.WithContext(ctx, p.logger)
	clips.add(func(r *Result) { r.Attempted++ })

	fail := func(msg string, err error) {
		clips.add(func(r *Result) { r.Failed++ })
		logging.WarnWithContext(logger, msg, "clip_failed", logging.Error(err))
	}

	var existing *clipstore.Clip
	err := p.withStore(func() error {
		clip, err := p.deps.Store.Get(ctx, series, key)
		if errors.Is(err, clipstore.ErrNotFound) {
			return nil
		}
		existing = clip
		return err
	})
	if err != nil {
		fail("clip lookup failed", err)
		return
	}
	if existing != nil && existing.AudioPath != "" && fileExists(existing.AudioPath) {
		clips.add(func(r *Result) { r.Skipped++ })
		logger.Debug("clip already collected", logging.String("audio_path", existing.AudioPath))
		return
	}

	path, err := p.deps.Downloader.Download(ctx, ytdlp.Request{
		Link:  video.Link,
		Dir:   audioDir,
		Stem:  clipstore.FileStem(key),
		Start: window.StartCode(),
		End:   window.EndCode(),
	})
	if err != nil {
		fail("clip download failed", err)
		return
	}

	err = p.withStore(func() error {
		if existing != nil {
			return p.deps.Store.SetAudioPath(ctx, series, key, path)
		}
		return p.deps.Store.Add(ctx, clipstore.Clip{
			Series:    series,
			Key:       key,
			Link:      video.Link,
			AudioPath: path,
		})
	})
	if err != nil {
		fail("clip not recorded", err)
		return
	}
	clips.add(func(r *Result) { r.Succeeded++ })
	logger.Info("clip collected", logging.String("audio_path", path))
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
