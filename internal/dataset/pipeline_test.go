package dataset_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"heatclip/internal/clipstore"
	"heatclip/internal/config"
	"heatclip/internal/dataset"
	"heatclip/internal/heatmap"
	"heatclip/internal/services"
	"heatclip/internal/services/ytdlp"
	"heatclip/internal/testsupport"
)

// heatmapPath renders intensities as evenly spaced curve endpoints.
func heatmapPath(intensities ...float64) string {
	var b strings.Builder
	b.WriteString("M 0.0,100.0")
	last := len(intensities) - 1
	for i, v := range intensities {
		x := 5 + 1000*float64(i)/float64(last)
		y := 100 - v*100
		fmt.Fprintf(&b, " C %.1f,%.1f %.1f,%.1f %.1f,%.1f", x, y, x, y, x, y)
	}
	return b.String()
}

type fakePages struct {
	pages map[string]heatmap.Page
}

func (f *fakePages) Fetch(_ context.Context, link string) (heatmap.Page, error) {
	page, ok := f.pages[link]
	if !ok {
		return heatmap.Page{}, services.Wrap(services.ErrTimeout, "collect", "render", link, nil)
	}
	page.Link = link
	return page, nil
}

type fakeDownloader struct {
	mu       sync.Mutex
	requests []ytdlp.Request
	failStem string
}

func (f *fakeDownloader) Download(_ context.Context, req ytdlp.Request) (string, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	if f.failStem != "" && strings.Contains(req.Stem, f.failStem) {
		return "", services.Wrap(services.ErrExternalTool, "download", "yt-dlp", "HTTP Error 403", nil)
	}
	if err := os.MkdirAll(req.Dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(req.Dir, req.Stem+".m4a")
	return path, os.WriteFile(path, []byte("audio"), 0o644)
}

func (f *fakeDownloader) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

type fakeTranscriber struct {
	texts   map[string]string
	delay   time.Duration
	active  atomic.Int32
	maxSeen atomic.Int32
}

func (f *fakeTranscriber) Transcribe(_ context.Context, audioPath string) (string, error) {
	n := f.active.Add(1)
	defer f.active.Add(-1)
	for {
		seen := f.maxSeen.Load()
		if n <= seen || f.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	text, ok := f.texts[filepath.Base(audioPath)]
	if !ok {
		return "", services.Wrap(services.ErrTransient, "transcribe", "assemblyai", "upload failed", nil)
	}
	return text, nil
}

type fakeClassifier struct{}

func (fakeClassifier) Classify(_ context.Context, transcript string) (int, error) {
	switch {
	case strings.Contains(transcript, "hata"):
		return 0, services.Wrap(services.ErrValidation, "classify", "llm", "classification 7 is not 0 or 1", nil)
	case strings.Contains(transcript, "Vur"):
		return 1, nil
	default:
		return 0, nil
	}
}

func newPipeline(t *testing.T, cfg *config.Config, deps dataset.Dependencies) (*dataset.Pipeline, *clipstore.Store) {
	t.Helper()
	store := testsupport.MustOpenStore(t, cfg)
	deps.Store = store
	p, err := dataset.New(cfg, deps, nil)
	if err != nil {
		t.Fatalf("dataset.New: %v", err)
	}
	return p, store
}

func testConfig(t *testing.T) *config.Config {
	cfg := testsupport.NewConfig(t)
	cfg.Heatmap.PeakFraction = 1
	return cfg
}

func TestCollectRecordsClipsAndIsolatesFailures(t *testing.T) {
	cfg := testConfig(t)
	pages := &fakePages{pages: map[string]heatmap.Page{
		"https://video/12": {Title: "Sen Anlat Karadeniz 12. Bölüm", Duration: "10:00", HeatmapPath: heatmapPath(0.1, 0.9, 0.1)},
		"https://video/13": {Title: "Sen Anlat Karadeniz 13. Bölüm", Duration: "10:00"},
	}}
	downloader := &fakeDownloader{}
	p, store := newPipeline(t, cfg, dataset.Dependencies{Pages: pages, Downloader: downloader})

	series := config.Series{Name: "SenAnlatKaradeniz", Links: []string{"https://video/12", "https://video/13", "https://video/missing"}}
	result, err := p.Collect(context.Background(), series)
	if err != nil {
		t.Fatalf("Collect returned error: %v", err)
	}
	if result.Videos != 3 || result.VideoFailures != 1 || result.NoSignal != 1 {
		t.Fatalf("unexpected video tallies: %+v", result)
	}
	if result.Clips.Succeeded != 1 || result.Clips.Failed != 0 {
		t.Fatalf("unexpected clip tallies: %+v", result.Clips)
	}

	clip, err := store.Get(context.Background(), series.Name, "12:00:04:15:00:05:45")
	if err != nil {
		t.Fatalf("expected clip recorded: %v", err)
	}
	if clip.Link != "https://video/12" {
		t.Fatalf("unexpected link %q", clip.Link)
	}
	wantPath := filepath.Join(cfg.SeriesAudioDir(series.Name), "12_00-04-15_00-05-45.m4a")
	if clip.AudioPath != wantPath {
		t.Fatalf("unexpected audio path: got %q want %q", clip.AudioPath, wantPath)
	}
	req := downloader.requests[0]
	if req.Start != "00:04:15" || req.End != "00:05:45" || req.Link != "https://video/12" {
		t.Fatalf("unexpected download request: %+v", req)
	}
}

func TestCollectSkipsClipsWithAudio(t *testing.T) {
	cfg := testConfig(t)
	pages := &fakePages{pages: map[string]heatmap.Page{
		"https://video/12": {Title: "Bölüm 12", Duration: "10:00", HeatmapPath: heatmapPath(0.1, 0.9, 0.1)},
	}}
	downloader := &fakeDownloader{}
	p, _ := newPipeline(t, cfg, dataset.Dependencies{Pages: pages, Downloader: downloader})
	series := config.Series{Name: "Yargı", Links: []string{"https://video/12"}}

	if _, err := p.Collect(context.Background(), series); err != nil {
		t.Fatalf("first Collect: %v", err)
	}
	result, err := p.Collect(context.Background(), series)
	if err != nil {
		t.Fatalf("second Collect: %v", err)
	}
	if result.Clips.Skipped != 1 || result.Clips.Succeeded != 0 {
		t.Fatalf("expected clip skipped on rerun, got %+v", result.Clips)
	}
	if downloader.count() != 1 {
		t.Fatalf("expected a single download, got %d", downloader.count())
	}
}

func TestCollectContinuesAfterDownloadFailure(t *testing.T) {
	cfg := testConfig(t)
	pages := &fakePages{pages: map[string]heatmap.Page{
		"https://video/7": {Title: "7. Bölüm", Duration: "10:00", HeatmapPath: heatmapPath(0.1, 0.9, 0.1, 0.8, 0.1)},
	}}
	downloader := &fakeDownloader{failStem: "00-01-45"}
	p, store := newPipeline(t, cfg, dataset.Dependencies{Pages: pages, Downloader: downloader})
	series := config.Series{Name: "Yargı", Links: []string{"https://video/7"}}

	result, err := p.Collect(context.Background(), series)
	if err != nil {
		t.Fatalf("Collect returned error: %v", err)
	}
	if result.Clips.Attempted != 2 || result.Clips.Succeeded != 1 || result.Clips.Failed != 1 {
		t.Fatalf("unexpected clip tallies: %+v", result.Clips)
	}
	if _, err := store.Get(context.Background(), series.Name, "7:00:06:45:00:08:15"); err != nil {
		t.Fatalf("expected surviving clip recorded: %v", err)
	}
	if _, err := store.Get(context.Background(), series.Name, "7:00:01:45:00:03:15"); !errors.Is(err, clipstore.ErrNotFound) {
		t.Fatalf("expected failed clip absent, got %v", err)
	}
}

func TestInspectReportsRangesWithoutDownloading(t *testing.T) {
	cfg := testConfig(t)
	pages := &fakePages{pages: map[string]heatmap.Page{
		"https://video/3": {Title: "Kızılcık Şerbeti 3. Bölüm", Duration: "10:00", HeatmapPath: heatmapPath(0.1, 0.9, 0.1)},
	}}
	downloader := &fakeDownloader{}
	p, _ := newPipeline(t, cfg, dataset.Dependencies{Pages: pages, Downloader: downloader})

	video, err := p.Inspect(context.Background(), "https://video/3")
	if err != nil {
		t.Fatalf("Inspect returned error: %v", err)
	}
	if video.Episode != "3" || video.Analysis.Duration != 600 {
		t.Fatalf("unexpected video: %+v", video)
	}
	if len(video.Analysis.Ranges) != 1 || video.Analysis.Ranges[0].String() != "00:04:15-00:05:45" {
		t.Fatalf("unexpected ranges: %+v", video.Analysis.Ranges)
	}
	if downloader.count() != 0 {
		t.Fatal("Inspect must not download")
	}
}

func seedAudioClips(t *testing.T, cfg *config.Config, store *clipstore.Store, series string, keys ...string) {
	t.Helper()
	dir := cfg.SeriesAudioDir(series)
	for _, key := range keys {
		path := testsupport.WriteAudio(t, dir, clipstore.FileStem(key)+".m4a", 8)
		testsupport.MustAddClip(t, store, clipstore.Clip{Series: series, Key: key, AudioPath: path})
	}
}

func TestTranscribeAndClassify(t *testing.T) {
	cfg := testConfig(t)
	transcriber := &fakeTranscriber{texts: map[string]string{
		"1_00-01-00_00-02-30.m4a": "Speaker A: Vur beni de görelim!",
		"1_00-05-00_00-06-30.m4a": "Speaker A: Çay ister misin?",
		"2_00-01-00_00-02-30.m4a": "Speaker A: hata",
		"2_00-09-00_00-10-30.m4a": "",
	}}
	p, store := newPipeline(t, cfg, dataset.Dependencies{Transcriber: transcriber, Classifier: fakeClassifier{}})
	seedAudioClips(t, cfg, store, "Yargı",
		"1:00:01:00:00:02:30",
		"1:00:05:00:00:06:30",
		"2:00:01:00:00:02:30",
		"2:00:09:00:00:10:30",
		"3:00:01:00:00:02:30",
	)
	ctx := context.Background()

	tr, err := p.Transcribe(ctx, "Yargı")
	if err != nil {
		t.Fatalf("Transcribe returned error: %v", err)
	}
	if tr.Attempted != 5 || tr.Succeeded != 3 || tr.Failed != 2 {
		t.Fatalf("unexpected transcribe tallies: %+v", tr)
	}

	cl, err := p.Classify(ctx, "Yargı")
	if err != nil {
		t.Fatalf("Classify returned error: %v", err)
	}
	if cl.Attempted != 3 || cl.Succeeded != 2 || cl.Failed != 1 {
		t.Fatalf("unexpected classify tallies: %+v", cl)
	}

	violent, err := store.Get(ctx, "Yargı", "1:00:01:00:00:02:30")
	if err != nil || violent.Prediction == nil || *violent.Prediction != 1 {
		t.Fatalf("expected violent prediction, got %+v (%v)", violent, err)
	}
	calm, err := store.Get(ctx, "Yargı", "1:00:05:00:00:06:30")
	if err != nil || calm.Prediction == nil || *calm.Prediction != 0 {
		t.Fatalf("expected calm prediction, got %+v (%v)", calm, err)
	}

	stats, err := p.Report(ctx, "Yargı")
	if err != nil {
		t.Fatalf("Report returned error: %v", err)
	}
	if stats.Total != 5 || stats.Transcribed != 3 || stats.Classified != 2 || stats.Violent != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if pct, ok := stats.ViolentPercent(); !ok || pct != 50 {
		t.Fatalf("unexpected violent percent %v (%v)", pct, ok)
	}

	cleared, err := p.ResetPredictions(ctx, "Yargı")
	if err != nil || cleared != 2 {
		t.Fatalf("ResetPredictions = %d, %v; want 2 cleared", cleared, err)
	}
	reclassified, err := p.Classify(ctx, "Yargı")
	if err != nil {
		t.Fatalf("second Classify: %v", err)
	}
	if reclassified.Attempted != 3 || reclassified.Succeeded != 2 {
		t.Fatalf("expected reset clips classified again, got %+v", reclassified)
	}

	again, err := p.Transcribe(ctx, "Yargı")
	if err != nil {
		t.Fatalf("second Transcribe: %v", err)
	}
	if again.Attempted != 2 {
		t.Fatalf("expected only untranscribed clips retried, got %+v", again)
	}
}

func TestTranscribeHonoursWorkerLimit(t *testing.T) {
	cfg := testConfig(t)
	cfg.Workers.Transcribe = 2
	texts := map[string]string{}
	keys := make([]string, 0, 6)
	for i := 1; i <= 6; i++ {
		key := clipstore.Key(fmt.Sprint(i), "00:01:00", "00:02:30")
		keys = append(keys, key)
		texts[clipstore.FileStem(key)+".m4a"] = "Speaker A: merhaba"
	}
	transcriber := &fakeTranscriber{texts: texts, delay: 20 * time.Millisecond}
	p, store := newPipeline(t, cfg, dataset.Dependencies{Transcriber: transcriber})
	seedAudioClips(t, cfg, store, "Yargı", keys...)

	result, err := p.Transcribe(context.Background(), "")
	if err != nil {
		t.Fatalf("Transcribe returned error: %v", err)
	}
	if result.Succeeded != 6 {
		t.Fatalf("unexpected tallies: %+v", result)
	}
	if got := transcriber.maxSeen.Load(); got > 2 {
		t.Fatalf("expected at most 2 concurrent transcriptions, saw %d", got)
	}
}

func TestStagesRequireCollaborators(t *testing.T) {
	cfg := testConfig(t)
	p, _ := newPipeline(t, cfg, dataset.Dependencies{})
	ctx := context.Background()

	if _, err := p.Collect(ctx, config.Series{Name: "Yargı"}); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("Collect: expected configuration error, got %v", err)
	}
	if _, err := p.Transcribe(ctx, "Yargı"); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("Transcribe: expected configuration error, got %v", err)
	}
	if _, err := p.Classify(ctx, "Yargı"); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("Classify: expected configuration error, got %v", err)
	}
}

func TestRunExecutesEveryStage(t *testing.T) {
	cfg := testConfig(t)
	pages := &fakePages{pages: map[string]heatmap.Page{
		"https://video/12": {Title: "12. Bölüm", Duration: "10:00", HeatmapPath: heatmapPath(0.1, 0.9, 0.1)},
	}}
	transcriber := &fakeTranscriber{texts: map[string]string{
		"12_00-04-15_00-05-45.m4a": "Speaker A: Vur! | Speaker B: Yapma!",
	}}
	progress := &recordingProgress{}
	p, _ := newPipeline(t, cfg, dataset.Dependencies{
		Pages:       pages,
		Downloader:  &fakeDownloader{},
		Transcriber: transcriber,
		Classifier:  fakeClassifier{},
		Progress:    progress,
	})

	summary, err := p.Run(context.Background(), config.Series{Name: "Yargı", Links: []string{"https://video/12"}})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if summary.Collect.Clips.Succeeded != 1 || summary.Transcribe.Succeeded != 1 || summary.Classify.Succeeded != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if summary.Stats.Violent != 1 {
		t.Fatalf("expected one violent clip, got %+v", summary.Stats)
	}
	if got := strings.Join(progress.stages, ","); got != "collect,transcribe,classify" {
		t.Fatalf("unexpected progress stages %q", got)
	}
	if progress.steps != 3 {
		t.Fatalf("expected 3 progress steps, got %d", progress.steps)
	}
}

func TestCollectStopsOnCancelledContext(t *testing.T) {
	cfg := testConfig(t)
	pages := &fakePages{pages: map[string]heatmap.Page{}}
	p, _ := newPipeline(t, cfg, dataset.Dependencies{Pages: pages, Downloader: &fakeDownloader{}})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Collect(ctx, config.Series{Name: "Yargı", Links: []string{"https://video/1"}})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context cancellation, got %v", err)
	}
}

type recordingProgress struct {
	mu     sync.Mutex
	stages []string
	steps  int
}

func (r *recordingProgress) Begin(stage string, _ int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stages = append(r.stages, stage)
}

func (r *recordingProgress) Step() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.steps++
}

func (r *recordingProgress) End() {}
