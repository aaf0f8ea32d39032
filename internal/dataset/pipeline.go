package dataset

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"heatclip/internal/clipstore"
	"heatclip/internal/config"
	"heatclip/internal/heatmap"
	"heatclip/internal/logging"
	"heatclip/internal/services"
	"heatclip/internal/services/ytdlp"
)

// PageSource renders a video page and returns its heatmap inputs.
type PageSource interface {
	Fetch(ctx context.Context, link string) (heatmap.Page, error)
}

// Downloader fetches one audio section and returns the written path.
type Downloader interface {
	Download(ctx context.Context, req ytdlp.Request) (string, error)
}

// Transcriber turns an audio file into a speaker-labelled transcript.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (string, error)
}

// Classifier returns 1 for a violent transcript and 0 otherwise.
type Classifier interface {
	Classify(ctx context.Context, transcript string) (int, error)
}

// Store is the subset of clipstore.Store the pipeline writes through.
type Store interface {
	Add(ctx context.Context, clip clipstore.Clip) error
	Get(ctx context.Context, series, key string) (*clipstore.Clip, error)
	SetAudioPath(ctx context.Context, series, key, path string) error
	SetTranscript(ctx context.Context, series, key, transcript string) error
	SetPrediction(ctx context.Context, series, key string, prediction int) error
	ResetPredictions(ctx context.Context, series string) (int, error)
	List(ctx context.Context, filter clipstore.Filter) ([]clipstore.Clip, error)
	Stats(ctx context.Context, series string) (clipstore.Stats, error)
}

// Progress observes stage progress; the CLI renders it as a bar.
type Progress interface {
	Begin(stage string, total int)
	Step()
	End()
}

// Dependencies wires collaborators into a Pipeline. Stages only require the
// collaborators they use; Collect needs Pages and Downloader, Transcribe
// needs Transcriber and Classify needs Classifier.
type Dependencies struct {
	Store       Store
	Lock        *sync.Mutex
	Pages       PageSource
	Downloader  Downloader
	Transcriber Transcriber
	Classifier  Classifier
	Progress    Progress
}

// Pipeline coordinates collection, transcription and classification.
type Pipeline struct {
	cfg    *config.Config
	deps   Dependencies
	logger *slog.Logger
}

// Result tallies one stage run.
type Result struct {
	Attempted int
	Succeeded int
	Failed    int
	Skipped   int
	Elapsed   time.Duration
}

// New constructs a pipeline. A nil Lock gets a private mutex.
func New(cfg *config.Config, deps Dependencies, logger *slog.Logger) (*Pipeline, error) {
	if cfg == nil {
		return nil, errors.New("dataset: config required")
	}
	if deps.Store == nil {
		return nil, errors.New("dataset: store required")
	}
	if deps.Lock == nil {
		deps.Lock = &sync.Mutex{}
	}
	if deps.Progress == nil {
		deps.Progress = nopProgress{}
	}
	return &Pipeline{
		cfg:    cfg,
		deps:   deps,
		logger: logging.NewComponentLogger(logger, "dataset"),
	}, nil
}

// withStore runs fn while holding the store mutex.
func (p *Pipeline) withStore(fn func() error) error {
	p.deps.Lock.Lock()
	defer p.deps.Lock.Unlock()
	return fn()
}

func (p *Pipeline) heatmapOptions() heatmap.Options {
	return heatmap.Options{
		PeakFraction: p.cfg.Heatmap.PeakFraction,
		SearchLength: p.cfg.Heatmap.SearchLengthSeconds,
	}
}

func missing(stage, collaborator string) error {
	return services.Wrap(services.ErrConfiguration, stage, "init", collaborator+" not configured", nil)
}

type nopProgress struct{}

func (nopProgress) Begin(string, int) {}
func (nopProgress) Step()             {}
func (nopProgress) End()              {}

// tally counts outcomes from concurrent workers.
type tally struct {
	mu     sync.Mutex
	result Result
}

func (t *tally) add(fn func(*Result)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fn(&t.result)
}

func (t *tally) snapshot() Result {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.result
}
