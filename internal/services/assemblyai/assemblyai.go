// Package assemblyai transcribes audio clips with the hosted AssemblyAI API.
//
// Speaker labels are requested so the transcript reads as a dialogue:
// "Speaker A: ... | Speaker B: ...". Uploads and polling are handled by the
// SDK; transient failures are retried with the shared backoff policy.
package assemblyai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	aai "github.com/AssemblyAI/assemblyai-go-sdk"

	"heatclip/internal/logging"
	"heatclip/internal/retry"
	"heatclip/internal/services"
)

// API is the subset of the SDK transcript service used here.
type API interface {
	TranscribeFromReader(ctx context.Context, reader io.Reader, params *aai.TranscriptOptionalParams) (aai.Transcript, error)
}

// Options configures a Transcriber.
type Options struct {
	APIKey        string
	Language      string
	SpeakerLabels bool
	Retry         retry.Policy
	Logger        *slog.Logger
}

// Transcriber turns audio files into speaker-labelled transcripts.
type Transcriber struct {
	api    API
	opts   Options
	logger *slog.Logger
}

// New creates a Transcriber backed by the AssemblyAI SDK client.
func New(opts Options) (*Transcriber, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "transcribe", "init", "AssemblyAI API key missing (set AAI_API_KEY)", nil)
	}
	client := aai.NewClient(opts.APIKey)
	return NewWithAPI(client.Transcripts, opts), nil
}

// NewWithAPI creates a Transcriber over an arbitrary API implementation.
func NewWithAPI(api API, opts Options) *Transcriber {
	if opts.Language == "" {
		opts.Language = "tr"
	}
	return &Transcriber{
		api:    api,
		opts:   opts,
		logger: logging.NewComponentLogger(opts.Logger, "assemblyai"),
	}
}

// Transcribe uploads audioPath and returns the formatted transcript.
func (t *Transcriber) Transcribe(ctx context.Context, audioPath string) (string, error) {
	params := &aai.TranscriptOptionalParams{
		LanguageCode:  aai.TranscriptLanguageCode(t.opts.Language),
		SpeakerLabels: aai.Bool(t.opts.SpeakerLabels),
	}

	var text string
	policy := t.opts.Retry
	policy.OnRetry = func(attempt int, delay time.Duration, err error) {
		logging.WithContext(ctx, t.logger).Debug("transcription retry scheduled",
			logging.Int("attempt", attempt),
			logging.Duration("delay", delay),
			logging.Error(err),
		)
	}
	err := retry.Do(ctx, policy, "assemblyai transcribe", func(ctx context.Context) error {
		file, err := os.Open(audioPath)
		if err != nil {
			return services.Wrap(services.ErrNotFound, "transcribe", "open audio", audioPath, err)
		}
		defer file.Close()

		transcript, err := t.api.TranscribeFromReader(ctx, file, params)
		if err != nil {
			return classify(err)
		}
		if transcript.Status == aai.TranscriptStatusError {
			return services.Wrap(services.ErrExternalTool, "transcribe", "assemblyai", aai.ToString(transcript.Error), nil)
		}
		text = FormatTranscript(transcript)
		return nil
	}, services.Retryable)
	if err != nil {
		return "", err
	}
	return text, nil
}

// FormatTranscript renders utterances as "Speaker X: text" joined by " | ".
// Without utterances the plain transcript text is returned.
func FormatTranscript(transcript aai.Transcript) string {
	if len(transcript.Utterances) == 0 {
		return strings.TrimSpace(aai.ToString(transcript.Text))
	}
	parts := make([]string, 0, len(transcript.Utterances))
	for _, u := range transcript.Utterances {
		text := strings.TrimSpace(aai.ToString(u.Text))
		if text == "" {
			continue
		}
		parts = append(parts, fmt.Sprintf("Speaker %s: %s", aai.ToString(u.Speaker), text))
	}
	return strings.Join(parts, " | ")
}

func classify(err error) error {
	var apiErr aai.APIError
	if !errors.As(err, &apiErr) {
		return services.Wrap(services.ErrTransient, "transcribe", "assemblyai", "", err)
	}
	switch {
	case apiErr.Status == http.StatusTooManyRequests, apiErr.Status >= http.StatusInternalServerError:
		return services.Wrap(services.ErrTransient, "transcribe", "assemblyai", apiErr.Message, err)
	case apiErr.Status == http.StatusUnauthorized, apiErr.Status == http.StatusForbidden:
		return services.Wrap(services.ErrConfiguration, "transcribe", "assemblyai", apiErr.Message, err)
	default:
		return services.Wrap(services.ErrValidation, "transcribe", "assemblyai", apiErr.Message, err)
	}
}
