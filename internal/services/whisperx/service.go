package whisperx

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"heatclip/internal/logging"
	"heatclip/internal/retry"
	"heatclip/internal/services"
)

// CommandRunner executes an external command and returns its combined output
// on failure.
type CommandRunner func(ctx context.Context, name string, args ...string) error

// Service provides WhisperX transcription capabilities.
type Service struct {
	cfg           Config
	ffmpegBinary  string
	policy        retry.Policy
	logger        *slog.Logger
	commandRunner CommandRunner
}

// NewService creates a WhisperX service with the given configuration.
func NewService(cfg Config, ffmpegBinary string, policy retry.Policy, logger *slog.Logger) *Service {
	if ffmpegBinary == "" {
		ffmpegBinary = FFmpegCommand
	}
	return &Service{
		cfg:          cfg,
		ffmpegBinary: ffmpegBinary,
		policy:       policy,
		logger:       logging.NewComponentLogger(logger, "whisperx"),
	}
}

// WithCommandRunner sets a custom command runner (for testing).
func (s *Service) WithCommandRunner(runner CommandRunner) *Service {
	s.commandRunner = runner
	return s
}

// Model returns the configured model name for logging.
func (s *Service) Model() string {
	if s.cfg.Model != "" {
		return s.cfg.Model
	}
	return DefaultModel
}

// run executes a command, using the custom runner if set.
func (s *Service) run(ctx context.Context, name string, args ...string) error {
	if s.commandRunner != nil {
		return s.commandRunner(ctx, name, args...)
	}
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec

	// Torch 2.6 changed torch.load default to weights_only=true, breaking WhisperX/pyannote.
	if os.Getenv("TORCH_FORCE_NO_WEIGHTS_ONLY_LOAD") == "" {
		cmd.Env = append(os.Environ(), "TORCH_FORCE_NO_WEIGHTS_ONLY_LOAD=1")
	}

	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(output)))
	}
	return nil
}

// Transcribe converts audioPath, runs WhisperX on it, and returns the
// speaker-labelled transcript. Scratch files are removed before returning.
func (s *Service) Transcribe(ctx context.Context, audioPath string) (string, error) {
	if _, err := os.Stat(audioPath); err != nil {
		return "", services.Wrap(services.ErrNotFound, "transcribe", "whisperx", audioPath, err)
	}
	workDir, err := os.MkdirTemp("", "heatclip-whisperx-*")
	if err != nil {
		return "", fmt.Errorf("whisperx: create work dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	wavPath := filepath.Join(workDir, "clip.wav")
	if err := s.ExtractWAV(ctx, audioPath, wavPath); err != nil {
		return "", services.Wrap(services.ErrExternalTool, "transcribe", "ffmpeg", audioPath, err)
	}

	policy := s.policy
	policy.OnRetry = func(attempt int, delay time.Duration, err error) {
		logging.WithContext(ctx, s.logger).Debug("whisperx retry scheduled",
			logging.Int("attempt", attempt),
			logging.Duration("delay", delay),
			logging.Error(err),
		)
	}
	var text string
	err = retry.Do(ctx, policy, "whisperx transcribe", func(ctx context.Context) error {
		if err := s.run(ctx, UVXCommand, s.buildArgs(wavPath, workDir)...); err != nil {
			return services.Wrap(services.ErrExternalTool, "transcribe", "whisperx", "", err)
		}
		segments, err := LoadSegments(filepath.Join(workDir, "clip.json"))
		if err != nil {
			return services.Wrap(services.ErrExternalTool, "transcribe", "whisperx output", "", err)
		}
		text = FormatSegments(segments)
		return nil
	}, services.Retryable)
	if err != nil {
		return "", err
	}
	return text, nil
}

// buildArgs constructs the uvx command arguments for WhisperX.
func (s *Service) buildArgs(source, outputDir string) []string {
	args := make([]string, 0, 40)

	if s.cfg.CUDAEnabled {
		args = append(args,
			"--index-url", CUDAIndexURL,
			"--extra-index-url", PypiIndexURL,
		)
	} else {
		args = append(args, "--index-url", PypiIndexURL)
	}

	args = append(args,
		"whisperx",
		source,
		"--model", s.Model(),
		"--batch_size", BatchSize,
		"--output_dir", outputDir,
		"--output_format", OutputFormat,
		"--segment_resolution", SegmentResolution,
		"--chunk_size", ChunkSize,
		"--vad_onset", VADOnset,
		"--vad_offset", VADOffset,
		"--beam_size", BeamSize,
		"--best_of", BestOf,
		"--temperature", Temperature,
		"--patience", Patience,
		"--vad_method", VADMethod,
	)

	if lang := isoLanguage(s.cfg.Language); lang != "" {
		args = append(args, "--language", lang)
	}

	if s.cfg.CUDAEnabled {
		args = append(args, "--device", CUDADevice)
	} else {
		args = append(args, "--device", CPUDevice, "--compute_type", CPUComputeType)
	}

	return args
}

func isoLanguage(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if len(lang) < 2 {
		return ""
	}
	if idx := strings.IndexAny(lang, "-_"); idx > 0 {
		lang = lang[:idx]
	}
	if len(lang) != 2 {
		return ""
	}
	return lang
}

// Segment represents a transcribed segment from WhisperX JSON output.
type Segment struct {
	Text    string  `json:"text"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Speaker string  `json:"speaker"`
}

type whisperXPayload struct {
	Segments []Segment `json:"segments"`
}

// LoadSegments loads segments from a WhisperX JSON file.
func LoadSegments(jsonPath string) ([]Segment, error) {
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return nil, err
	}
	var payload whisperXPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("parse whisperx json: %w", err)
	}
	return payload.Segments, nil
}

// FormatSegments renders segments as "Speaker X: text" joined by " | ".
// WhisperX speaker ids (SPEAKER_00, SPEAKER_01, ...) map to letters in order
// of first appearance; unlabelled segments belong to speaker A.
func FormatSegments(segments []Segment) string {
	letters := map[string]string{}
	parts := make([]string, 0, len(segments))
	for _, seg := range segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		speaker := strings.TrimSpace(seg.Speaker)
		letter, ok := letters[speaker]
		if !ok {
			letter = speakerLetter(len(letters))
			if speaker == "" {
				letter = "A"
			}
			letters[speaker] = letter
		}
		parts = append(parts, fmt.Sprintf("Speaker %s: %s", letter, text))
	}
	return strings.Join(parts, " | ")
}

func speakerLetter(index int) string {
	if index < 26 {
		return string(rune('A' + index))
	}
	return fmt.Sprintf("%d", index+1)
}
