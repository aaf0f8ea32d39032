package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains data, audio and log locations.
type Paths struct {
	DataDir  string `toml:"data_dir"`
	AudioDir string `toml:"audio_dir"`
	LogDir   string `toml:"log_dir"`
}

// Heatmap contains page rendering and peak selection settings.
type Heatmap struct {
	PeakFraction        float64 `toml:"peak_fraction"`
	SearchLengthSeconds int     `toml:"search_length_seconds"`
	SettleSeconds       int     `toml:"settle_seconds"`
	PageTimeoutSeconds  int     `toml:"page_timeout_seconds"`
	ChromePath          string  `toml:"chrome_path"`
	Headless            bool    `toml:"headless"`
}

// Download contains yt-dlp settings.
type Download struct {
	Binary         string `toml:"binary"`
	Format         string `toml:"format"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Transcription selects and configures the transcription backend.
type Transcription struct {
	// Backend is "assemblyai" (hosted) or "whisperx" (local, via uvx).
	Backend       string `toml:"backend"`
	APIKey        string `toml:"api_key"`
	Language      string `toml:"language"`
	SpeakerLabels bool   `toml:"speaker_labels"`
	WhisperXModel string `toml:"whisperx_model"`
	WhisperXCUDA  bool   `toml:"whisperx_cuda"`
}

// LLM contains chat completion settings for transcript classification.
type LLM struct {
	APIKey         string  `toml:"api_key"`
	BaseURL        string  `toml:"base_url"`
	Model          string  `toml:"model"`
	Temperature    float64 `toml:"temperature"`
	TimeoutSeconds int     `toml:"timeout_seconds"`
}

// Retry describes the backoff used for hosted transcription and classification.
type Retry struct {
	Attempts   int `toml:"attempts"`
	MinSeconds int `toml:"min_seconds"`
	MaxSeconds int `toml:"max_seconds"`
}

// Workers bounds per-stage concurrency.
type Workers struct {
	Videos     int `toml:"videos"`
	Transcribe int `toml:"transcribe"`
	Classify   int `toml:"classify"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`

	// RetentionDays prunes run logs older than this many days; 0 keeps everything.
	RetentionDays int `toml:"retention_days"`
}

// Series is one TV series and the episode links to collect from.
type Series struct {
	Name  string   `toml:"name"`
	Links []string `toml:"links"`
}

// Config encapsulates all configuration values for heatclip.
type Config struct {
	Paths         Paths         `toml:"paths"`
	Heatmap       Heatmap       `toml:"heatmap"`
	Download      Download      `toml:"download"`
	Transcription Transcription `toml:"transcription"`
	LLM           LLM           `toml:"llm"`
	Retry         Retry         `toml:"retry"`
	Workers       Workers       `toml:"workers"`
	Logging       Logging       `toml:"logging"`
	Series        []Series      `toml:"series"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("heatclip.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the data, audio and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.AudioDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the SQLite clip database location.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "clips.db")
}

// LockPath returns the batch lock file location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "heatclip.lock")
}

// SeriesAudioDir returns the directory audio clips for a series are written to.
func (c *Config) SeriesAudioDir(series string) string {
	return filepath.Join(c.Paths.AudioDir, SeriesSlug(series))
}

// FindSeries returns the configured series with the given name.
func (c *Config) FindSeries(name string) (Series, bool) {
	for _, s := range c.Series {
		if strings.EqualFold(strings.TrimSpace(s.Name), strings.TrimSpace(name)) {
			return s, true
		}
	}
	return Series{}, false
}

var turkishLower = cases.Lower(language.Turkish)

// SeriesSlug lowercases a series name with Turkish casing rules (so "I" maps
// to "ı" and "İ" to "i") and makes it safe for use as a directory name.
func SeriesSlug(name string) string {
	lowered := turkishLower.String(strings.TrimSpace(name))
	var b strings.Builder
	lastDash := false
	for _, r := range lowered {
		switch {
		case r == '/' || r == '\\' || r == ':' || r == '*' || r == '?' || r == '"' || r == '<' || r == '>' || r == '|':
			continue
		case r == ' ' || r == '\t' || r == '-' || r == '_':
			if !lastDash && b.Len() > 0 {
				b.WriteByte('-')
				lastDash = true
			}
		default:
			b.WriteRune(r)
			lastDash = false
		}
	}
	out := strings.Trim(b.String(), "-")
	if out == "" {
		return "unknown"
	}
	return out
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
