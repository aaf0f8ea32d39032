package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable. API keys are not required
// here; the stages that need them check at startup so that collection and
// reporting work without credentials.
func (c *Config) Validate() error {
	if err := c.validateHeatmap(); err != nil {
		return err
	}
	if err := c.validateDownload(); err != nil {
		return err
	}
	if err := c.validateTranscription(); err != nil {
		return err
	}
	if err := c.validateLLM(); err != nil {
		return err
	}
	if err := c.validateRetry(); err != nil {
		return err
	}
	if err := c.validateWorkers(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return c.validateSeries()
}

func (c *Config) validateHeatmap() error {
	if c.Heatmap.PeakFraction <= 0 || c.Heatmap.PeakFraction > 1 {
		return errors.New("heatmap.peak_fraction must be in (0, 1]")
	}
	return ensurePositiveMap(map[string]int{
		"heatmap.search_length_seconds": c.Heatmap.SearchLengthSeconds,
		"heatmap.page_timeout_seconds":  c.Heatmap.PageTimeoutSeconds,
	})
}

func (c *Config) validateDownload() error {
	if c.Download.TimeoutSeconds <= 0 {
		return errors.New("download.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateTranscription() error {
	switch c.Transcription.Backend {
	case "assemblyai", "whisperx":
		return nil
	default:
		return fmt.Errorf("transcription.backend: unsupported value %q (want assemblyai or whisperx)", c.Transcription.Backend)
	}
}

func (c *Config) validateLLM() error {
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return errors.New("llm.temperature must be between 0 and 2")
	}
	if c.LLM.TimeoutSeconds <= 0 {
		return errors.New("llm.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateRetry() error {
	if err := ensurePositiveMap(map[string]int{
		"retry.attempts":    c.Retry.Attempts,
		"retry.max_seconds": c.Retry.MaxSeconds,
	}); err != nil {
		return err
	}
	if c.Retry.MinSeconds < 0 {
		return errors.New("retry.min_seconds must not be negative")
	}
	if c.Retry.MinSeconds > c.Retry.MaxSeconds {
		return errors.New("retry.min_seconds must not exceed retry.max_seconds")
	}
	return nil
}

func (c *Config) validateWorkers() error {
	return ensurePositiveMap(map[string]int{
		"workers.videos":     c.Workers.Videos,
		"workers.transcribe": c.Workers.Transcribe,
		"workers.classify":   c.Workers.Classify,
	})
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	if c.Logging.RetentionDays < 0 {
		return errors.New("logging.retention_days must not be negative")
	}
	return nil
}

func (c *Config) validateSeries() error {
	seen := make(map[string]struct{}, len(c.Series))
	for i, s := range c.Series {
		if s.Name == "" {
			return fmt.Errorf("series[%d].name must be set", i)
		}
		key := strings.ToLower(s.Name)
		if _, dup := seen[key]; dup {
			return fmt.Errorf("series %q is defined more than once", s.Name)
		}
		seen[key] = struct{}{}
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
