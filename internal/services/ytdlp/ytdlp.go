// Package ytdlp downloads time-bounded audio sections with yt-dlp, handing the
// cut to ffmpeg so only the requested window is fetched.
package ytdlp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"heatclip/internal/logging"
	"heatclip/internal/services"
)

// DefaultBinary is the yt-dlp executable name.
const DefaultBinary = "yt-dlp"

// CommandRunner executes name with args and returns combined output.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// Request describes one audio section to fetch.
type Request struct {
	Link string
	// Dir receives the file; it is created if missing.
	Dir string
	// Stem is the file name without extension.
	Stem  string
	Start string
	End   string
}

// Downloader wraps the yt-dlp binary.
type Downloader struct {
	binary  string
	format  string
	timeout time.Duration
	run     CommandRunner
	logger  *slog.Logger
}

// New creates a Downloader. An empty binary defaults to yt-dlp and an empty
// format to m4a.
func New(binary, format string, timeout time.Duration, logger *slog.Logger) *Downloader {
	if strings.TrimSpace(binary) == "" {
		binary = DefaultBinary
	}
	if strings.TrimSpace(format) == "" {
		format = "m4a"
	}
	return &Downloader{
		binary:  binary,
		format:  format,
		timeout: timeout,
		run:     execRunner,
		logger:  logging.NewComponentLogger(logger, "ytdlp"),
	}
}

// WithCommandRunner sets a custom command runner (for testing).
func (d *Downloader) WithCommandRunner(runner CommandRunner) {
	d.run = runner
}

// Args builds the yt-dlp argument list for a request.
func (d *Downloader) Args(req Request) []string {
	return []string{
		"-f", fmt.Sprintf("bestaudio[ext=%s]", d.format),
		"-P", req.Dir,
		"-o", req.Stem + ".%(ext)s",
		"--no-playlist",
		"--external-downloader", "ffmpeg",
		"--external-downloader-args", fmt.Sprintf("ffmpeg_i: -ss %s -to %s", req.Start, req.End),
		req.Link,
	}
}

// Download fetches the section and returns the written file path.
func (d *Downloader) Download(ctx context.Context, req Request) (string, error) {
	if strings.TrimSpace(req.Link) == "" || strings.TrimSpace(req.Stem) == "" || strings.TrimSpace(req.Dir) == "" {
		return "", services.Wrap(services.ErrValidation, "download", "prepare", "link, dir and stem are required", nil)
	}
	if err := os.MkdirAll(req.Dir, 0o755); err != nil {
		return "", services.Wrap(services.ErrConfiguration, "download", "ensure dir", req.Dir, err)
	}
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	start := time.Now()
	output, err := d.run(ctx, d.binary, d.Args(req)...)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", services.Wrap(services.ErrTimeout, "download", d.binary, req.Link, err)
		}
		return "", services.Wrap(services.ErrExternalTool, "download", d.binary, summarize(output), err)
	}

	path, err := d.locate(req)
	if err != nil {
		return "", err
	}
	d.logger.Debug("audio section downloaded",
		logging.String(logging.FieldLink, req.Link),
		logging.String("range", req.Start+"-"+req.End),
		logging.String("path", path),
		logging.Duration("elapsed", time.Since(start)),
	)
	return path, nil
}

// locate finds the file yt-dlp wrote; the extension comes from the selected stream.
func (d *Downloader) locate(req Request) (string, error) {
	preferred := filepath.Join(req.Dir, req.Stem+"."+d.format)
	if info, err := os.Stat(preferred); err == nil && !info.IsDir() {
		return preferred, nil
	}
	matches, err := filepath.Glob(filepath.Join(req.Dir, escapeGlob(req.Stem)+".*"))
	if err != nil {
		return "", services.Wrap(services.ErrExternalTool, "download", "locate output", req.Stem, err)
	}
	for _, match := range matches {
		if strings.HasSuffix(match, ".part") || strings.HasSuffix(match, ".ytdl") {
			continue
		}
		return match, nil
	}
	return "", services.Wrap(services.ErrExternalTool, "download", "locate output", "no file written for "+req.Stem, nil)
}

func escapeGlob(value string) string {
	return strings.NewReplacer("*", `\*`, "?", `\?`, "[", `\[`).Replace(value)
}

func summarize(output []byte) string {
	text := strings.TrimSpace(string(output))
	if idx := strings.LastIndex(text, "ERROR:"); idx >= 0 {
		text = text[idx:]
	}
	if len(text) > 300 {
		text = text[:300] + "..."
	}
	return text
}

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	return cmd.CombinedOutput()
}
