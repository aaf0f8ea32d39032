package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"golang.org/x/sys/unix"

	"heatclip/internal/config"
	"heatclip/internal/deps"
)

const openAICheckTimeout = 15 * time.Second

// chromeCandidates mirrors the executable names chromedp searches for.
var chromeCandidates = []string{
	"google-chrome",
	"google-chrome-stable",
	"chromium",
	"chromium-browser",
	"headless-shell",
	"chrome",
}

// CheckAPIKey reports whether a hosted API key is configured.
func CheckAPIKey(name, key, envVar string) Result {
	if strings.TrimSpace(key) == "" {
		return Result{Name: name, Detail: fmt.Sprintf("missing (set %s or the config api_key)", envVar)}
	}
	return Result{Name: name, Passed: true, Detail: "configured"}
}

// CheckOpenAI lists models to verify the key and endpoint are usable.
func CheckOpenAI(ctx context.Context, baseURL, apiKey string) Result {
	const name = "OpenAI API"

	base := strings.TrimSpace(baseURL)
	if base == "" {
		return Result{Name: name, Detail: "missing base url"}
	}
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return Result{Name: name, Detail: "missing api key"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, openAICheckTimeout)
	defer cancel()

	client := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(base),
		option.WithMaxRetries(0),
		option.WithRequestTimeout(openAICheckTimeout),
	)
	if _, err := client.Models.List(checkCtx); err != nil {
		var apiErr *openai.Error
		if !errors.As(err, &apiErr) {
			return Result{Name: name, Detail: summarizeHTTPError(err)}
		}
		switch apiErr.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return Result{Name: name, Detail: "auth failed (invalid api key)"}
		default:
			return Result{Name: name, Detail: fmt.Sprintf("check failed (%d)", apiErr.StatusCode)}
		}
	}
	return Result{Name: name, Passed: true, Detail: "API reachable"}
}

// CheckChrome reports the browser chromedp will launch.
func CheckChrome(execPath string) Result {
	const name = "Chrome"
	if execPath = strings.TrimSpace(execPath); execPath != "" {
		if _, err := os.Stat(execPath); err != nil {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", execPath, err)}
		}
		return Result{Name: name, Passed: true, Detail: execPath}
	}
	for _, candidate := range chromeCandidates {
		if resolved, err := exec.LookPath(candidate); err == nil {
			return Result{Name: name, Passed: true, Detail: resolved}
		}
	}
	return Result{Name: name, Detail: "no Chrome or Chromium found (set heatmap.chrome_path or CHROME_PATH)"}
}

// CheckDirectoryAccess verifies path is a readable, writable directory.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckSystemDeps checks the external binaries the selected stages invoke.
func CheckSystemDeps(ctx context.Context, cfg *config.Config, stages Stages) []deps.Status {
	whisperx := stages.Transcribe && cfg.Transcription.Backend == "whisperx"
	var requirements []deps.Requirement
	if stages.Collect {
		requirements = append(requirements, deps.Requirement{
			Name:        "yt-dlp",
			Command:     cfg.Download.Binary,
			Purpose:     "Downloads audio sections around heatmap peaks",
			VersionFlag: "--version",
		})
	}
	if whisperx {
		requirements = append(requirements, deps.Requirement{
			Name:        "uvx",
			Command:     "uvx",
			Purpose:     "Runs WhisperX for local transcription",
			VersionFlag: "--version",
		})
	}
	statuses := deps.CheckBinaries(ctx, requirements)
	if stages.Collect || whisperx {
		statuses = append(statuses, deps.CheckFFmpegForDownloader(ctx, cfg.Download.Binary))
	}
	return statuses
}

func summarizeHTTPError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "check timed out (API unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "check timed out (API unreachable)"
	}
	return err.Error()
}
