package deps

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// FFmpeg describes the ffmpeg requirement shared by section downloads and
// WhisperX audio extraction.
var FFmpeg = Requirement{
	Name:        "FFmpeg",
	Command:     "ffmpeg",
	Purpose:     "Cuts audio sections for yt-dlp and extracts WAV for WhisperX",
	VersionFlag: "-version",
}

// CheckFFmpegForDownloader resolves the ffmpeg yt-dlp will cut sections with.
// Standalone yt-dlp bundles often ship ffmpeg next to the executable, so that
// location wins over PATH.
func CheckFFmpegForDownloader(ctx context.Context, downloaderCommand string) Status {
	if downloader := strings.TrimSpace(downloaderCommand); downloader != "" {
		if resolved, err := exec.LookPath(downloader); err == nil {
			candidate := sidecarPath(resolved, "ffmpeg")
			if info, statErr := os.Stat(candidate); statErr == nil && isExecutable(info) {
				req := FFmpeg
				req.Command = candidate
				return Resolve(ctx, req)
			}
		}
	}
	return Resolve(ctx, FFmpeg)
}

func sidecarPath(binaryPath, name string) string {
	if runtime.GOOS == "windows" {
		name += ".exe"
	}
	return filepath.Join(filepath.Dir(binaryPath), name)
}

func isExecutable(info os.FileInfo) bool {
	if info == nil || info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}
