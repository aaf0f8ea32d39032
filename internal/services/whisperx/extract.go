package whisperx

import (
	"context"
	"fmt"
)

// buildFFmpegExtractArgs converts the first audio stream of source into a
// mono 16kHz PCM WAV at dest.
func buildFFmpegExtractArgs(source, dest string) []string {
	return []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", source,
		"-map", "0:a:0",
		"-vn",
		"-sn",
		"-dn",
		"-ac", "1",
		"-ar", "16000",
		"-c:a", "pcm_s16le",
		dest,
	}
}

// ExtractWAV writes a WhisperX-friendly copy of source to dest.
func (s *Service) ExtractWAV(ctx context.Context, source, dest string) error {
	if source == "" || dest == "" {
		return fmt.Errorf("extract audio: source and destination required")
	}
	if err := s.run(ctx, s.ffmpegBinary, buildFFmpegExtractArgs(source, dest)...); err != nil {
		return fmt.Errorf("ffmpeg extract: %w", err)
	}
	return nil
}
