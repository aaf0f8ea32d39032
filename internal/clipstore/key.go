package clipstore

import (
	"fmt"
	"strings"

	"heatclip/internal/timecode"
)

// Key builds the episode_timeframe identifier "episode:HH:MM:SS:HH:MM:SS".
func Key(episode, start, end string) string {
	return episode + ":" + start + ":" + end
}

// ParsedKey is the decomposed form of an episode_timeframe identifier.
type ParsedKey struct {
	Episode string
	Start   int
	End     int
}

// ParseKey splits an episode_timeframe identifier into its episode and bounds.
func ParseKey(key string) (ParsedKey, error) {
	parts := strings.Split(strings.TrimSpace(key), ":")
	if len(parts) != 7 || parts[0] == "" {
		return ParsedKey{}, fmt.Errorf("clip key %q: want episode:HH:MM:SS:HH:MM:SS", key)
	}
	start, err := timecode.Decode(strings.Join(parts[1:4], ":"))
	if err != nil {
		return ParsedKey{}, fmt.Errorf("clip key %q start: %w", key, err)
	}
	end, err := timecode.Decode(strings.Join(parts[4:7], ":"))
	if err != nil {
		return ParsedKey{}, fmt.Errorf("clip key %q end: %w", key, err)
	}
	return ParsedKey{Episode: parts[0], Start: start, End: end}, nil
}

// FileStem converts a clip key into a filesystem-safe audio file stem,
// for example "12:00:58:45:01:00:15" becomes "12_00-58-45_01-00-15".
func FileStem(key string) string {
	parts := strings.Split(key, ":")
	if len(parts) != 7 {
		return strings.NewReplacer(":", "-", "/", "-", "\\", "-").Replace(key)
	}
	return parts[0] + "_" + strings.Join(parts[1:4], "-") + "_" + strings.Join(parts[4:7], "-")
}
