// Package timecode converts between whole-second counts and the zero-padded
// HH:MM:SS strings shown by video players and accepted by yt-dlp/ffmpeg.
package timecode

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrInvalid reports a time string that cannot be decoded.
var ErrInvalid = errors.New("invalid timecode")

// Encode renders seconds as HH:MM:SS. Hours are not capped at two digits.
// Negative input encodes as 00:00:00.
func Encode(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	hours := seconds / 3600
	minutes := (seconds - hours*3600) / 60
	secs := seconds - hours*3600 - minutes*60
	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, secs)
}

// Decode parses a colon separated time string into seconds. Components are
// read right to left as seconds, minutes, hours and beyond, each weighted by
// 60^position, so "1:05" is 65 and "1:00:00:00" is 216000. Values that do
// not fit in an int are rejected.
func Decode(value string) (int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return 0, fmt.Errorf("%w: empty value", ErrInvalid)
	}
	parts := strings.Split(trimmed, ":")
	total := 0
	weight := 1
	for i := len(parts) - 1; i >= 0; i-- {
		part := strings.TrimSpace(parts[i])
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("%w: component %q in %q", ErrInvalid, part, value)
		}
		if weight == 0 {
			if n != 0 {
				return 0, fmt.Errorf("%w: %q overflows", ErrInvalid, value)
			}
			continue
		}
		if n > (math.MaxInt-total)/weight {
			return 0, fmt.Errorf("%w: %q overflows", ErrInvalid, value)
		}
		total += n * weight
		if weight > math.MaxInt/60 {
			weight = 0
		} else {
			weight *= 60
		}
	}
	return total, nil
}
