package heatmap

import (
	"errors"
	"fmt"

	"heatclip/internal/timecode"
)

const (
	DefaultPeakFraction = 0.15
	DefaultSearchLength = 90
)

// Options tunes peak retention and window width.
type Options struct {
	PeakFraction float64
	SearchLength int
}

func (o Options) withDefaults() Options {
	if o.PeakFraction <= 0 {
		o.PeakFraction = DefaultPeakFraction
	}
	if o.SearchLength <= 0 {
		o.SearchLength = DefaultSearchLength
	}
	return o
}

// Analysis is the outcome of running one page through the core.
type Analysis struct {
	Duration int
	Points   int
	Peaks    []Peak
	Ranges   []SearchRange
	// NoSignal is set when the page had no parseable heatmap.
	NoSignal bool
}

// Analyze decodes the page duration, normalizes the curve, selects peaks and
// builds ranges. An absent or unparseable curve produces an empty analysis,
// not an error.
func Analyze(page Page, opts Options) (Analysis, error) {
	opts = opts.withDefaults()

	duration, err := timecode.Decode(page.Duration)
	if err != nil {
		return Analysis{}, fmt.Errorf("video duration: %w", err)
	}
	result := Analysis{Duration: duration}

	points, err := Normalize(page.HeatmapPath)
	if err != nil {
		if errors.Is(err, ErrParse) {
			result.NoSignal = true
			return result, nil
		}
		return result, err
	}
	result.Points = len(points)
	result.Peaks = ExtractPeaks(points, opts.PeakFraction)
	result.Ranges = BuildRanges(result.Peaks, opts.SearchLength, duration)
	return result, nil
}
