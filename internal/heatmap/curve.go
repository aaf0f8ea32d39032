package heatmap

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrParse reports a heatmap path that is absent or contains no curve segments.
var ErrParse = errors.New("heatmap: no curve segments")

// Each segment carries two control offsets followed by the endpoint we keep.
var segmentPattern = regexp.MustCompile(`[MCL](?: -?\d+[.]\d+,-?\d+[.]\d+){2} (\d+[.]\d+),(\d+[.]\d+)`)

const (
	// xOffset is the left rendering margin of the heatmap SVG, in path units.
	xOffset = 5.0
	xScale  = 1000.0
	yScale  = 100.0
)

// Point is one normalized heatmap sample. TimeFraction is the position along
// the video in [0,1]; Intensity is flipped so higher means more replays.
type Point struct {
	TimeFraction float64
	Intensity    float64
}

// Normalize extracts every segment endpoint from an SVG path description and
// rescales it. Output order matches the path order; nothing is sorted or
// deduplicated.
func Normalize(path string) ([]Point, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("%w: empty path", ErrParse)
	}
	matches := segmentPattern.FindAllStringSubmatch(path, -1)
	if len(matches) == 0 {
		return nil, ErrParse
	}
	points := make([]Point, 0, len(matches))
	for _, m := range matches {
		x, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return nil, fmt.Errorf("%w: x %q: %v", ErrParse, m[1], err)
		}
		y, err := strconv.ParseFloat(m[2], 64)
		if err != nil {
			return nil, fmt.Errorf("%w: y %q: %v", ErrParse, m[2], err)
		}
		points = append(points, Point{
			TimeFraction: (x - xOffset) / xScale,
			Intensity:    (yScale - y) / yScale,
		})
	}
	return points, nil
}
