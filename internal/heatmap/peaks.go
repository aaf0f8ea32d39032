package heatmap

import (
	"math"
	"slices"
)

// Peak is a strict local maximum of the normalized curve.
type Peak struct {
	TimeFraction float64
	Intensity    float64
}

// ExtractPeaks returns the top fraction of strict local maxima, ordered
// ascending by intensity. The curve is padded with -Inf at both ends, so the
// first and last samples qualify when they exceed their single neighbour.
// Plateaus never qualify, and a curve of fewer than two samples has no peaks.
//
// The number kept is round(percent*len(peaks)) with half-to-even rounding.
// Ties in intensity keep scan order.
func ExtractPeaks(points []Point, percent float64) []Peak {
	if len(points) < 2 {
		return nil
	}

	var peaks []Peak
	for i, p := range points {
		left := math.Inf(-1)
		if i > 0 {
			left = points[i-1].Intensity
		}
		right := math.Inf(-1)
		if i < len(points)-1 {
			right = points[i+1].Intensity
		}
		if left < p.Intensity && p.Intensity > right {
			peaks = append(peaks, Peak{TimeFraction: p.TimeFraction, Intensity: p.Intensity})
		}
	}

	keep := keepCount(percent, len(peaks))
	if keep == 0 {
		return nil
	}

	slices.SortStableFunc(peaks, func(a, b Peak) int {
		switch {
		case a.Intensity < b.Intensity:
			return -1
		case a.Intensity > b.Intensity:
			return 1
		default:
			return 0
		}
	})
	return peaks[len(peaks)-keep:]
}

func keepCount(percent float64, total int) int {
	if total == 0 || percent <= 0 || math.IsNaN(percent) {
		return 0
	}
	n := int(math.RoundToEven(percent * float64(total)))
	if n > total {
		n = total
	}
	return n
}
