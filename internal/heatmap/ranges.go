package heatmap

import "heatclip/internal/timecode"

// SearchRange is a window of whole seconds around a peak.
type SearchRange struct {
	Start int
	End   int
}

// StartCode returns Start as HH:MM:SS.
func (r SearchRange) StartCode() string { return timecode.Encode(r.Start) }

// EndCode returns End as HH:MM:SS.
func (r SearchRange) EndCode() string { return timecode.Encode(r.End) }

// String renders the range as "HH:MM:SS-HH:MM:SS".
func (r SearchRange) String() string { return r.StartCode() + "-" + r.EndCode() }

// BuildRanges centers a window of searchLength seconds on every peak and
// keeps those lying inside [0, duration]. Both halves use searchLength/2, so
// an odd length yields a window one second shorter than requested. Order
// follows the input; out-of-bounds windows are dropped.
func BuildRanges(peaks []Peak, searchLength, duration int) []SearchRange {
	half := float64(searchLength / 2)
	total := float64(duration)

	var ranges []SearchRange
	for _, peak := range peaks {
		at := peak.TimeFraction * total
		start, end := at-half, at+half
		if start < 0 || end > total {
			continue
		}
		ranges = append(ranges, SearchRange{Start: int(start), End: int(end)})
	}
	return ranges
}
