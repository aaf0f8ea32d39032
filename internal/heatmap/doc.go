// Package heatmap turns a video's engagement heatmap into candidate clip
// windows.
//
// The pipeline is pure and deterministic:
//
//	Normalize     SVG path description -> []Point (time fraction, intensity)
//	ExtractPeaks  []Point -> top fraction of strict local maxima, ascending
//	BuildRanges   []Peak -> fixed-width windows inside [0, duration]
//
// Analyze runs all three for one Page. ParsePage reads the heatmap path,
// displayed duration and title out of rendered watch-page HTML; fetching
// that HTML is the browser package's job.
package heatmap
