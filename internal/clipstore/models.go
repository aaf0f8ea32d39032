package clipstore

import "time"

// Clip is one candidate audio section cut from an episode around a heatmap peak.
type Clip struct {
	Series     string
	Key        string
	Link       string
	AudioPath  string
	Transcript string
	// Prediction is the classifier output (1 violent, 0 not); nil until classified.
	Prediction *int
	// Label is the manual ground truth; nil until labeled.
	Label     *int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasTranscript reports whether the clip has been transcribed.
func (c Clip) HasTranscript() bool { return c.Transcript != "" }

// Filter narrows List results. Zero values match everything.
type Filter struct {
	Series            string
	NeedsTranscript   bool
	NeedsPrediction   bool
	NeedsLabel        bool
	OnlyViolent       bool
	OnlyDisagreements bool
	Limit             int
}

// Stats aggregates classification progress for one series or all of them.
type Stats struct {
	Total       int
	WithAudio   int
	Transcribed int
	Classified  int
	Violent     int
	Labeled     int
	// Evaluated counts clips carrying both a prediction and a manual label.
	Evaluated int
	Correct   int
}

// ViolentPercent is violent/classified*100; ok is false when nothing is classified.
func (s Stats) ViolentPercent() (float64, bool) {
	if s.Classified == 0 {
		return 0, false
	}
	return float64(s.Violent) / float64(s.Classified) * 100, true
}

// Accuracy is correct/evaluated*100; ok is false when no clip has been evaluated.
func (s Stats) Accuracy() (float64, bool) {
	if s.Evaluated == 0 {
		return 0, false
	}
	return float64(s.Correct) / float64(s.Evaluated) * 100, true
}

// SeriesSummary pairs a series name with its clip count.
type SeriesSummary struct {
	Name  string
	Clips int
}
