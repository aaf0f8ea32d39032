// Package clipstore persists candidate clips in SQLite.
//
// Each row is keyed by series and episode_timeframe ("episode:start:end") and
// accumulates state as the pipeline advances: the audio path after download,
// the transcript after transcription, the classifier prediction, and
// optionally a manual label used to score accuracy. Writes retry on
// SQLITE_BUSY; the schema is versioned and a mismatch is reported rather than
// migrated.
package clipstore
