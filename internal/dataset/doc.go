// Package dataset drives the clip pipeline for one series at a time.
//
// Collect renders each episode page, runs the heatmap core, downloads one
// audio section per search range and records the clip. Transcribe and
// Classify pick up rows that still lack a transcript or a prediction, so any
// stage can be rerun after an interruption. Report summarises the table.
//
// Work fans out through bounded errgroup pools sized from config. Failures of
// a single video or clip are logged and counted; they never abort the batch.
// All store writes go through the mutex handed to New.
package dataset
