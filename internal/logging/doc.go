// Package logging assembles structured slog loggers and formatting helpers used
// across heatclip.
//
// It owns the console and JSON handlers, writes each run to its own log file
// under log_dir, and prunes old run logs. Context-aware helpers tag lines with
// the series, clip key, stage, and run correlation ID automatically. A no-op
// logger is provided for tests and wiring code that cannot fail.
package logging
