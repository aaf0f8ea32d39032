// Package services defines shared utilities consumed by the pipeline stages
// and the external integrations beneath it.
//
// Key responsibilities:
//   - Context helpers that stamp series names, clip keys, stage names, and
//     correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper, and Retryable which the
//     retry policy consults before backing off.
//
// Subpackages wrap the individual tools and APIs: yt-dlp downloads,
// AssemblyAI and WhisperX transcription, and the chat-completion classifier.
package services
