// Package whisperx transcribes clip audio locally by running WhisperX
// through uvx.
//
// Each clip is first converted to a mono 16kHz WAV with ffmpeg, then
// transcribed into a scratch directory. The JSON segments WhisperX writes are
// rendered in the same "Speaker X: text | ..." form the hosted backend uses,
// so downstream classification does not care which backend ran. Diarization
// is not enabled; segments without a speaker are attributed to speaker A.
package whisperx
