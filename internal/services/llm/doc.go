// Package llm classifies transcripts with an OpenAI-compatible chat model.
//
// Each transcript is sent as the user message alongside a Turkish system
// prompt. The model is forced to call the insert_violence_data tool, whose
// single integer argument "classification" is 1 when the transcript depicts
// violence toward women and 0 otherwise.
//
// # Retry Behaviour
//
// The SDK's own retries are disabled; calls run under the shared retry.Policy.
// HTTP 408/429/5xx, network failures, and empty tool calls are retried.
// Authentication failures and other 4xx responses are not. Context
// cancellation aborts retries immediately.
//
// # Entry Points
//
// NewClassifier: construct a classifier from Config.
// Classifier.Classify: return 0 or 1 for a transcript.
// DecodeLLMJSON: tolerant decoding of model JSON (code fences, prose).
package llm
