// Package preflight provides readiness checks for the binaries, directories
// and hosted APIs that heatclip stages depend on.
//
// These checks run in two contexts:
//   - Batch commands call RunAll for the stages they are about to run and
//     refuse to start when a required check fails, rather than failing every
//     clip one by one.
//   - The CLI "heatclip check" command prints every check, optionally probing
//     the OpenAI endpoint with CheckOpenAI.
//
// Each check is gated by the stage that needs it; unused stages are skipped.
package preflight
