package preflight

import (
	"context"
	"strings"

	"heatclip/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
	// Optional failures are reported but do not block a run.
	Optional bool
}

// Stages selects which pipeline stages a run includes.
type Stages struct {
	Collect    bool
	Transcribe bool
	Classify   bool
}

// AllStages enables every stage.
func AllStages() Stages {
	return Stages{Collect: true, Transcribe: true, Classify: true}
}

// RunAll executes the offline checks needed by the selected stages.
func RunAll(ctx context.Context, cfg *config.Config, stages Stages) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Data directory", cfg.Paths.DataDir),
	}

	if stages.Collect {
		results = append(results, CheckDirectoryAccess("Audio directory", cfg.Paths.AudioDir))
		results = append(results, CheckChrome(cfg.Heatmap.ChromePath))
	}
	for _, status := range CheckSystemDeps(ctx, cfg, stages) {
		results = append(results, Result{
			Name:     status.Name,
			Passed:   status.Available,
			Optional: status.Optional,
			Detail:   status.Summary(),
		})
	}

	if stages.Transcribe && cfg.Transcription.Backend == "assemblyai" {
		results = append(results, CheckAPIKey("AssemblyAI API key", cfg.Transcription.APIKey, "AAI_API_KEY"))
	}
	if stages.Classify {
		results = append(results, CheckAPIKey("OpenAI API key", cfg.LLM.APIKey, "OPEN_AI_API_KEY"))
	}
	return results
}

// Failed returns the required checks that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed && !r.Optional {
			failed = append(failed, r)
		}
	}
	return failed
}

// Summary joins failed check names and details into one line.
func Summary(results []Result) string {
	parts := make([]string, 0, len(results))
	for _, r := range results {
		parts = append(parts, r.Name+": "+r.Detail)
	}
	return strings.Join(parts, "; ")
}
