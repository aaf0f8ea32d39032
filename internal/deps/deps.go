package deps

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

const versionTimeout = 10 * time.Second

// Requirement names an external program a pipeline stage shells out to.
type Requirement struct {
	Name     string
	Command  string
	Purpose  string
	Optional bool
	// VersionFlag, when set, is passed to the resolved binary and the first
	// line of its output is reported as the version.
	VersionFlag string
}

// Status is the outcome of resolving one Requirement.
type Status struct {
	Requirement
	Path      string
	Version   string
	Available bool
	Detail    string
}

// Summary describes an available binary as "path (version)".
func (s Status) Summary() string {
	if !s.Available {
		return s.Detail
	}
	if s.Version == "" {
		return s.Path
	}
	return s.Path + " (" + s.Version + ")"
}

// Resolve looks the requirement up on PATH and reads its version when asked.
func Resolve(ctx context.Context, req Requirement) Status {
	status := Status{Requirement: req}
	status.Command = strings.TrimSpace(req.Command)
	if status.Command == "" {
		status.Detail = "command not configured"
		return status
	}
	path, err := exec.LookPath(status.Command)
	if err != nil {
		status.Detail = fmt.Sprintf("binary %q not found", status.Command)
		return status
	}
	status.Path = path
	status.Available = true
	if req.VersionFlag != "" {
		status.Version = readVersion(ctx, path, req.VersionFlag)
	}
	return status
}

// CheckBinaries resolves every requirement in order.
func CheckBinaries(ctx context.Context, requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		results = append(results, Resolve(ctx, req))
	}
	return results
}

// readVersion returns "" when the binary fails or prints nothing.
func readVersion(ctx context.Context, path, flag string) string {
	ctx, cancel := context.WithTimeout(ctx, versionTimeout)
	defer cancel()
	out, err := exec.CommandContext(ctx, path, flag).Output()
	if err != nil {
		return ""
	}
	line, _, _ := strings.Cut(strings.TrimSpace(string(out)), "\n")
	return strings.TrimSpace(line)
}
