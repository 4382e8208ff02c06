package collector

import (
	"context"
	"errors"
	"os/exec"
	"strings"

	"github.com/Outburn-IL/fhir-validator/internal/report"
)

// GitRunner executes a git command and returns its output.
// This abstraction allows mocking in tests.
type GitRunner func(workDir string, args ...string) (string, error)

// GitCollector records which commit the validated files came from.
type GitCollector struct {
	WorkDir string
	Runner  GitRunner // if nil, uses the real git subprocess
}

// defaultGitRunner runs git as a real subprocess.
func defaultGitRunner(workDir string, args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = workDir
	out, err := cmd.Output()
	return string(out), err
}

// Collect returns the branch, head commit and the subset of files with
// uncommitted changes. Outside a git repository (or without git installed)
// it returns nil and a warning.
func (g *GitCollector) Collect(ctx context.Context, files []string) (*report.GitInfo, []string, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	runner := g.Runner
	if runner == nil {
		runner = defaultGitRunner
	}
	workDir := g.WorkDir
	if workDir == "" {
		workDir = "."
	}

	// Determine branch; also serves as the "is this a git repo?" check.
	branch, err := runner(workDir, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		if isExitCode128(err) {
			return nil, []string{"not a git repository"}, nil
		}
		if errors.Is(err, exec.ErrNotFound) {
			return nil, []string{"git is not installed"}, nil
		}
		return nil, nil, err
	}

	headCommit, err := runner(workDir, "rev-parse", "HEAD")
	if err != nil {
		if isExitCode128(err) {
			// Repository without commits.
			return &report.GitInfo{Branch: strings.TrimSpace(branch)}, nil, nil
		}
		return nil, nil, err
	}

	info := &report.GitInfo{
		Branch:     strings.TrimSpace(branch),
		HeadCommit: strings.TrimSpace(headCommit),
	}
	if len(files) == 0 {
		return info, nil, nil
	}

	status, err := runner(workDir, append([]string{"status", "--porcelain", "--"}, files...)...)
	if err != nil {
		return info, []string{"git status failed: " + err.Error()}, nil
	}
	info.Dirty = parseStatusLines(status)
	return info, nil, nil
}

// isExitCode128 reports whether err is an *exec.ExitError with exit code 128.
func isExitCode128(err error) bool {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode() == 128
	}
	return false
}

// parseStatusLines extracts the paths from `git status --porcelain` output.
func parseStatusLines(output string) []string {
	lines := strings.Split(output, "\n")
	result := make([]string, 0, len(lines))
	for _, l := range lines {
		if len(l) < 4 {
			continue
		}
		path := l[3:]
		if i := strings.Index(path, " -> "); i >= 0 {
			path = path[i+len(" -> "):]
		}
		result = append(result, strings.Trim(path, `"`))
	}
	return result
}
