package cmd

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Outburn-IL/fhir-validator/internal/api"
	"github.com/Outburn-IL/fhir-validator/internal/report"
)

// printReport writes a plain-text rendition of r.
func printReport(w io.Writer, r *report.Report) {
	fmt.Fprintln(w, "## Summary")
	result := "PASSED"
	if r.Failed() {
		result = "FAILED"
	}
	fmt.Fprintf(w, "  Result:    %s\n", result)
	fmt.Fprintf(w, "  Created:   %s\n", r.CreatedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(w, "  Server:    %s\n", r.Server)
	if r.SessionID != "" {
		fmt.Fprintf(w, "  Session:   %s\n", r.SessionID)
	}
	if r.Settings.FHIRVersion != "" {
		fmt.Fprintf(w, "  FHIR:      %s\n", r.Settings.FHIRVersion)
	}
	if len(r.Settings.IGs) > 0 {
		fmt.Fprintf(w, "  IGs:       %s\n", strings.Join(r.Settings.IGs, ", "))
	}
	if len(r.Profiles) > 0 {
		fmt.Fprintf(w, "  Profiles:  %s\n", strings.Join(r.Profiles, ", "))
	}
	if r.Git != nil {
		fmt.Fprintf(w, "  Branch:    %s\n", r.Git.Branch)
		fmt.Fprintf(w, "  Commit:    %s\n", r.Git.HeadCommit)
	}
	fmt.Fprintf(w, "  Issues:    %s\n", countsLine(r.Counts()))
	fmt.Fprintln(w)

	fmt.Fprintln(w, "## Files")
	if len(r.Results) == 0 {
		fmt.Fprintln(w, "  (none)")
	}
	for _, res := range r.Results {
		printResult(w, res)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "## Issues")
	issues := r.Issues()
	if len(issues) == 0 {
		fmt.Fprintln(w, "  (none)")
	}
	for _, is := range issues {
		fmt.Fprintf(w, "  %-11s %s  %s%s\n", is.Level, is.Path, where(is.Issue), is.Message)
	}
	fmt.Fprintln(w)
}

// printResult writes a one-line verdict for a single file.
func printResult(w io.Writer, res report.Result) {
	switch {
	case res.Error != "":
		fmt.Fprintf(w, "  ✗ %s: not validated: %s\n", res.Path, res.Error)
	case res.Outcome == nil:
		fmt.Fprintf(w, "  ? %s: no outcome\n", res.Path)
	case res.Failed():
		fmt.Fprintf(w, "  ✗ %s (%s)\n", res.Path, countsLine(res.Outcome.Counts()))
	default:
		fmt.Fprintf(w, "  ✓ %s (%s)\n", res.Path, countsLine(res.Outcome.Counts()))
	}
}

var countLevels = []struct {
	level api.Level
	name  string
}{
	{api.LevelFatal, "fatal"},
	{api.LevelError, "errors"},
	{api.LevelWarning, "warnings"},
	{api.LevelInformation, "information"},
}

func countsLine(counts map[api.Level]int) string {
	parts := make([]string, 0, len(countLevels))
	for _, cl := range countLevels {
		parts = append(parts, fmt.Sprintf("%d %s", counts[cl.level], cl.name))
	}
	return strings.Join(parts, ", ")
}

func where(is api.Issue) string {
	switch {
	case is.Location != "" && is.Line > 0:
		return fmt.Sprintf("%s (%d:%d): ", is.Location, is.Line, is.Col)
	case is.Location != "":
		return is.Location + ": "
	}
	return ""
}

func timestamp(t time.Time) string {
	return t.Format("15:04:05")
}
