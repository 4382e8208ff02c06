package report

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Outburn-IL/fhir-validator/internal/api"
)

// Format names accepted by RendererFor.
const (
	FormatMarkdown = "markdown"
	FormatJSON     = "json"
)

const (
	versionSentinel = "<!-- fhir-validator-report-version: 1 -->"
	dataPrefix      = "<!-- fhir-validator-data: "
	dataSuffix      = " -->"
)

// Renderer serializes a Report to bytes.
type Renderer interface {
	Render(r *Report) ([]byte, error)
	// Ext is the file extension for rendered output, including the dot.
	Ext() string
}

// RendererFor returns the renderer for format ("markdown" or "json").
func RendererFor(format string) (Renderer, error) {
	switch format {
	case FormatMarkdown, "md", "":
		return &MarkdownRenderer{}, nil
	case FormatJSON:
		return &JSONRenderer{}, nil
	}
	return nil, fmt.Errorf("unknown report format %q (want markdown or json)", format)
}

// JSONRenderer renders a Report as indented JSON.
type JSONRenderer struct{}

func (*JSONRenderer) Render(r *Report) ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

func (*JSONRenderer) Ext() string { return ".json" }

// MarkdownRenderer renders a Report as human-readable Markdown with the JSON
// report embedded as base64 for lossless parsing.
type MarkdownRenderer struct{}

func (*MarkdownRenderer) Ext() string { return ".md" }

func (*MarkdownRenderer) Render(r *Report) ([]byte, error) {
	payload, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("marshal report: %w", err)
	}

	var sb strings.Builder
	sb.WriteString(versionSentinel + "\n")
	fmt.Fprintf(&sb, "%s%s%s\n\n", dataPrefix, base64.StdEncoding.EncodeToString(payload), dataSuffix)

	fmt.Fprintf(&sb, "# FHIR validation report (%s)\n\n", r.CreatedAt.Format("2006-01-02 15:04:05 MST"))

	sb.WriteString("## Summary\n\n")
	counts := r.Counts()
	status := "PASSED"
	if r.Failed() {
		status = "FAILED"
	}
	fmt.Fprintf(&sb, "- Status: **%s**\n", status)
	fmt.Fprintf(&sb, "- Files: %d\n", len(r.Results))
	fmt.Fprintf(&sb, "- Errors: %d\n", counts[api.LevelFatal]+counts[api.LevelError])
	fmt.Fprintf(&sb, "- Warnings: %d\n", counts[api.LevelWarning])
	fmt.Fprintf(&sb, "- Information: %d\n", counts[api.LevelInformation])
	if r.Settings.FHIRVersion != "" {
		fmt.Fprintf(&sb, "- FHIR version: %s\n", r.Settings.FHIRVersion)
	}
	if len(r.Settings.IGs) > 0 {
		fmt.Fprintf(&sb, "- Implementation guides: %s\n", strings.Join(r.Settings.IGs, ", "))
	}
	if r.Settings.TxServer != "" {
		fmt.Fprintf(&sb, "- Terminology server: %s\n", r.Settings.TxServer)
	}
	if len(r.Profiles) > 0 {
		fmt.Fprintf(&sb, "- Profiles: %s\n", strings.Join(r.Profiles, ", "))
	}
	if r.Server != "" {
		fmt.Fprintf(&sb, "- Server: %s\n", r.Server)
	}
	if r.Git != nil {
		fmt.Fprintf(&sb, "- Branch: %s\n", r.Git.Branch)
		if r.Git.HeadCommit != "" {
			fmt.Fprintf(&sb, "- Head commit: %s\n", r.Git.HeadCommit)
		}
		if len(r.Git.Dirty) > 0 {
			fmt.Fprintf(&sb, "- Uncommitted changes: %s\n", strings.Join(r.Git.Dirty, ", "))
		}
	}
	sb.WriteString("\n")

	for _, res := range r.Results {
		fmt.Fprintf(&sb, "## %s\n\n", res.Path)
		switch {
		case res.Error != "":
			fmt.Fprintf(&sb, "_Not validated: %s_\n\n", res.Error)
			continue
		case res.Outcome == nil || len(res.Outcome.Issues) == 0:
			sb.WriteString("_No issues._\n\n")
			continue
		}
		sb.WriteString("| Level | Type | Location | Message |\n")
		sb.WriteString("|-------|------|----------|---------|\n")
		for _, is := range res.Outcome.Issues {
			fmt.Fprintf(&sb, "| %s | %s | %s | %s |\n",
				is.Level, cell(is.Type), cell(location(is)), cell(is.Message))
		}
		sb.WriteString("\n")
	}

	return []byte(sb.String()), nil
}

// location formats where an issue was found.
func location(is api.Issue) string {
	if is.Line > 0 {
		return fmt.Sprintf("%s (%d:%d)", is.Location, is.Line, is.Col)
	}
	return is.Location
}

// cell escapes text for a Markdown table cell.
func cell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.Join(strings.Fields(s), " ")
}
