// Package report records the outcome of a validation run and renders it as
// JSON or Markdown. Markdown reports embed the JSON so they can be parsed back.
package report

import (
	"time"

	"github.com/google/uuid"

	"github.com/Outburn-IL/fhir-validator/internal/api"
)

// Report is a validation run over one or more resource files.
type Report struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Server    string    `json:"server"`
	SessionID string    `json:"session_id,omitempty"`
	Settings  Settings  `json:"settings"`
	Profiles  []string  `json:"profiles"`
	Git       *GitInfo  `json:"git,omitempty"`
	Results   []Result  `json:"results"`
}

// GitInfo is the repository state the validated files were read from.
type GitInfo struct {
	Branch     string   `json:"branch"`
	HeadCommit string   `json:"head_commit,omitempty"`
	Dirty      []string `json:"dirty,omitempty"` // validated files with uncommitted changes
}

// Settings are the validation options the run was made with.
type Settings struct {
	FHIRVersion string   `json:"fhir_version,omitempty"`
	IGs         []string `json:"igs,omitempty"`
	TxServer    string   `json:"tx_server,omitempty"`
	Locale      string   `json:"locale,omitempty"`
}

// SettingsFrom copies the options out of a request context.
func SettingsFrom(c api.CLIContext) Settings {
	tx := c.TxServer
	if c.TxDisabled {
		tx = api.TxServerNotApplicable
	}
	return Settings{FHIRVersion: c.SV, IGs: c.IGs, TxServer: tx, Locale: c.Locale}
}

// Result is the outcome for one file. Error is set instead of Outcome when
// the file could not be validated at all.
type Result struct {
	Path    string       `json:"path"`
	Outcome *api.Outcome `json:"outcome,omitempty"`
	Error   string       `json:"error,omitempty"`
}

// Failed reports whether the file has ERROR or FATAL issues or was not validated.
func (r Result) Failed() bool {
	return r.Error != "" || (r.Outcome != nil && r.Outcome.HasErrors())
}

// New returns an empty report with a fresh id.
func New(server string, settings Settings, profiles []string, now time.Time) *Report {
	if profiles == nil {
		profiles = []string{}
	}
	return &Report{
		ID:        uuid.NewString(),
		CreatedAt: now.UTC().Truncate(time.Second),
		Server:    server,
		Settings:  settings,
		Profiles:  profiles,
		Results:   []Result{},
	}
}

// Add appends a result.
func (r *Report) Add(res Result) {
	r.Results = append(r.Results, res)
}

// Counts tallies issues per level across every result.
func (r *Report) Counts() map[api.Level]int {
	total := make(map[api.Level]int, 4)
	for _, res := range r.Results {
		if res.Outcome == nil {
			continue
		}
		for lvl, n := range res.Outcome.Counts() {
			total[lvl] += n
		}
	}
	return total
}

// Failed reports whether any result failed.
func (r *Report) Failed() bool {
	for _, res := range r.Results {
		if res.Failed() {
			return true
		}
	}
	return false
}

// Issue is an issue together with the file it was reported for.
type Issue struct {
	Path string
	api.Issue
}

// Issues returns every issue in the report at one of the given levels, most
// severe first. No levels means all levels.
func (r *Report) Issues(levels ...api.Level) []Issue {
	want := make(map[api.Level]bool, len(levels))
	for _, l := range levels {
		want[l] = true
	}
	var out []Issue
	for _, res := range r.Results {
		if res.Outcome == nil {
			continue
		}
		for _, is := range res.Outcome.Issues {
			if len(want) == 0 || want[is.Level] {
				out = append(out, Issue{Path: res.Path, Issue: is})
			}
		}
	}
	sortIssues(out)
	return out
}
