package tui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Outburn-IL/fhir-validator/internal/api"
	"github.com/Outburn-IL/fhir-validator/internal/report"
)

func sampleReport() *report.Report {
	r := report.New("http://localhost:3500", report.Settings{FHIRVersion: "4.0.1"}, nil, time.Now())
	r.Add(report.Result{Path: "ok.json", Outcome: &api.Outcome{}})
	r.Add(report.Result{Path: "patient.json", Outcome: &api.Outcome{Issues: []api.Issue{
		{Level: api.LevelWarning, Location: "Patient", Message: "dom-6: A resource should have narrative"},
		{Level: api.LevelError, Location: "Patient", Type: "STRUCTURE", Message: "Patient.gender: minimum required = 1"},
	}}})
	return r
}

func sized(t *testing.T, m Model) Model {
	t.Helper()
	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return next.(Model)
}

func key(m Model, k string) Model {
	var msg tea.KeyMsg
	switch k {
	case "down":
		msg = tea.KeyMsg{Type: tea.KeyDown}
	case "enter":
		msg = tea.KeyMsg{Type: tea.KeyEnter}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
	}
	next, _ := m.Update(msg)
	return next.(Model)
}

func TestFilesListFailingFirst(t *testing.T) {
	m := New(sampleReport(), "/tmp/report.md")
	if m.files[0].Path != "patient.json" {
		t.Fatalf("failing file should sort first, got %q", m.files[0].Path)
	}
	m = sized(t, m)
	m = key(m, "5")
	m = key(m, "s")
	if m.failedFirst || m.files[0].Path != "ok.json" {
		t.Errorf("s should switch to report order, got %q first", m.files[0].Path)
	}
}

func TestExpandFileShowsIssues(t *testing.T) {
	m := sized(t, New(sampleReport(), "report.md"))
	m = key(m, "5")
	if strings.Contains(m.renderFiles(), "minimum required") {
		t.Fatal("issues should be collapsed initially")
	}
	m = key(m, "enter")
	if !m.expanded["patient.json"] {
		t.Fatal("enter should expand the selected file")
	}
	if !strings.Contains(m.renderFiles(), "minimum required") {
		t.Error("expanded file should list its issues")
	}
	m = key(m, "down")
	if m.fileCursor != 1 {
		t.Errorf("cursor = %d, want 1", m.fileCursor)
	}
}

func TestIssueTabsFilterBySeverity(t *testing.T) {
	m := New(sampleReport(), "report.md")
	errs := m.renderTab(tabErrors)
	if !strings.Contains(errs, "minimum required") || strings.Contains(errs, "dom-6") {
		t.Errorf("errors tab content:\n%s", errs)
	}
	if got := m.tabLabel(tabWarnings); got != "Warnings (1)" {
		t.Errorf("tabLabel = %q", got)
	}
	if !strings.Contains(m.renderTab(tabInformation), "(none)") {
		t.Error("information tab should be empty")
	}
}

func TestViewBeforeResize(t *testing.T) {
	if got := New(sampleReport(), "r.md").View(); got != "Loading…" {
		t.Errorf("View = %q", got)
	}
	m := sized(t, New(sampleReport(), "r.md"))
	if !strings.Contains(m.View(), "fhir-validator") {
		t.Error("title bar missing")
	}
}
