// Package tui provides a Bubble Tea TUI for viewing validation reports.
package tui

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Outburn-IL/fhir-validator/internal/api"
	"github.com/Outburn-IL/fhir-validator/internal/report"
)

// ── Styles ────────────

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62")).
			Padding(0, 2)

	activeTabStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	inactiveTabStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("245")).
				Background(lipgloss.Color("235")).
				Padding(0, 1)

	tabSepStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("238")).
			Background(lipgloss.Color("235"))

	sectionHeader = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("33")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	locationStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("178"))

	passStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true)
	failStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)

	levelStyles = map[api.Level]lipgloss.Style{
		api.LevelFatal:       lipgloss.NewStyle().Foreground(lipgloss.Color("201")).Bold(true),
		api.LevelError:       lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
		api.LevelWarning:     lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true),
		api.LevelInformation: lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true),
	}

	statusBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("245")).
			Padding(0, 1)

	selectedRowStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("15")).
				Background(lipgloss.Color("237"))
)

// ── Tab definitions ─────────────────

type tabID int

const (
	tabSummary tabID = iota
	tabErrors
	tabWarnings
	tabInformation
	tabFiles
	tabCount
)

var tabNames = [tabCount]string{
	"Summary", "Errors", "Warnings", "Information", "Files",
}

// tabLevels are the issue levels listed on each issue tab.
var tabLevels = map[tabID][]api.Level{
	tabErrors:      {api.LevelFatal, api.LevelError},
	tabWarnings:    {api.LevelWarning},
	tabInformation: {api.LevelInformation},
}

// ── Model ────────────────────

// Model is the root Bubble Tea model for the TUI.
type Model struct {
	report    *report.Report
	filename  string
	activeTab tabID
	viewports [tabCount]viewport.Model
	width     int
	height    int
	ready     bool
	// Files tab: failing files first, or report order.
	failedFirst bool
	files       []report.Result
	fileCursor  int
	expanded    map[string]bool
}

// New creates a new TUI model for the given report and source filename.
func New(r *report.Report, filename string) Model {
	m := Model{
		report:      r,
		filename:    filepath.Base(filename),
		failedFirst: true,
		expanded:    make(map[string]bool),
	}
	m.sortFiles()
	return m
}

// ── Bubble Tea interface ───────────────

func (m Model) Init() tea.Cmd { return nil }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "tab", "l", "right":
			m.activeTab = (m.activeTab + 1) % tabCount
		case "shift+tab", "h", "left":
			m.activeTab = (m.activeTab - 1 + tabCount) % tabCount
		case "1", "2", "3", "4", "5":
			m.activeTab = tabID(msg.String()[0] - '1')
		case "s":
			if m.activeTab == tabFiles {
				m.failedFirst = !m.failedFirst
				m.sortFiles()
				m.fileCursor = 0
				m.rebuildFilesViewport()
				m.viewports[tabFiles].GotoTop()
				return m, nil
			}
		case "up", "k":
			if m.activeTab == tabFiles && m.fileCursor > 0 {
				m.fileCursor--
				m.rebuildFilesViewport()
				return m, nil
			}
		case "down", "j":
			if m.activeTab == tabFiles && m.fileCursor < len(m.files)-1 {
				m.fileCursor++
				m.rebuildFilesViewport()
				return m, nil
			}
		case "enter", " ":
			if m.activeTab == tabFiles && len(m.files) > 0 {
				path := m.files[m.fileCursor].Path
				if m.expanded[path] {
					delete(m.expanded, path)
				} else {
					m.expanded[path] = true
				}
				m.rebuildFilesViewport()
				return m, nil
			}
		}
		var cmd tea.Cmd
		m.viewports[m.activeTab], cmd = m.viewports[m.activeTab].Update(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.initViewports()
		return m, nil
	}
	return m, nil
}

func (m Model) View() string {
	if !m.ready {
		return "Loading…"
	}

	title := titleStyle.Width(m.width).Render("  fhir-validator  " + m.filename)

	var tabParts []string
	for i := tabID(0); i < tabCount; i++ {
		label := fmt.Sprintf(" %d %s ", i+1, m.tabLabel(i))
		if i == m.activeTab {
			tabParts = append(tabParts, activeTabStyle.Render(label))
		} else {
			tabParts = append(tabParts, inactiveTabStyle.Render(label))
		}
		if i < tabCount-1 {
			tabParts = append(tabParts, tabSepStyle.Render("│"))
		}
	}
	tabRow := lipgloss.NewStyle().
		Background(lipgloss.Color("235")).
		Width(m.width).
		Render(lipgloss.JoinHorizontal(lipgloss.Top, tabParts...))

	content := m.viewports[m.activeTab].View()

	hint := "  ←/→ tab  ↑/↓ scroll  1-5 jump  q quit"
	if m.activeTab == tabFiles {
		order := "failing first"
		if !m.failedFirst {
			order = "report order"
		}
		hint = "  ←/→ tab  ↑/↓ select  enter expand  s sort (" + order + ")  q quit"
	}
	pct := fmt.Sprintf("%3.0f%%", m.viewports[m.activeTab].ScrollPercent()*100)
	pad := m.width - lipgloss.Width(hint) - len(pct) - 2
	if pad < 1 {
		pad = 1
	}
	statusBar := statusBarStyle.Width(m.width).Render(
		hint + strings.Repeat(" ", pad) + pct,
	)

	return lipgloss.JoinVertical(lipgloss.Left, title, tabRow, content, statusBar)
}

// tabLabel adds the issue count to issue tabs.
func (m *Model) tabLabel(t tabID) string {
	if levels, ok := tabLevels[t]; ok {
		return fmt.Sprintf("%s (%d)", tabNames[t], len(m.report.Issues(levels...)))
	}
	return tabNames[t]
}

// ── Viewport management ───────────────────────────────────────────────────────

func (m *Model) initViewports() {
	// title(1) + tabRow(1) + statusBar(1) = 3 fixed rows
	vpHeight := m.height - 3
	if vpHeight < 1 {
		vpHeight = 1
	}
	for i := tabID(0); i < tabCount; i++ {
		vp := viewport.New(m.width, vpHeight)
		vp.SetContent(m.renderTab(i))
		m.viewports[i] = vp
	}
}

func (m *Model) rebuildFilesViewport() {
	m.viewports[tabFiles].SetContent(m.renderTab(tabFiles))
}

func (m *Model) sortFiles() {
	m.files = append(m.files[:0], m.report.Results...)
	if m.failedFirst {
		sort.SliceStable(m.files, func(i, j int) bool {
			return m.files[i].Failed() && !m.files[j].Failed()
		})
	}
}

// ── Tab renderers ─────────────────────────────────────────────────────────────

func (m *Model) renderTab(t tabID) string {
	switch t {
	case tabSummary:
		return m.renderSummary()
	case tabFiles:
		return m.renderFiles()
	}
	if levels, ok := tabLevels[t]; ok {
		return m.renderIssues(tabNames[t], levels)
	}
	return ""
}

func heading(s string) string {
	return "\n" + sectionHeader.Render("  "+s) + "\n\n"
}

func (m *Model) renderSummary() string {
	r := m.report
	var sb strings.Builder
	sb.WriteString(heading("Validation Summary"))

	row := func(label, value string) {
		sb.WriteString(labelStyle.Render(fmt.Sprintf("  %-16s", label)) + "  " + value + "\n")
	}
	status := passStyle.Render("PASSED")
	if r.Failed() {
		status = failStyle.Render("FAILED")
	}
	row("Status:", status)
	row("Validated:", r.CreatedAt.Format("2006-01-02 15:04:05 MST"))
	if r.Server != "" {
		row("Server:", r.Server)
	}
	if r.SessionID != "" {
		row("Session:", r.SessionID)
	}
	if r.Settings.FHIRVersion != "" {
		row("FHIR Version:", r.Settings.FHIRVersion)
	}
	if len(r.Settings.IGs) > 0 {
		row("IGs:", strings.Join(r.Settings.IGs, ", "))
	}
	if r.Settings.TxServer != "" {
		row("Terminology:", r.Settings.TxServer)
	}
	if len(r.Profiles) > 0 {
		row("Profiles:", strings.Join(r.Profiles, ", "))
	}
	if r.Git != nil {
		row("Branch:", r.Git.Branch)
		if r.Git.HeadCommit != "" {
			row("Head Commit:", r.Git.HeadCommit)
		}
		if len(r.Git.Dirty) > 0 {
			row("Uncommitted:", strings.Join(r.Git.Dirty, ", "))
		}
	}

	counts := r.Counts()
	sb.WriteString("\n")
	sb.WriteString(heading("Counts"))
	row("Files:", fmt.Sprintf("%d", len(r.Results)))
	row("Fatal:", fmt.Sprintf("%d", counts[api.LevelFatal]))
	row("Errors:", fmt.Sprintf("%d", counts[api.LevelError]))
	row("Warnings:", fmt.Sprintf("%d", counts[api.LevelWarning]))
	row("Information:", fmt.Sprintf("%d", counts[api.LevelInformation]))
	return sb.String()
}

func (m *Model) renderIssues(name string, levels []api.Level) string {
	issues := m.report.Issues(levels...)
	var sb strings.Builder
	sb.WriteString(heading(fmt.Sprintf("%s (%d)", name, len(issues))))
	if len(issues) == 0 {
		sb.WriteString(dimStyle.Render("  (none)") + "\n")
		return sb.String()
	}
	for _, is := range issues {
		sb.WriteString(renderIssue(is.Issue, is.Path))
	}
	return sb.String()
}

// renderIssue formats one issue as a badge line followed by its message.
func renderIssue(is api.Issue, path string) string {
	style, ok := levelStyles[is.Level]
	if !ok {
		style = dimStyle
	}
	badge := style.Render(fmt.Sprintf("  %-11s", string(is.Level)))
	where := is.Location
	if is.Line > 0 {
		where = fmt.Sprintf("%s @ %d:%d", where, is.Line, is.Col)
	}
	if path != "" {
		where = path + "  " + where
	}
	out := badge + " " + locationStyle.Render(where) + "\n"
	out += "      " + is.Message + "\n"
	if is.Type != "" || is.MessageID != "" {
		out += dimStyle.Render("      "+strings.TrimSpace(is.Type+" "+is.MessageID)) + "\n"
	}
	return out + "\n"
}

func (m *Model) renderFiles() string {
	var sb strings.Builder
	sb.WriteString(heading(fmt.Sprintf("Files (%d)", len(m.files))))
	if len(m.files) == 0 {
		sb.WriteString(dimStyle.Render("  (none)") + "\n")
		return sb.String()
	}
	for i, res := range m.files {
		mark := passStyle.Render("✔ ")
		if res.Failed() {
			mark = failStyle.Render("✘ ")
		}
		toggle := dimStyle.Render("  ▶ ")
		if m.expanded[res.Path] {
			toggle = dimStyle.Render("  ▼ ")
		}

		summary := dimStyle.Render("no issues")
		switch {
		case res.Error != "":
			summary = failStyle.Render("not validated")
		case res.Outcome != nil && len(res.Outcome.Issues) > 0:
			c := res.Outcome.Counts()
			summary = dimStyle.Render(fmt.Sprintf("%d errors, %d warnings, %d info",
				c[api.LevelFatal]+c[api.LevelError], c[api.LevelWarning], c[api.LevelInformation]))
		}

		row := fmt.Sprintf("%s%s%s  %s", toggle, mark, res.Path, summary)
		if i == m.fileCursor {
			row = selectedRowStyle.Width(max(m.width-2, 1)).Render(row)
		}
		sb.WriteString(row + "\n")

		if m.expanded[res.Path] {
			sb.WriteString(m.renderFileDetail(res))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func (m *Model) renderFileDetail(res report.Result) string {
	if res.Error != "" {
		return "      " + failStyle.Render(res.Error) + "\n"
	}
	if res.Outcome == nil || len(res.Outcome.Issues) == 0 {
		return dimStyle.Render("      (no issues)") + "\n"
	}
	issues := make([]api.Issue, len(res.Outcome.Issues))
	copy(issues, res.Outcome.Issues)
	sort.SliceStable(issues, func(i, j int) bool { return issues[i].Level.Rank() < issues[j].Level.Rank() })

	var sb strings.Builder
	sb.WriteString("\n")
	for _, is := range issues {
		sb.WriteString(renderIssue(is, ""))
	}
	return sb.String()
}

// Run starts the TUI for the given report.
func Run(r *report.Report, filename string) error {
	p := tea.NewProgram(New(r, filename), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
