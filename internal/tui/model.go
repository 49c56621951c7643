// Package tui is a terminal front end for a session. It only renders
// controller snapshots and forwards user input; it holds no workflow state.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"leadgate/internal/common/errors"
	"leadgate/internal/models"
	"leadgate/internal/session"
	"leadgate/internal/sourcefile"
)

// Session is the part of *session.Controller the UI drives.
type Session interface {
	SetObjective(objective string) bool
	SelectFiles(files []models.SourceFile) bool
	Submit(ctx context.Context) bool
	Unlock(ctx context.Context, email string) error
	NewScan() bool
	DismissNotice()
	Snapshot() session.Snapshot
}

// FileLoader reads source files from disk.
type FileLoader func(ctx context.Context, paths []string) ([]models.SourceFile, error)

// SnapshotMsg carries a controller snapshot into the program.
type SnapshotMsg struct {
	Snapshot session.Snapshot
}

type filesLoadedMsg struct {
	files     []models.SourceFile
	summaries []sourcefile.Summary
	err       error
}

type field int

const (
	fieldObjective field = iota
	fieldFiles
)

type Model struct {
	ctx    context.Context
	ctrl   Session
	load   FileLoader
	styles Styles

	snap      session.Snapshot
	objective textinput.Model
	files     textinput.Model
	email     textinput.Model
	bar       progress.Model
	focus     field

	summaries []sourcefile.Summary
	fileErr   string
	emailErr  string
	width     int
}

func New(ctx context.Context, ctrl Session, load FileLoader) Model {
	if load == nil {
		load = sourcefile.Load
	}

	objective := textinput.New()
	objective.Placeholder = "What are you looking for? e.g. Find seed investors for a fintech startup"
	objective.CharLimit = 500
	objective.Width = 72
	objective.Focus()

	files := textinput.New()
	files.Placeholder = "connections.csv, crm-export.csv"
	files.Width = 72

	email := textinput.New()
	email.Placeholder = "name@company.com"
	email.Width = 40

	return Model{
		ctx:       ctx,
		ctrl:      ctrl,
		load:      load,
		styles:    DefaultStyles(),
		snap:      ctrl.Snapshot(),
		objective: objective,
		files:     files,
		email:     email,
		bar:       progress.New(progress.WithDefaultGradient(), progress.WithWidth(48)),
	}
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.bar.Width = min(max(msg.Width-8, 10), 72)
		return m, nil

	case SnapshotMsg:
		return m.applySnapshot(msg.Snapshot), nil

	case filesLoadedMsg:
		if msg.err != nil {
			m.fileErr = errors.Notice(msg.err)
			m.summaries = nil
			return m, nil
		}
		m.fileErr = ""
		m.summaries = msg.summaries
		m.ctrl.SelectFiles(msg.files)
		return m.refresh(), nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		switch m.snap.Session.Status {
		case models.StatusIdle:
			return m.updateIdle(msg)
		case models.StatusResultsReady:
			return m.updateResults(msg)
		}
		return m, nil
	}
	return m, nil
}

func (m Model) applySnapshot(s session.Snapshot) Model {
	// Subscription deliveries can trail a snapshot pulled by refresh.
	if s.Seq < m.snap.Seq {
		return m
	}
	prev := m.snap.Session.Status
	m.snap = s

	switch {
	case prev == models.StatusResultsReady && s.Session.Status == models.StatusIdle:
		m.objective.SetValue("")
		m.files.SetValue("")
		m.email.SetValue("")
		m.summaries, m.fileErr, m.emailErr = nil, "", ""
		m.focus = fieldObjective
		m.objective.Focus()
		m.files.Blur()
	case prev != models.StatusResultsReady && s.Session.Status == models.StatusResultsReady:
		m.email.SetValue("")
		m.emailErr = ""
		m.email.Focus()
	}
	return m
}

// refresh pulls a snapshot synchronously so the view reflects an action
// before the subscription catches up.
func (m Model) refresh() Model {
	return m.applySnapshot(m.ctrl.Snapshot())
}

func (m Model) updateIdle(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.snap.Notice != "" {
		if msg.Type == tea.KeyEnter || msg.Type == tea.KeyEsc {
			m.ctrl.DismissNotice()
			return m.refresh(), nil
		}
		return m, nil
	}

	switch msg.Type {
	case tea.KeyEsc:
		return m, tea.Quit
	case tea.KeyTab, tea.KeyShiftTab:
		return m.toggleFocus(), nil
	case tea.KeyCtrlS:
		return m.submit()
	case tea.KeyEnter:
		if m.focus == fieldFiles {
			return m, m.loadFiles()
		}
		return m.submit()
	}

	var cmd tea.Cmd
	if m.focus == fieldObjective {
		m.objective, cmd = m.objective.Update(msg)
		m.ctrl.SetObjective(m.objective.Value())
		return m.refresh(), cmd
	}
	m.files, cmd = m.files.Update(msg)
	return m, cmd
}

func (m Model) updateResults(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	unlocked := m.snap.Session.Unlocked

	switch {
	case msg.Type == tea.KeyCtrlN, unlocked && msg.String() == "n":
		m.ctrl.NewScan()
		return m.refresh(), nil
	case msg.Type == tea.KeyEsc, unlocked && msg.String() == "q":
		return m, tea.Quit
	case unlocked:
		return m, nil
	case msg.Type == tea.KeyEnter:
		if err := m.ctrl.Unlock(m.ctx, m.email.Value()); err != nil {
			m.emailErr = errors.Notice(err)
			return m, nil
		}
		m.emailErr = ""
		return m.refresh(), nil
	}

	var cmd tea.Cmd
	m.email, cmd = m.email.Update(msg)
	return m, cmd
}

func (m Model) toggleFocus() Model {
	if m.focus == fieldObjective {
		m.focus = fieldFiles
		m.objective.Blur()
		m.files.Focus()
	} else {
		m.focus = fieldObjective
		m.files.Blur()
		m.objective.Focus()
	}
	return m
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	m.ctrl.Submit(m.ctx)
	return m.refresh(), nil
}

func (m Model) loadFiles() tea.Cmd {
	paths := splitPaths(m.files.Value())
	ctx, load := m.ctx, m.load
	return func() tea.Msg {
		if len(paths) == 0 {
			return filesLoadedMsg{}
		}
		files, err := load(ctx, paths)
		if err != nil {
			return filesLoadedMsg{err: err}
		}
		return filesLoadedMsg{files: files, summaries: sourcefile.InspectAll(files)}
	}
}

func splitPaths(value string) []string {
	var out []string
	for _, p := range strings.FieldsFunc(value, func(r rune) bool { return r == ',' || r == '\n' }) {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ==========================
// Views
// ==========================

func (m Model) View() string {
	var sb strings.Builder
	sb.WriteString(m.styles.Title.Render("leadgate"))
	sb.WriteString(m.styles.Muted.Render("  · find the contacts that matter"))
	sb.WriteString("\n\n")

	switch m.snap.Session.Status {
	case models.StatusAnalyzing:
		sb.WriteString(m.viewAnalyzing())
	case models.StatusResultsReady:
		sb.WriteString(m.viewResults())
	default:
		sb.WriteString(m.viewIdle())
	}
	return sb.String()
}

func (m Model) viewIdle() string {
	var sb strings.Builder

	sb.WriteString(m.styles.Bold.Render("Goal") + "\n")
	sb.WriteString(m.objective.View() + "\n\n")
	sb.WriteString(m.styles.Bold.Render("Contact files") + m.styles.Muted.Render("  (comma separated, enter to load)") + "\n")
	sb.WriteString(m.files.View() + "\n")

	if m.fileErr != "" {
		sb.WriteString(m.styles.Error.Render(m.fileErr) + "\n")
	}
	for _, s := range m.summaries {
		line := "  • " + s.String()
		if s.Ready() {
			sb.WriteString(m.styles.Success.Render(line) + "\n")
		} else {
			sb.WriteString(m.styles.Muted.Render(line) + "\n")
		}
	}
	if n := len(m.snap.Session.SourceFiles); n > 0 {
		sb.WriteString(m.styles.Muted.Render(fmt.Sprintf("  %d file(s) ready to merge & scan", n)) + "\n")
	}
	sb.WriteString("\n")

	if m.snap.Notice != "" {
		sb.WriteString(m.styles.Notice.Render(m.snap.Notice+"\n"+m.styles.Muted.Render("enter to dismiss")) + "\n")
		return sb.String()
	}

	hint := "ctrl+s analyze · tab switch field · esc quit"
	if m.snap.CanSubmit {
		sb.WriteString(m.styles.Bold.Render(hint) + "\n")
	} else {
		sb.WriteString(m.styles.Muted.Render(hint) + "\n")
	}
	return sb.String()
}

func (m Model) viewAnalyzing() string {
	p := m.snap.Progress
	var sb strings.Builder
	sb.WriteString(m.styles.Bold.Render(p.Phrase) + "\n\n")
	sb.WriteString(m.bar.ViewAs(float64(p.Percent)/100) + "\n")
	return sb.String()
}

func (m Model) viewResults() string {
	s := m.snap.Session
	var sb strings.Builder

	sb.WriteString(m.styles.Header.Render("Targeting: "+orPlaceholder(s.Persona())) + "\n")
	if summary := s.SummaryAnalysis(); summary != "" {
		sb.WriteString(m.styles.Muted.Render(summary) + "\n\n")
	}
	sb.WriteString(m.styles.Bold.Render(m.snap.Caption) + "\n\n")
	sb.WriteString(renderCandidates(m.snap.Visible, m.styles))
	sb.WriteString("\n")

	if s.Unlocked {
		sb.WriteString(m.styles.Success.Render("Unlocked. The full report is on its way to "+s.ContactEmail+".") + "\n\n")
		sb.WriteString(m.styles.Muted.Render("n new scan · q quit") + "\n")
		return sb.String()
	}

	if m.snap.Hidden > 0 {
		sb.WriteString(m.styles.Locked.Render(fmt.Sprintf("🔒 %d more candidates are hidden.", m.snap.Hidden)) + "\n")
	}
	sb.WriteString("Enter your email to unlock the full list:\n")
	sb.WriteString(m.email.View() + "\n")
	if m.emailErr != "" {
		sb.WriteString(m.styles.Error.Render(m.emailErr) + "\n")
	}
	sb.WriteString("\n" + m.styles.Muted.Render("enter unlock · ctrl+n new scan · esc quit") + "\n")
	return sb.String()
}

func orPlaceholder(s string) string {
	if s == "" {
		return models.Placeholder
	}
	return s
}
