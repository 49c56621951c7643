package tui

import (
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leadgate/internal/common/errors"
	"leadgate/internal/gate"
	"leadgate/internal/models"
	"leadgate/internal/narrator"
	"leadgate/internal/session"
)

// fakeSession mimics the controller's guards closely enough to drive the
// model without network calls.
type fakeSession struct {
	seq       uint64
	s         models.Session
	notice    string
	progress  narrator.Progress
	submitted int
	unlocked  []string
}

func (f *fakeSession) SetObjective(o string) bool {
	if f.s.Status != models.StatusIdle {
		return false
	}
	f.s.Objective = o
	f.seq++
	return true
}

func (f *fakeSession) SelectFiles(files []models.SourceFile) bool {
	if f.s.Status != models.StatusIdle {
		return false
	}
	f.s.SourceFiles = files
	f.seq++
	return true
}

func (f *fakeSession) Submit(context.Context) bool {
	if !f.s.CanSubmit() {
		return false
	}
	f.submitted++
	f.seq++
	f.s.Status = models.StatusAnalyzing
	return true
}

func (f *fakeSession) Unlock(_ context.Context, email string) error {
	if !strings.Contains(email, "@") {
		return errors.NewInvalidEmailError(email)
	}
	f.seq++
	f.s.Unlocked = true
	f.s.ContactEmail = email
	f.unlocked = append(f.unlocked, email)
	return nil
}

func (f *fakeSession) NewScan() bool {
	if f.s.Status != models.StatusResultsReady {
		return false
	}
	f.s = models.Session{}
	f.seq++
	return true
}

func (f *fakeSession) DismissNotice() {
	f.notice = ""
	f.seq++
}

func (f *fakeSession) Snapshot() session.Snapshot {
	s := f.s.Clone()
	return session.Snapshot{
		Seq:       f.seq,
		Session:   s,
		Visible:   gate.Visible(s.Candidates, s.Unlocked),
		Hidden:    gate.Hidden(s.Candidates, s.Unlocked),
		Caption:   gate.Caption(s.Candidates, s.Unlocked),
		Progress:  f.progress,
		Notice:    f.notice,
		CanSubmit: s.CanSubmit(),
	}
}

func (f *fakeSession) finish(n int) {
	f.seq++
	f.s.Status = models.StatusResultsReady
	f.s.Strategy = &models.Strategy{Persona: "Seed investors", SummaryAnalysis: "Warm intros convert best."}
	for i := 0; i < n; i++ {
		f.s.Candidates = append(f.s.Candidates, models.Candidate{
			Score: float64(90 - i),
			Name:  []string{"Ada", "Bob", "Cy", "Dee", "Eve"}[i%5],
		})
	}
}

func typeText(m tea.Model, s string) tea.Model {
	for _, r := range s {
		m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	return m
}

func press(m tea.Model, k tea.KeyType) (tea.Model, tea.Cmd) {
	return m.Update(tea.KeyMsg{Type: k})
}

func loadStub(_ context.Context, paths []string) ([]models.SourceFile, error) {
	out := make([]models.SourceFile, len(paths))
	for i, p := range paths {
		out[i] = models.SourceFile{Name: p, Data: []byte("First Name,Company\nAda,Acme\n")}
	}
	return out, nil
}

func TestModel_IdleToAnalyzing(t *testing.T) {
	fs := &fakeSession{}
	var m tea.Model = New(context.Background(), fs, loadStub)

	m = typeText(m, "Find investors")
	assert.Equal(t, "Find investors", fs.s.Objective)

	// Submitting without files does nothing.
	m, _ = press(m, tea.KeyCtrlS)
	assert.Zero(t, fs.submitted)

	m, _ = press(m, tea.KeyTab)
	m = typeText(m, "a.csv, b.csv")
	m, cmd := press(m, tea.KeyEnter)
	require.NotNil(t, cmd)
	m, _ = m.Update(cmd())

	require.Len(t, fs.s.SourceFiles, 2)
	view := m.View()
	assert.Contains(t, view, "a.csv: 1 rows, 2 columns recognized (comma)")
	assert.Contains(t, view, "2 file(s) ready to merge & scan")

	m, _ = press(m, tea.KeyCtrlS)
	assert.Equal(t, 1, fs.submitted)

	fs.progress = narrator.Progress{Active: true, Phrase: "Scoring contacts against your goal…", Percent: 40}
	m, _ = m.Update(SnapshotMsg{Snapshot: fs.Snapshot()})
	assert.Contains(t, m.View(), "Scoring contacts against your goal…")
}

func TestModel_PreviewAndUnlock(t *testing.T) {
	fs := &fakeSession{}
	var m tea.Model = New(context.Background(), fs, loadStub)

	fs.finish(5)
	m, _ = m.Update(SnapshotMsg{Snapshot: fs.Snapshot()})

	view := m.View()
	assert.Contains(t, view, "Targeting: Seed investors")
	assert.Contains(t, view, "Showing Top 3 Preview.")
	assert.Contains(t, view, "2 more candidates are hidden")
	assert.Contains(t, view, "Cy")
	assert.NotContains(t, view, "Dee")

	m = typeText(m, "not-an-email")
	m, _ = press(m, tea.KeyEnter)
	assert.Contains(t, m.View(), "Please enter a valid email address.")
	assert.Empty(t, fs.unlocked)

	m, _ = press(m, tea.KeyCtrlU) // clears the input
	m = typeText(m, "a@b.co")
	m, _ = press(m, tea.KeyEnter)
	assert.Equal(t, []string{"a@b.co"}, fs.unlocked)

	view = m.View()
	assert.Contains(t, view, "Showing all 5 candidates.")
	assert.Contains(t, view, "Eve")
	assert.Contains(t, view, "a@b.co")
	assert.NotContains(t, view, "Please enter a valid email address.")
}

func TestModel_NewScanClearsInputs(t *testing.T) {
	fs := &fakeSession{}
	var m tea.Model = New(context.Background(), fs, loadStub)
	m = typeText(m, "Find investors")

	fs.finish(2)
	m, _ = m.Update(SnapshotMsg{Snapshot: fs.Snapshot()})
	assert.Contains(t, m.View(), "Showing Top 3 Preview.")

	m = typeText(m, "a@b.co")
	m, _ = press(m, tea.KeyEnter)
	assert.Contains(t, m.View(), "Showing all 2 candidates.")

	m = typeText(m, "n")
	assert.Equal(t, models.Session{}, fs.s)

	view := m.View()
	assert.Contains(t, view, "Goal")
	assert.NotContains(t, view, "Find investors")
}

func TestModel_IgnoresStaleSnapshot(t *testing.T) {
	fs := &fakeSession{}
	var m tea.Model = New(context.Background(), fs, loadStub)

	fs.finish(4)
	stale := fs.Snapshot()
	m, _ = m.Update(SnapshotMsg{Snapshot: stale})

	m, _ = press(m, tea.KeyCtrlN)
	require.Equal(t, models.StatusIdle, fs.s.Status)

	// The pre-reset snapshot arrives late and must not bring results back.
	m, _ = m.Update(SnapshotMsg{Snapshot: stale})
	assert.Equal(t, models.StatusIdle, m.(Model).snap.Session.Status)
	assert.NotContains(t, m.View(), "Showing Top 3 Preview.")

	// Keys go to the goal input again instead of the results screen.
	_ = typeText(m, "q")
	assert.Equal(t, "q", fs.s.Objective)
}

func TestModel_NoticeBlocksUntilDismissed(t *testing.T) {
	fs := &fakeSession{notice: "We couldn't analyze your files. Please check the service and try again."}
	var m tea.Model = New(context.Background(), fs, loadStub)

	assert.Contains(t, m.View(), "We couldn't analyze your files")

	m = typeText(m, "ignored")
	assert.Empty(t, fs.s.Objective)

	m, _ = press(m, tea.KeyEnter)
	assert.Empty(t, fs.notice)
	assert.NotContains(t, m.View(), "We couldn't analyze your files")
}

func TestModel_FileLoadError(t *testing.T) {
	fs := &fakeSession{}
	failing := func(context.Context, []string) ([]models.SourceFile, error) {
		return nil, errors.NewFileReadFailedError("missing.csv", assert.AnError)
	}
	var m tea.Model = New(context.Background(), fs, failing)

	m, _ = press(m, tea.KeyTab)
	m = typeText(m, "missing.csv")
	m, cmd := press(m, tea.KeyEnter)
	m, _ = m.Update(cmd())

	assert.Contains(t, m.View(), "Could not read source file")
	assert.Empty(t, fs.s.SourceFiles)
}

func TestModel_Quit(t *testing.T) {
	fs := &fakeSession{}
	m := New(context.Background(), fs, loadStub)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestSplitPaths(t *testing.T) {
	assert.Equal(t, []string{"a.csv", "b c.csv"}, splitPaths(" a.csv, b c.csv ,, "))
	assert.Nil(t, splitPaths("  "))
}

func TestRenderCandidates_Placeholders(t *testing.T) {
	out := renderCandidates([]models.Candidate{{Score: 1e21}}, DefaultStyles())
	assert.Contains(t, out, "1e+21")
	assert.Contains(t, out, models.Placeholder)
	assert.Contains(t, renderCandidates(nil, DefaultStyles()), "No candidates matched.")
}
