package tui

import "github.com/charmbracelet/lipgloss"

var (
	colorPrimary = lipgloss.Color("#4F46E5")
	colorMuted   = lipgloss.Color("#94A3B8")
	colorDanger  = lipgloss.Color("#E53935")
	colorSuccess = lipgloss.Color("#16A34A")
	colorLocked  = lipgloss.Color("#F59E0B")
)

// Styles groups the lipgloss styles used by the views.
type Styles struct {
	Title   lipgloss.Style
	Header  lipgloss.Style
	Body    lipgloss.Style
	Bold    lipgloss.Style
	Muted   lipgloss.Style
	Score   lipgloss.Style
	Locked  lipgloss.Style
	Success lipgloss.Style
	Error   lipgloss.Style
	Notice  lipgloss.Style
}

func DefaultStyles() Styles {
	return Styles{
		Title:   lipgloss.NewStyle().Bold(true).Foreground(colorPrimary),
		Header:  lipgloss.NewStyle().Bold(true).MarginBottom(1),
		Body:    lipgloss.NewStyle(),
		Bold:    lipgloss.NewStyle().Bold(true),
		Muted:   lipgloss.NewStyle().Foreground(colorMuted),
		Score:   lipgloss.NewStyle().Bold(true).Foreground(colorPrimary),
		Locked:  lipgloss.NewStyle().Foreground(colorLocked),
		Success: lipgloss.NewStyle().Foreground(colorSuccess),
		Error:   lipgloss.NewStyle().Foreground(colorDanger),
		Notice: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorDanger).
			Padding(0, 1),
	}
}
