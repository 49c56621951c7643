package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"leadgate/internal/session"
)

// Run starts the terminal program and feeds it controller snapshots until the
// user quits or ctx ends.
func Run(ctx context.Context, ctrl *session.Controller, load FileLoader) error {
	p := tea.NewProgram(New(ctx, ctrl, load), tea.WithAltScreen(), tea.WithContext(ctx))

	unsubscribe := ctrl.Subscribe(func(s session.Snapshot) {
		p.Send(SnapshotMsg{Snapshot: s})
	})
	defer unsubscribe()

	_, err := p.Run()
	return err
}
