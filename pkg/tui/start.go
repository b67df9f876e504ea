package tui

import (
	"prism/pkg/config"
	"prism/pkg/dashboard"
	"prism/pkg/watcher"

	tea "github.com/charmbracelet/bubbletea"
)

// Start runs the dashboard UI until the user quits.
func Start(d *dashboard.Dashboard, w *watcher.Watcher, api SubscriptionsAPI, cfg config.Config, version string) error {
	Version = version
	m := initialModel(d, w, api, cfg)
	defer d.Hub().Unsubscribe(m.sub)

	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
	return err
}
