package tui

import (
	"context"
	"fmt"
	"time"

	"prism/pkg/watcher"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

const statusTTL = 2 * time.Second

func clearStatusAfter() tea.Cmd {
	return tea.Tick(statusTTL, func(t time.Time) tea.Msg { return clearStatusMsg{} })
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport = viewport.New(max(msg.Width-8, 10), max(msg.Height-8, 3))
		m.viewport.SetContent(insightsContent(m.state, m.viewport.Width))

	case watcher.Event:
		if m.sub != nil {
			cmds = append(cmds, listenForEvents(m.sub))
		}
		m.applyEvent(msg)

	case subscriptionsMsg:
		m.subsLoading = false
		if msg.err != nil {
			m.subsErr = msg.err.Error()
			break
		}
		m.subsErr = ""
		m.subs = msg.items
		if m.subsIdx >= len(m.subs) {
			m.subsIdx = max(len(m.subs)-1, 0)
		}

	case subscriptionDeletedMsg:
		if msg.err != nil {
			m.statusMessage = fmt.Sprintf("Delete failed: %v", msg.err)
			cmds = append(cmds, clearStatusAfter())
			break
		}
		m.statusMessage = "Subscription deleted"
		m.subsLoading = true
		cmds = append(cmds, m.fetchSubscriptions(), clearStatusAfter())

	case walletMsg:
		if msg.err != nil {
			m.statusMessage = fmt.Sprintf("Wallet: %v", msg.err)
			cmds = append(cmds, clearStatusAfter())
		}

	case tea.KeyMsg:
		return m.handleKey(msg)

	case uiTickMsg:
		cmds = append(cmds, tea.Tick(time.Second, func(t time.Time) tea.Msg { return uiTickMsg(t) }))

	case clearStatusMsg:
		m.statusMessage = ""
	}

	if m.state.Loading || m.subsLoading {
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m *model) applyEvent(ev watcher.Event) {
	switch ev.Type {
	case watcher.EventPricesUpdated:
		if snap, ok := ev.Data.(watcher.PricesSnapshot); ok {
			m.priceMap = snap.Prices
			m.lastUpdate = snap.UpdatedAt
		}
		return
	case watcher.EventAcquisitionFailed:
		if s, ok := ev.Data.(string); ok {
			m.statusMessage = s
		}
	}
	if m.dash != nil {
		m.state = m.dash.Snapshot()
	}
	if m.feedIdx >= len(m.state.Feed) {
		m.feedIdx = max(len(m.state.Feed)-1, 0)
	}
	m.viewport.SetContent(insightsContent(m.state, m.viewport.Width))
}

func (m model) fetchSubscriptions() tea.Cmd {
	api := m.api
	return func() tea.Msg {
		if api == nil {
			return subscriptionsMsg{err: fmt.Errorf("backend not configured")}
		}
		ctx, cancel := context.WithTimeout(context.Background(), m.cfg.RequestTimeout())
		defer cancel()
		items, err := api.ListSubscriptions(ctx)
		return subscriptionsMsg{items: items, err: err}
	}
}

func (m model) deleteSubscription(id string) tea.Cmd {
	api := m.api
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), m.cfg.RequestTimeout())
		defer cancel()
		return subscriptionDeletedMsg{id: id, err: api.DeleteSubscription(ctx, id)}
	}
}

func (m model) toggleWallet() tea.Cmd {
	d := m.dash
	if m.state.Wallet.Connected {
		d.DisconnectWallet()
		return nil
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return walletMsg{err: d.ConnectWallet(ctx)}
	}
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	key := msg.String()

	if key == "ctrl+c" {
		return m, tea.Quit
	}

	if m.searching {
		switch key {
		case "esc":
			m.searching = false
			m.search.Blur()
			return m, nil
		case "enter":
			value := m.search.Value()
			if err := m.dash.Search(value); err != nil {
				m.statusMessage = err.Error()
				return m, clearStatusAfter()
			}
			m.searching = false
			m.search.Blur()
			m.search.SetValue("")
			m.showInsights = false
			m.feedIdx = 0
			return m, nil
		}
		var cmd tea.Cmd
		m.search, cmd = m.search.Update(msg)
		return m, cmd
	}

	if key == "?" {
		m.showHelp = !m.showHelp
		return m, nil
	}
	if m.showHelp {
		if key == "q" || key == "esc" {
			m.showHelp = false
		}
		return m, nil
	}

	if m.showSubs {
		return m.handleSubsKey(key)
	}

	if m.showInsights {
		switch key {
		case "q", "esc", "i", "enter":
			m.showInsights = false
			return m, nil
		}
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	switch key {
	case "q":
		return m, tea.Quit
	case "/":
		m.searching = true
		m.search.Focus()
		return m, textinput.Blink
	case "i", "enter":
		if m.state.Loaded() {
			m.showInsights = true
			m.viewport.SetContent(insightsContent(m.state, m.viewport.Width))
			m.viewport.GotoTop()
		}
	case "s":
		m.showSubs = true
		m.subsLoading = true
		m.confirmDelete = false
		cmds = append(cmds, m.fetchSubscriptions(), m.spinner.Tick)
	case "w":
		if cmd := m.toggleWallet(); cmd != nil {
			cmds = append(cmds, cmd)
		}
	case "r":
		m.dash.Reload()
		m.statusMessage = "Reloading profile..."
		cmds = append(cmds, clearStatusAfter(), m.spinner.Tick)
	case "c":
		if m.state.Address != "" {
			if err := clipboard.WriteAll(m.state.Address); err != nil {
				m.statusMessage = "Failed to copy to clipboard"
			} else {
				m.statusMessage = "Address copied to clipboard!"
			}
			cmds = append(cmds, clearStatusAfter())
		}
	case "up", "k":
		if m.feedIdx > 0 {
			m.feedIdx--
		}
	case "down", "j":
		if m.feedIdx < len(m.state.Feed)-1 {
			m.feedIdx++
		}
	case "o":
		if m.feedIdx < len(m.state.Feed) {
			url := txURL(m.cfg, m.state, m.state.Feed[m.feedIdx])
			if url == "" {
				m.statusMessage = "No transaction hash for this item"
			} else if err := openBrowser(url); err != nil {
				m.statusMessage = fmt.Sprintf("Failed to open browser: %v", err)
			} else {
				m.statusMessage = "Opened in browser"
			}
			cmds = append(cmds, clearStatusAfter())
		}
	case "tab", "p":
		if m.prices != nil && len(m.prices.Symbols()) > 0 {
			m.sparkIdx = (m.sparkIdx + 1) % len(m.prices.Symbols())
		}
	}

	return m, tea.Batch(cmds...)
}

func (m model) handleSubsKey(key string) (tea.Model, tea.Cmd) {
	if m.confirmDelete {
		switch key {
		case "y", "Y", "enter":
			m.confirmDelete = false
			if m.subsIdx < len(m.subs) {
				return m, m.deleteSubscription(m.subs[m.subsIdx].WebhookID)
			}
		case "n", "N", "q", "esc":
			m.confirmDelete = false
		}
		return m, nil
	}

	switch key {
	case "q", "esc", "s":
		m.showSubs = false
	case "up", "k":
		if m.subsIdx > 0 {
			m.subsIdx--
		}
	case "down", "j":
		if m.subsIdx < len(m.subs)-1 {
			m.subsIdx++
		}
	case "d":
		if len(m.subs) > 0 {
			m.confirmDelete = true
		}
	case "r":
		m.subsLoading = true
		return m, tea.Batch(m.fetchSubscriptions(), m.spinner.Tick)
	}
	return m, nil
}
