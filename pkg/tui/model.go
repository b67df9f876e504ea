package tui

import (
	"context"
	"time"

	"prism/pkg/config"
	"prism/pkg/dashboard"
	"prism/pkg/models"
	"prism/pkg/watcher"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Version is set by Start()
var Version = "dev"

// SubscriptionsAPI lists and removes the backend's webhook subscriptions.
type SubscriptionsAPI interface {
	ListSubscriptions(ctx context.Context) ([]models.TrackedWallet, error)
	DeleteSubscription(ctx context.Context, webhookID string) error
}

// --- Messages ---

type clearStatusMsg struct{}
type uiTickMsg time.Time

type subscriptionsMsg struct {
	items []models.TrackedWallet
	err   error
}

type subscriptionDeletedMsg struct {
	id  string
	err error
}

type walletMsg struct {
	err error
}

// --- Model ---

type model struct {
	dash   *dashboard.Dashboard
	prices *watcher.Watcher
	api    SubscriptionsAPI
	cfg    config.Config
	sub    watcher.Subscriber

	state      dashboard.State
	priceMap   map[string]models.PriceTick
	lastUpdate time.Time
	sparkIdx   int
	feedIdx    int

	width         int
	height        int
	spinner       spinner.Model
	statusMessage string
	showHelp      bool

	searching bool
	search    textinput.Model

	showInsights bool
	viewport     viewport.Model

	showSubs      bool
	subs          []models.TrackedWallet
	subsIdx       int
	subsLoading   bool
	subsErr       string
	confirmDelete bool
}

func initialModel(d *dashboard.Dashboard, w *watcher.Watcher, api SubscriptionsAPI, cfg config.Config) model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	ti := textinput.New()
	ti.Placeholder = "0x... or Solana address"
	ti.Width = 50
	ti.CharLimit = 64

	m := model{
		dash:     d,
		prices:   w,
		api:      api,
		cfg:      cfg,
		spinner:  s,
		search:   ti,
		viewport: viewport.New(0, 0),
		priceMap: make(map[string]models.PriceTick),
	}
	if d != nil {
		m.sub = d.Hub().Subscribe()
		m.state = d.Snapshot()
	}
	if w != nil {
		m.priceMap = w.GetPrices()
		m.lastUpdate = w.LastUpdate()
	}
	return m
}

func (m model) Init() tea.Cmd {
	var cmds []tea.Cmd

	if m.sub != nil {
		cmds = append(cmds, listenForEvents(m.sub))
	}
	cmds = append(cmds, m.spinner.Tick)
	cmds = append(cmds, tea.Tick(time.Second, func(t time.Time) tea.Msg { return uiTickMsg(t) }))
	return tea.Batch(cmds...)
}
