package tui

import (
	"errors"
	"strings"
	"testing"
	"time"

	"prism/pkg/config"
	"prism/pkg/dashboard"
	"prism/pkg/markup"
	"prism/pkg/models"
	"prism/pkg/watcher"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ethAddr = "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"

func TestRenderFragment(t *testing.T) {
	out := renderFragment(markup.Normalize("Hi **bold** and *soft*\nnext <b>"))
	assert.Contains(t, out, "bold")
	assert.Contains(t, out, "soft")
	assert.Contains(t, out, "\n")
	// terminal output is not HTML; markup characters stay literal
	assert.Contains(t, out, "<b>")
	assert.NotContains(t, out, "**")
}

func TestPortfolioValue(t *testing.T) {
	st := dashboard.State{Profile: &models.Profile{PortfolioValue: 1200}}
	assert.Equal(t, 1200.0, portfolioValue(st))

	st = dashboard.State{
		Profile: &models.Profile{},
		Summary: &models.Analysis{Metrics: &models.Metrics{TotalValue: 55}},
	}
	assert.Equal(t, 55.0, portfolioValue(st))
	assert.Equal(t, 0.0, portfolioValue(dashboard.State{}))
}

func TestTxURL(t *testing.T) {
	cfg := config.Default()
	eth := dashboard.State{Address: ethAddr}
	sol := dashboard.State{Address: "9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM"}

	assert.Equal(t, "https://etherscan.io/tx/0xabc", txURL(cfg, eth, models.ActivityItem{TxHash: "0xabc"}))
	assert.Equal(t, "https://etherscan.io/tx/0xdef", txURL(cfg, eth, models.ActivityItem{Hash: "0xdef"}))
	assert.Equal(t, "https://solscan.io/tx/sig", txURL(cfg, sol, models.ActivityItem{TxHash: "sig"}))
	assert.Equal(t, "https://solscan.io/tx/sig", txURL(cfg, eth, models.ActivityItem{TxHash: "sig", Chain: "solana"}))
	assert.Equal(t, "", txURL(cfg, eth, models.ActivityItem{ID: "only-id"}))
}

func TestPriceLine(t *testing.T) {
	up, down := 2.5, -1.0
	prices := map[string]models.PriceTick{
		"ETH": {Symbol: "ETH", Price: 3000, Change24h: &up},
		"SOL": {Symbol: "SOL", Price: 150.5, Change24h: &down},
	}
	line := priceLine([]string{"ETH", "SOL", "BTC"}, prices)
	assert.Contains(t, line, "ETH $3,000.00")
	assert.Contains(t, line, "+2.50%")
	assert.Contains(t, line, "-1.00%")
	assert.Contains(t, line, "BTC --")
}

func TestInsightsContent(t *testing.T) {
	assert.Equal(t, "No insights yet.", insightsContent(dashboard.State{}, 80))

	risk := 42.0
	st := dashboard.State{
		Profile: &models.Profile{
			BioData: &models.BioData{
				Tagline: "The **patient** holder",
				AI:      &models.BioAI{AIStory: "Here's a bio for you:\nA long *story*."},
			},
			SimilarWallets: []models.SimilarWallet{
				{Address: "0x1111111111111111111111111111111111111111", Similarity: 0.4, Personality: "Trader"},
				{Address: "0x2222222222222222222222222222222222222222", Similarity: 0.9, Personality: "Holder"},
			},
		},
		Summary: &models.Analysis{
			Personality: "Diamond Hands",
			RiskScore:   &risk,
			Strengths:   []string{"Diversified"},
		},
		Comparison:      &models.Comparison{SimilarCount: 7},
		Recommendations: &models.Recommendations{Recommendations: []models.Recommendation{{Title: "Rebalance", Description: "Trim **ETH**"}}},
	}
	out := insightsContent(st, 100)
	assert.Contains(t, out, "patient")
	assert.Contains(t, out, "story")
	assert.NotContains(t, out, "Here's a bio")
	assert.Contains(t, out, "Diamond Hands")
	assert.Contains(t, out, "Risk: 42/100")
	assert.Contains(t, out, "Diversified")
	assert.Contains(t, out, "7 similar wallets")
	assert.Contains(t, out, "Rebalance")
	// most similar first
	assert.Less(t, strings.Index(out, "Holder"), strings.Index(out, "Trader"))
}

func TestActivityLine(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	item := models.ActivityItem{
		Type:      "swap",
		Address:   ethAddr,
		Chain:     "ethereum",
		Timestamp: &models.Timestamp{Time: now.Add(-5 * time.Minute)},
	}
	line := activityLine(item, now)
	assert.Contains(t, line, "swap")
	assert.Contains(t, line, "0x5aAe...eAed")
	assert.Contains(t, line, "5m ago")
	assert.Contains(t, activityLine(models.ActivityItem{}, now), "Transaction")
}

func newTestModel(t *testing.T) model {
	t.Helper()
	hub := watcher.NewHub()
	d := dashboard.New(dashboard.Deps{Hub: hub}, zerolog.Nop())
	t.Cleanup(d.Close)
	w := watcher.NewWatcher(nil, []string{"ETH", "SOL"}, time.Minute, hub, zerolog.Nop())
	m := initialModel(d, w, nil, config.Default())
	t.Cleanup(func() { hub.Unsubscribe(m.sub) })
	return m
}

func keyMsg(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestUpdate_SearchInvalidAddress(t *testing.T) {
	m := newTestModel(t)

	next, _ := m.Update(keyMsg("/"))
	m = next.(model)
	require.True(t, m.searching)

	for _, r := range "0xnope" {
		next, _ = m.Update(keyMsg(string(r)))
		m = next.(model)
	}
	assert.Equal(t, "0xnope", m.search.Value())

	next, _ = m.Update(keyMsg("enter"))
	m = next.(model)
	assert.True(t, m.searching)
	assert.Equal(t, "Enter a valid ETH or SOL address", m.statusMessage)

	next, _ = m.Update(keyMsg("esc"))
	m = next.(model)
	assert.False(t, m.searching)
}

func TestUpdate_PricesEvent(t *testing.T) {
	m := newTestModel(t)
	now := time.Now()
	snap := watcher.PricesSnapshot{
		Prices:    map[string]models.PriceTick{"ETH": {Symbol: "ETH", Price: 3100}},
		UpdatedAt: now,
	}

	next, _ := m.Update(watcher.Event{Type: watcher.EventPricesUpdated, Data: snap})
	m = next.(model)
	assert.Equal(t, 3100.0, m.priceMap["ETH"].Price)
	assert.Equal(t, now, m.lastUpdate)
}

func TestUpdate_AcquisitionFailedEvent(t *testing.T) {
	m := newTestModel(t)
	next, _ := m.Update(watcher.Event{Type: watcher.EventAcquisitionFailed, Data: "Onboarding failed"})
	m = next.(model)
	assert.Equal(t, "Onboarding failed", m.statusMessage)
}

func TestUpdate_SubscriptionsScreen(t *testing.T) {
	m := newTestModel(t)
	m.showSubs = true

	next, _ := m.Update(subscriptionsMsg{items: []models.TrackedWallet{
		{Address: ethAddr, WebhookID: "wh_1"},
		{Address: ethAddr, WebhookID: "wh_2"},
	}})
	m = next.(model)
	require.Len(t, m.subs, 2)

	next, _ = m.Update(keyMsg("j"))
	m = next.(model)
	assert.Equal(t, 1, m.subsIdx)

	next, _ = m.Update(keyMsg("d"))
	m = next.(model)
	assert.True(t, m.confirmDelete)
	assert.Contains(t, m.View(), "Delete subscription wh_2?")

	next, _ = m.Update(keyMsg("n"))
	m = next.(model)
	assert.False(t, m.confirmDelete)

	next, _ = m.Update(subscriptionDeletedMsg{id: "wh_2", err: errors.New("404")})
	m = next.(model)
	assert.Contains(t, m.statusMessage, "Delete failed")

	// a refresh after delete shrinks the list and keeps the cursor in range
	next, _ = m.Update(subscriptionsMsg{items: []models.TrackedWallet{{Address: ethAddr, WebhookID: "wh_1"}}})
	m = next.(model)
	assert.Equal(t, 0, m.subsIdx)

	next, _ = m.Update(keyMsg("q"))
	m = next.(model)
	assert.False(t, m.showSubs)
}

func TestView_Empty(t *testing.T) {
	m := newTestModel(t)
	m.width, m.height = 120, 40
	out := m.View()
	assert.Contains(t, out, "No address selected.")
	assert.Contains(t, out, "wallet: disconnected")
}
