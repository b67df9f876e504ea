package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"prism/pkg/identity"
	"prism/pkg/utils"
)

func (m model) View() string {
	if m.showHelp {
		return m.viewHelp()
	}
	if m.showSubs {
		return m.viewSubscriptions()
	}
	if m.showInsights {
		return m.viewInsights()
	}

	var content string
	switch {
	case m.searching:
		content = boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left,
			titleStyle.Render("Search Address"),
			"\n",
			m.search.View(),
			"\n",
			subtleStyle.Render("Enter to load • Esc to cancel"),
		))
	case m.state.Address == "":
		content = boxStyle.Render(lipgloss.JoinVertical(lipgloss.Center,
			titleStyle.Render("Prism"),
			"\n",
			"No address selected.",
			subtleStyle.Render("Press / to search an ETH or SOL address, or w to connect your wallet."),
		))
	case m.state.Loading:
		content = boxStyle.Render(fmt.Sprintf("%s Loading profile for %s...\n%s",
			m.spinner.View(), utils.ShortAddress(m.state.Address),
			subtleStyle.Render("New addresses are analysed on first load, this can take a while.")))
	case m.state.Error != "":
		content = boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left,
			errStyle.Render(m.state.Error),
			subtleStyle.Render(fmt.Sprintf("Address: %s", m.state.Address)),
			"\n",
			subtleStyle.Render("r: retry • /: search another address"),
		))
	default:
		content = m.viewProfile()
	}

	market := m.viewMarket()
	if market != "" {
		content = lipgloss.JoinVertical(lipgloss.Center, content, market)
	}

	// Footer
	line1 := "/:search • i:insights • s:subs • w:wallet • c:copy • r:reload • ?:help • q:quit"
	line2 := fmt.Sprintf("j/k:feed • o:open tx • p:next chart • v%s", Version)
	var footer string
	if m.width > 0 {
		l1 := subtleStyle.Width(m.width).Align(lipgloss.Center).Render(line1)
		l2 := subtleStyle.Width(m.width).Align(lipgloss.Center).Render(line2)
		footer = lipgloss.JoinVertical(lipgloss.Center, l1, l2)
	} else {
		footer = subtleStyle.Render(line1 + "\n" + line2)
	}
	if m.statusMessage != "" {
		footer = lipgloss.JoinVertical(lipgloss.Center, infoStyle.Render(m.statusMessage), footer)
	}

	// Top bar
	symbols := []string{}
	if m.prices != nil {
		symbols = m.prices.Symbols()
	}
	leftBlock := subtleStyle.Render(" ") + priceLine(symbols, m.priceMap)

	walletStr := "wallet: disconnected"
	if m.state.Wallet.Connected {
		walletStr = "wallet: " + utils.ShortAddress(m.state.Wallet.Address)
	}
	lastUpdStr := "prices: --"
	if !m.lastUpdate.IsZero() {
		lastUpdStr = "prices: " + m.lastUpdate.Format("15:04:05")
	}
	rightBlock := subtleStyle.Render(fmt.Sprintf("%s • %s ", walletStr, lastUpdStr))
	gap := m.width - lipgloss.Width(leftBlock) - lipgloss.Width(rightBlock)
	if gap < 0 {
		gap = 0
	}
	topBar := lipgloss.JoinHorizontal(lipgloss.Top, leftBlock, strings.Repeat(" ", gap), rightBlock)

	h := m.height - 1
	if h < 0 {
		h = 0
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		topBar,
		lipgloss.Place(
			m.width,
			h,
			lipgloss.Center,
			lipgloss.Center,
			lipgloss.JoinVertical(lipgloss.Center, content, "\n", footer),
		),
	)
}

func (m model) viewProfile() string {
	st := m.state
	p := st.Profile
	if p == nil {
		return boxStyle.Render("No profile loaded.")
	}

	name := identity.Checksum(st.Address)
	if identity.Classify(st.Address) != identity.ETH {
		name = st.Address
	}
	if p.EnsName != "" {
		name = fmt.Sprintf("%s (%s)", p.EnsName, utils.ShortAddress(st.Address))
	}
	source := "search"
	if st.IsWalletProfile {
		source = "wallet"
	}
	header := lipgloss.JoinHorizontal(lipgloss.Top, titleStyle.Render(name), subtleStyle.Render(" ["+source+"]"))

	valueLine := "Portfolio: " + utils.FormatUSD(portfolioValue(st), 2)
	if st.EthBalance != nil {
		valueLine += fmt.Sprintf(" • %s ETH on-chain", utils.FormatFloat(*st.EthBalance, 4))
	}
	if st.Onboarded {
		valueLine += subtleStyle.Render(" • freshly analysed")
	}

	var lines []string
	lines = append(lines, header, infoStyle.Render(valueLine))
	if p.BioData != nil && p.BioData.Tagline != "" {
		lines = append(lines, renderAI(p.BioData.Tagline))
	}
	if s := st.Summary; s != nil {
		summary := "Personality: " + s.Personality
		if s.RiskScore != nil {
			summary += fmt.Sprintf(" • Risk %.0f/100", *s.RiskScore)
		}
		if s.Metrics != nil {
			summary += fmt.Sprintf(" • %d chains • %d txs", s.Metrics.ChainCount, s.Metrics.TxCount)
		}
		lines = append(lines, subtleStyle.Render(summary))
	}

	// Tokens
	tokenRows := []string{tableHeaderStyle.Render(fmt.Sprintf("%-8s %14s %14s", "Token", "Amount", "Value"))}
	for _, pos := range st.Tokens {
		a := pos.Attributes
		sym := a.FungibleInfo.Symbol
		if sym == "" {
			sym = utils.TruncateString(a.FungibleInfo.Name, 8)
		}
		tokenRows = append(tokenRows, fmt.Sprintf("  %-8s %14s %14s", utils.TruncateString(sym, 8),
			utils.FormatFloat(a.Quantity.Float, 4), utils.FormatUSD(a.Value, 2)))
	}
	if len(st.Tokens) == 0 {
		tokenRows = append(tokenRows, subtleStyle.Render("  No token positions"))
	}

	// NFTs
	nftRows := []string{tableHeaderStyle.Render(fmt.Sprintf("NFTs (%d)", len(st.NFTs)))}
	for i, n := range st.NFTs {
		if i == 5 {
			nftRows = append(nftRows, subtleStyle.Render(fmt.Sprintf("  +%d more", len(st.NFTs)-5)))
			break
		}
		label := n.Attributes.NFTInfo.Name
		if label == "" {
			label = "Unnamed"
		}
		if c := n.Attributes.CollectionInfo.Name; c != "" {
			label += subtleStyle.Render(" · " + c)
		}
		nftRows = append(nftRows, "  "+utils.TruncateString(label, 48))
	}

	// Feed
	now := time.Now()
	feedRows := []string{tableHeaderStyle.Render("Live activity")}
	for i, item := range st.Feed {
		row := activityLine(item, now)
		if i == m.feedIdx {
			row = selectedStyle.Render("> " + row)
		} else {
			row = "  " + row
		}
		feedRows = append(feedRows, row)
	}
	if len(st.Feed) == 0 {
		feedRows = append(feedRows, subtleStyle.Render("  Waiting for activity..."))
	}

	left := lipgloss.JoinVertical(lipgloss.Left, strings.Join(tokenRows, "\n"), "", strings.Join(nftRows, "\n"))
	right := strings.Join(feedRows, "\n")
	body := lipgloss.JoinHorizontal(lipgloss.Top, left, "   ", right)

	lines = append(lines, "", body)
	return boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

// viewMarket draws the sparkline of the selected watch-list symbol.
func (m model) viewMarket() string {
	if m.prices == nil {
		return ""
	}
	symbols := m.prices.Symbols()
	if len(symbols) == 0 {
		return ""
	}
	sym := symbols[m.sparkIdx%len(symbols)]
	history := m.prices.History(sym)
	if len(history) < 2 {
		return ""
	}
	width := m.width - 20
	if width < 10 {
		width = 10
	}
	if width > 80 {
		width = 80
	}
	graph := asciigraph.Plot(history,
		asciigraph.Height(4),
		asciigraph.Width(width),
		asciigraph.Caption(fmt.Sprintf("%s price (USD)", sym)),
	)
	return subtleStyle.Render(graph)
}

func (m model) viewInsights() string {
	header := titleStyle.Render(fmt.Sprintf("Insights: %s", utils.ShortAddress(m.state.Address)))
	content := boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, header, "\n", m.viewport.View()))
	footer := subtleStyle.Render(fmt.Sprintf("%3.f%% • ↑/k ↓/j scroll • i/q/esc: back", m.viewport.ScrollPercent()*100))
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, lipgloss.JoinVertical(lipgloss.Center, content, "\n", footer))
}

func (m model) viewSubscriptions() string {
	header := titleStyle.Render("Tracked Wallets")

	var body string
	switch {
	case m.subsLoading:
		body = m.spinner.View() + " Loading subscriptions..."
	case m.subsErr != "":
		body = errStyle.Render(m.subsErr)
	case len(m.subs) == 0:
		body = "No wallets are being tracked."
	default:
		rows := []string{tableHeaderStyle.Render(fmt.Sprintf("%-15s %-22s %8s %s", "Address", "Webhook", "Trackers", "Since"))}
		for i, s := range m.subs {
			since := "-"
			if s.CreatedAt != nil {
				since = s.CreatedAt.Format("2006-01-02")
			}
			row := fmt.Sprintf("%-15s %-22s %8d %s", utils.ShortAddress(s.Address), utils.TruncateString(s.WebhookID, 22), s.TrackedByCount, since)
			if i == m.subsIdx {
				row = selectedStyle.Render("> " + row)
			} else {
				row = "  " + row
			}
			rows = append(rows, row)
		}
		body = strings.Join(rows, "\n")
	}

	if m.confirmDelete && m.subsIdx < len(m.subs) {
		body = lipgloss.JoinVertical(lipgloss.Left, body, "\n",
			errStyle.Render(fmt.Sprintf("Delete subscription %s?", m.subs[m.subsIdx].WebhookID)),
			subtleStyle.Render("(y) Yes • (n) No"))
	}

	content := boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, header, "\n", body))
	footer := subtleStyle.Render("↑/k ↓/j: move • d: delete • r: refresh • q/esc: back")
	if m.statusMessage != "" {
		footer = lipgloss.JoinVertical(lipgloss.Center, infoStyle.Render(m.statusMessage), footer)
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, lipgloss.JoinVertical(lipgloss.Center, content, "\n", footer))
}

func (m model) viewHelp() string {
	var title string
	var shortcuts []string

	switch {
	case m.showSubs:
		title = "Tracked Wallets"
		shortcuts = []string{"↑/k: Up", "↓/j: Down", "d: Delete", "r: Refresh", "q/esc: Back"}
	case m.showInsights:
		title = "Insights"
		shortcuts = []string{"↑/k: Scroll Up", "↓/j: Scroll Down", "i/q/esc: Close"}
	default:
		title = "Main View"
		shortcuts = []string{
			"/: Search Address",
			"i/enter: Insights",
			"s: Tracked Wallets",
			"w: Connect/Disconnect Wallet",
			"c: Copy Address",
			"r: Reload Profile",
			"j/k: Select Activity",
			"o: Open Activity in Explorer",
			"p/Tab: Next Price Chart",
			"q: Quit",
			"?: Toggle Help",
		}
	}

	header := titleStyle.Render(fmt.Sprintf("Help: %s", title))
	content := boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, header, "\n", strings.Join(shortcuts, "\n")))
	footer := subtleStyle.Render("Press '?' or 'esc' to close")

	return lipgloss.Place(
		m.width,
		m.height,
		lipgloss.Center,
		lipgloss.Center,
		lipgloss.JoinVertical(lipgloss.Center, content, "\n", footer),
	)
}
