package tui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"prism/pkg/config"
	"prism/pkg/dashboard"
	"prism/pkg/identity"
	"prism/pkg/markup"
	"prism/pkg/models"
	"prism/pkg/utils"
	"prism/pkg/watcher"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// renderFragment draws normalized text with terminal bold and italics.
func renderFragment(f markup.Fragment) string {
	var sb strings.Builder
	for _, seg := range f.Segments {
		if seg.Break {
			sb.WriteString("\n")
			continue
		}
		style := lipgloss.NewStyle()
		switch {
		case seg.Strong && seg.Emphasis:
			style = strongStyle.Italic(true)
		case seg.Strong:
			style = strongStyle
		case seg.Emphasis:
			style = emphasisStyle
		default:
			sb.WriteString(seg.Text)
			continue
		}
		sb.WriteString(style.Render(seg.Text))
	}
	return sb.String()
}

func renderAI(raw string) string {
	return renderFragment(markup.Normalize(raw))
}

// portfolioValue prefers the profile total, then the analysis metrics.
func portfolioValue(st dashboard.State) float64 {
	if st.Profile != nil && st.Profile.PortfolioValue > 0 {
		return st.Profile.PortfolioValue
	}
	if st.Summary != nil && st.Summary.Metrics != nil {
		return st.Summary.Metrics.TotalValue
	}
	return 0
}

// txURL links a feed item to the explorer, or returns "" without a hash.
func txURL(cfg config.Config, st dashboard.State, item models.ActivityItem) string {
	hash := item.TxHash
	if hash == "" {
		hash = item.Hash
	}
	if hash == "" {
		return ""
	}
	kind := string(identity.Classify(st.Address))
	switch strings.ToLower(item.Chain) {
	case "solana", "sol":
		kind = "sol"
	case "ethereum", "eth":
		kind = "eth"
	}
	return cfg.ExplorerTxURL(kind, hash)
}

func activityLine(item models.ActivityItem, now time.Time) string {
	when := "-"
	if item.Timestamp != nil {
		when = utils.TimeAgo(item.Timestamp.Time, now)
	}
	who := item.Address
	if who == "" {
		who = item.WalletAddress
	}
	line := fmt.Sprintf("%-14s %-15s %s", utils.TruncateString(item.Label(), 14), utils.ShortAddress(who), when)
	if item.Chain != "" {
		line += subtleStyle.Render(" · " + item.Chain)
	}
	return line
}

func priceLine(symbols []string, prices map[string]models.PriceTick) string {
	var parts []string
	for _, sym := range symbols {
		t, ok := prices[sym]
		if !ok {
			parts = append(parts, subtleStyle.Render(sym+" --"))
			continue
		}
		part := fmt.Sprintf("%s %s", sym, utils.FormatPrice(t.Price))
		if t.Change24h != nil {
			ch := utils.FormatPercent(*t.Change24h)
			if *t.Change24h >= 0 {
				ch = upStyle.Render(ch)
			} else {
				ch = downStyle.Render(ch)
			}
			part += " " + ch
		}
		parts = append(parts, part)
	}
	return strings.Join(parts, " • ")
}

func bulletList(title string, items []string) string {
	if len(items) == 0 {
		return ""
	}
	lines := []string{tableHeaderStyle.Render(title)}
	for _, it := range items {
		lines = append(lines, "  • "+renderAI(it))
	}
	return strings.Join(lines, "\n")
}

// insightsContent is the scrollable AI and comparison panel.
func insightsContent(st dashboard.State, width int) string {
	var sections []string
	wrap := lipgloss.NewStyle().Width(max(width-4, 20))

	if st.Profile != nil && st.Profile.BioData != nil {
		bio := st.Profile.BioData
		if bio.Tagline != "" {
			sections = append(sections, strongStyle.Render(renderAI(bio.Tagline)))
		}
		if bio.AI != nil && bio.AI.AIStory != "" {
			sections = append(sections, wrap.Render(renderAI(bio.AI.AIStory)))
		}
		if len(bio.Badges) > 0 {
			var names []string
			for _, b := range bio.Badges {
				names = append(names, b.Name)
			}
			sections = append(sections, subtleStyle.Render("Badges: ")+strings.Join(names, ", "))
		}
	}

	if s := st.Summary; s != nil {
		head := fmt.Sprintf("Personality: %s", s.Personality)
		if s.RiskScore != nil {
			head += fmt.Sprintf(" • Risk: %.0f/100", *s.RiskScore)
		}
		if s.Metrics != nil {
			head += fmt.Sprintf(" • Concentration: %s", s.Metrics.ConcentrationLevel())
		}
		sections = append(sections, tableHeaderStyle.Render(head))
		strengths, weaknesses, recs := s.Strengths, s.Weaknesses, s.Recommendations
		if s.AI != nil {
			if s.AI.ContextualInsight != "" {
				sections = append(sections, wrap.Render(renderAI(s.AI.ContextualInsight)))
			}
			strengths, weaknesses, recs = s.AI.AIStrengths, s.AI.AIWeaknesses, s.AI.AIRecommendations
		}
		for _, block := range []string{
			bulletList("Strengths", strengths),
			bulletList("Weaknesses", weaknesses),
			bulletList("Suggestions", recs),
		} {
			if block != "" {
				sections = append(sections, wrap.Render(block))
			}
		}
	}

	if c := st.Comparison; c != nil {
		lines := []string{tableHeaderStyle.Render(fmt.Sprintf("Compared with %d similar wallets", c.SimilarCount))}
		if d := c.Comparison; d != nil {
			lines = append(lines,
				fmt.Sprintf("  Portfolio  %s vs %s avg (%s)", utils.FormatUSD(d.PortfolioValue.User, 0),
					utils.FormatUSD(d.PortfolioValue.Average, 0), d.PortfolioValue.Position),
				fmt.Sprintf("  Risk       %.0f vs %.0f avg", d.RiskScore.User, d.RiskScore.Average),
				fmt.Sprintf("  Chains     %.0f vs %.1f avg", d.Diversity.Chains.User, d.Diversity.Chains.Average),
			)
		}
		for _, in := range c.Insights {
			lines = append(lines, "  "+in.Icon+" "+renderAI(in.Message))
		}
		sections = append(sections, wrap.Render(strings.Join(lines, "\n")))
	}

	if r := st.Recommendations; r != nil && len(r.Recommendations) > 0 {
		lines := []string{tableHeaderStyle.Render("Recommendations")}
		for _, rec := range r.Recommendations {
			lines = append(lines, "  "+strongStyle.Render(rec.Title), "    "+renderAI(rec.Description))
		}
		if b := bulletList("Warnings", r.Warnings); b != "" {
			lines = append(lines, b)
		}
		sections = append(sections, wrap.Render(strings.Join(lines, "\n")))
	}

	if st.Profile != nil && len(st.Profile.SimilarWallets) > 0 {
		similar := append([]models.SimilarWallet{}, st.Profile.SimilarWallets...)
		sort.SliceStable(similar, func(i, j int) bool { return similar[i].Similarity > similar[j].Similarity })
		lines := []string{tableHeaderStyle.Render("Similar wallets")}
		for _, w := range similar {
			lines = append(lines, fmt.Sprintf("  %-15s %3.0f%%  %s", utils.ShortAddress(w.Address), w.Similarity*100, w.Personality))
		}
		sections = append(sections, strings.Join(lines, "\n"))
	}

	if len(sections) == 0 {
		return "No insights yet."
	}
	return strings.Join(sections, "\n\n")
}

func listenForEvents(sub watcher.Subscriber) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-sub
		if !ok {
			return nil
		}
		return ev
	}
}
