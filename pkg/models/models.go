package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Profile is the enriched view of one address as served by the backend.
type Profile struct {
	Address        string          `json:"address"`
	EnsName        string          `json:"ensName,omitempty"`
	PortfolioValue float64         `json:"portfolioValue,omitempty"`
	BioData        *BioData        `json:"bioData,omitempty"`
	PortfolioData  *PortfolioData  `json:"portfolioData,omitempty"`
	AnalysisData   *Analysis       `json:"analysisData,omitempty"`
	Analysis       *Analysis       `json:"analysis,omitempty"`
	SimilarWallets []SimilarWallet `json:"similarWallets,omitempty"`
}

// Complete reports whether the profile carries generated bio data.
func (p *Profile) Complete() bool {
	return p != nil && p.BioData != nil
}

// Summary returns analysisData, falling back to analysis.
func (p *Profile) Summary() *Analysis {
	if p == nil {
		return nil
	}
	if p.AnalysisData != nil {
		return p.AnalysisData
	}
	return p.Analysis
}

// Positions returns the holdings in server order, never nil.
func (p *Profile) Positions() []Position {
	if p == nil || p.PortfolioData == nil || p.PortfolioData.Positions == nil {
		return []Position{}
	}
	return p.PortfolioData.Positions
}

// Normalize defaults collections and resolves field aliases.
func (p *Profile) Normalize() {
	if p == nil {
		return
	}
	if p.PortfolioData != nil && p.PortfolioData.Positions == nil {
		p.PortfolioData.Positions = []Position{}
	}
	if p.BioData != nil {
		if p.BioData.Badges == nil {
			p.BioData.Badges = []Badge{}
		}
		if p.BioData.Timeline == nil {
			p.BioData.Timeline = []Milestone{}
		}
	}
	p.AnalysisData.normalize()
	p.Analysis.normalize()
	for i := range p.SimilarWallets {
		if p.SimilarWallets[i].Personality == "" {
			p.SimilarWallets[i].Personality = p.SimilarWallets[i].PersonalityType
		}
	}
}

type BioData struct {
	Tagline  string      `json:"tagline,omitempty"`
	AI       *BioAI      `json:"ai,omitempty"`
	Stats    *BioStats   `json:"stats,omitempty"`
	Badges   []Badge     `json:"badges,omitempty"`
	Timeline []Milestone `json:"timeline,omitempty"`
}

type BioAI struct {
	AIStory string `json:"aiStory,omitempty"`
}

type BioStats struct {
	FirstTxDate        *Timestamp `json:"firstTxDate,omitempty"`
	LastTxDate         *Timestamp `json:"lastTxDate,omitempty"`
	TotalTransactions  int        `json:"totalTransactions,omitempty"`
	PortfolioAgeMonths int        `json:"portfolioAgeMonths,omitempty"`
}

type Badge struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type Milestone struct {
	Label       string     `json:"label"`
	Description string     `json:"description,omitempty"`
	Date        *Timestamp `json:"date,omitempty"`
}

type PortfolioData struct {
	Positions []Position `json:"positions"`
}

// Position is one fungible holding.
type Position struct {
	Attributes PositionAttributes `json:"attributes"`
}

type PositionAttributes struct {
	Value        float64      `json:"value,omitempty"`
	Quantity     Quantity     `json:"quantity"`
	FungibleInfo FungibleInfo `json:"fungible_info"`
}

type Quantity struct {
	Float float64 `json:"float,omitempty"`
}

type FungibleInfo struct {
	Name   string `json:"name,omitempty"`
	Symbol string `json:"symbol,omitempty"`
}

// Analysis is the risk/personality summary for a profile.
type Analysis struct {
	RiskScore       *float64    `json:"riskScore,omitempty"`
	Personality     string      `json:"personality,omitempty"`
	PersonalityType string      `json:"personalityType,omitempty"`
	Metrics         *Metrics    `json:"metrics,omitempty"`
	AI              *AnalysisAI `json:"ai,omitempty"`
	Strengths       []string    `json:"strengths,omitempty"`
	Weaknesses      []string    `json:"weaknesses,omitempty"`
	Recommendations []string    `json:"recommendations,omitempty"`
}

func (a *Analysis) normalize() {
	if a == nil {
		return
	}
	if a.Personality == "" {
		a.Personality = a.PersonalityType
	}
	if a.AI != nil {
		if len(a.AI.AIStrengths) == 0 {
			a.AI.AIStrengths = a.Strengths
		}
		if len(a.AI.AIWeaknesses) == 0 {
			a.AI.AIWeaknesses = a.Weaknesses
		}
		if len(a.AI.AIRecommendations) == 0 {
			a.AI.AIRecommendations = a.Recommendations
		}
	}
}

type Metrics struct {
	ChainCount    int                `json:"chainCount,omitempty"`
	Chains        []string           `json:"chains,omitempty"`
	PositionCount int                `json:"positionCount,omitempty"`
	ProtocolCount int                `json:"protocolCount,omitempty"`
	TxCount       int                `json:"txCount,omitempty"`
	AvgTxPerMonth float64            `json:"avgTxPerMonth,omitempty"`
	Concentration float64            `json:"concentration,omitempty"`
	Allocations   map[string]float64 `json:"allocations,omitempty"`
	TotalValue    float64            `json:"totalValue,omitempty"`
}

// ConcentrationLevel buckets the concentration ratio.
func (m *Metrics) ConcentrationLevel() string {
	switch {
	case m == nil:
		return "Low"
	case m.Concentration > 0.8:
		return "High"
	case m.Concentration > 0.5:
		return "Medium"
	default:
		return "Low"
	}
}

type AnalysisAI struct {
	ContextualInsight string   `json:"contextualInsight,omitempty"`
	AIStrengths       []string `json:"aiStrengths,omitempty"`
	AIWeaknesses      []string `json:"aiWeaknesses,omitempty"`
	AIRecommendations []string `json:"aiRecommendations,omitempty"`
	Raw               string   `json:"raw,omitempty"`
}

type SimilarWallet struct {
	Address         string   `json:"address"`
	Similarity      float64  `json:"similarity,omitempty"`
	Personality     string   `json:"personality,omitempty"`
	PersonalityType string   `json:"personalityType,omitempty"`
	RiskScore       *float64 `json:"riskScore,omitempty"`
	PortfolioValue  float64  `json:"portfolioValue,omitempty"`
}

// NFT is one entry of the wallet's NFT holdings.
type NFT struct {
	Attributes NFTAttributes `json:"attributes"`
}

type NFTAttributes struct {
	NFTInfo        NFTInfo         `json:"nft_info"`
	CollectionInfo CollectionInfo  `json:"collection_info"`
	FloorPrice     json.RawMessage `json:"floor_price,omitempty"`
}

type NFTInfo struct {
	Name    string     `json:"name,omitempty"`
	Content NFTContent `json:"content"`
}

type NFTContent struct {
	Preview struct {
		URL string `json:"url,omitempty"`
	} `json:"preview"`
}

type CollectionInfo struct {
	Name string `json:"name,omitempty"`
}

// ActivityItem is one entry of the live activity feed.
type ActivityItem struct {
	ID            string     `json:"id,omitempty"`
	Hash          string     `json:"hash,omitempty"`
	Type          string     `json:"type,omitempty"`
	ActivityType  string     `json:"activityType,omitempty"`
	Address       string     `json:"address,omitempty"`
	WalletAddress string     `json:"walletAddress,omitempty"`
	Chain         string     `json:"chain,omitempty"`
	Timestamp     *Timestamp `json:"timestamp,omitempty"`
	TxHash        string     `json:"txHash,omitempty"`
}

// Normalize resolves the activityType/walletAddress aliases.
func (a *ActivityItem) Normalize() {
	if a.Type == "" {
		a.Type = a.ActivityType
	}
	if a.Address == "" {
		a.Address = a.WalletAddress
	}
}

// Label is the display name of the activity kind.
func (a ActivityItem) Label() string {
	if a.Type != "" {
		return a.Type
	}
	if a.ActivityType != "" {
		return a.ActivityType
	}
	return "Transaction"
}

// DedupKey identifies an item across the push and poll sources: id, then
// hash, then its position in the containing list. Positional keys start with
// a NUL byte so they never equal an upstream id or hash, and they are unique
// within one list, so keyless items are never merged with each other.
func (a ActivityItem) DedupKey(index int) string {
	if a.ID != "" {
		return a.ID
	}
	if a.Hash != "" {
		return a.Hash
	}
	return positionalKeyPrefix + strconv.Itoa(index)
}

const positionalKeyPrefix = "\x00#"

// PriceTick is the latest quote for one watch-list symbol.
type PriceTick struct {
	Symbol    string   `json:"symbol"`
	ID        string   `json:"id,omitempty"`
	Price     float64  `json:"price"`
	Change24h *float64 `json:"change24h,omitempty"`
}

// Normalize falls back to the id when the symbol is missing.
func (p *PriceTick) Normalize() {
	if p.Symbol == "" {
		p.Symbol = p.ID
	}
}

// Comparison positions the profile against similar wallets.
type Comparison struct {
	Comparison   *ComparisonDetail `json:"comparison,omitempty"`
	Insights     []Insight         `json:"insights,omitempty"`
	SimilarCount int               `json:"similarCount,omitempty"`
}

type ComparisonDetail struct {
	PortfolioValue ComparedValue `json:"portfolioValue"`
	RiskScore      ComparedValue `json:"riskScore"`
	Diversity      struct {
		Chains    ComparedValue `json:"chains"`
		Positions ComparedValue `json:"positions"`
	} `json:"diversity"`
	Activity struct {
		Transactions ComparedValue `json:"transactions"`
	} `json:"activity"`
}

type ComparedValue struct {
	User        float64 `json:"user"`
	Average     float64 `json:"average"`
	Diff        float64 `json:"diff,omitempty"`
	DiffPercent float64 `json:"diffPercent,omitempty"`
	Position    string  `json:"position,omitempty"`
}

type Insight struct {
	Type     string `json:"type"`
	Category string `json:"category,omitempty"`
	Message  string `json:"message"`
	Icon     string `json:"icon,omitempty"`
}

// Recommendations holds AI generated advice for a profile.
type Recommendations struct {
	Recommendations []Recommendation `json:"recommendations"`
	Strategies      []string         `json:"strategies,omitempty"`
	Warnings        []string         `json:"warnings,omitempty"`
	Opportunities   []string         `json:"opportunities,omitempty"`
	GeneratedAt     *Timestamp       `json:"generatedAt,omitempty"`
}

type Recommendation struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category,omitempty"`
}

// TrackedWallet is a webhook subscription held by the backend.
type TrackedWallet struct {
	Address        string     `json:"address"`
	WebhookID      string     `json:"webhookId"`
	TrackedByCount int        `json:"trackedByCount"`
	CreatedAt      *Timestamp `json:"createdAt,omitempty"`
}

// Timestamp accepts RFC3339 strings and unix milliseconds.
type Timestamp struct {
	time.Time
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if s == "" {
			return nil
		}
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
			if parsed, err := time.Parse(layout, s); err == nil {
				t.Time = parsed
				return nil
			}
		}
		if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
			t.Time = time.UnixMilli(ms).UTC()
			return nil
		}
		return fmt.Errorf("invalid timestamp %q", s)
	}
	ms, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return fmt.Errorf("invalid timestamp %s", b)
	}
	t.Time = time.UnixMilli(int64(ms)).UTC()
	return nil
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.UTC().Format(time.RFC3339Nano))
}
