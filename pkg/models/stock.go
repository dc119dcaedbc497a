// Package models defines the core data structures used throughout FinSum.
package models

import "time"

// SymbolQuote is a point-in-time price for one symbol.
type SymbolQuote struct {
	Symbol    string  `json:"symbol"`
	Price     float64 `json:"price"`
	ChangePct float64 `json:"change_pct"` // percent, e.g. -1.25
	Source    string  `json:"source"`     // provider that produced the quote
	Synthetic bool    `json:"synthetic"`  // true when generated rather than fetched
}

// Trend is the direction implied by the average news sentiment.
type Trend string

const (
	TrendBullish Trend = "Bullish"
	TrendBearish Trend = "Bearish"
	TrendNeutral Trend = "Neutral"
)

// RiskLevel is the coarse risk classification of a symbol.
type RiskLevel string

const (
	RiskLow    RiskLevel = "Low"
	RiskMedium RiskLevel = "Medium"
	RiskHigh   RiskLevel = "High"
)

// StockAnalysis is the per-symbol result of one analysis pass.
type StockAnalysis struct {
	Symbol         string     `json:"symbol"`
	Price          float64    `json:"price"`
	ChangePct      float64    `json:"change_pct"`
	QuoteSource    string     `json:"quote_source"`
	SyntheticQuote bool       `json:"synthetic_quote"`
	News           []NewsItem `json:"news"` // fetch order, most recent first
	AvgSentiment   float64    `json:"avg_sentiment"`
	SentimentTrend Trend      `json:"sentiment_trend"`
	RiskLevel      RiskLevel  `json:"risk_level"`
	RiskPoints     int        `json:"risk_points"`
	AnalyzedAt     time.Time  `json:"analyzed_at"`
}

// NegativeNewsCount returns how many news items were labelled Negative.
func (a *StockAnalysis) NegativeNewsCount() int {
	n := 0
	for _, item := range a.News {
		if item.LocalSentiment == SentimentNegative {
			n++
		}
	}
	return n
}

// Snapshot is one complete refresh cycle's output.
type Snapshot struct {
	CycleID     string                    `json:"cycle_id"`
	Symbols     []string                  `json:"symbols"` // request order
	Stocks      map[string]*StockAnalysis `json:"stocks"`
	RefreshedAt time.Time                 `json:"refreshed_at"`
	Duration    time.Duration             `json:"duration_ns"`
}

// Ordered returns the analyses in request order, skipping symbols without a result.
func (s *Snapshot) Ordered() []*StockAnalysis {
	if s == nil {
		return nil
	}
	out := make([]*StockAnalysis, 0, len(s.Symbols))
	for _, sym := range s.Symbols {
		if a, ok := s.Stocks[sym]; ok {
			out = append(out, a)
		}
	}
	return out
}

// Age returns how long ago the snapshot was taken.
func (s *Snapshot) Age(now time.Time) time.Duration {
	return now.Sub(s.RefreshedAt)
}
