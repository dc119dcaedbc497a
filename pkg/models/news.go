package models

import "time"

// SentimentLabel is the discrete sentiment of a piece of text.
type SentimentLabel string

const (
	SentimentPositive SentimentLabel = "Positive"
	SentimentNegative SentimentLabel = "Negative"
	SentimentNeutral  SentimentLabel = "Neutral"
)

// NewsItem is a headline attached to a symbol.
type NewsItem struct {
	Title       string    `json:"title"`
	Summary     string    `json:"summary"`
	URL         string    `json:"url"`
	Published   time.Time `json:"published"`
	SourceScore float64   `json:"source_score"` // provider-supplied sentiment, 0 for live feeds
	Source      string    `json:"source"`
	Synthetic   bool      `json:"synthetic"`

	// Set by the sentiment scorer.
	LocalSentiment SentimentLabel `json:"local_sentiment,omitempty"`
	LocalCompound  float64        `json:"local_compound"`
}

// Scored reports whether the sentiment scorer has run over the item.
func (n NewsItem) Scored() bool {
	return n.LocalSentiment != ""
}

// ScoringText is the text fed to the sentiment scorer.
func (n NewsItem) ScoringText() string {
	if n.Summary == "" {
		return n.Title
	}
	return n.Title + ". " + n.Summary
}

// ArticleResult is the outcome of summarizing (and optionally questioning) a pasted article.
type ArticleResult struct {
	Summary  string `json:"summary"`
	Question string `json:"question,omitempty"`
	Answer   string `json:"answer,omitempty"`
}
