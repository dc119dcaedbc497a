// Package sentiment labels news text as Positive, Negative or Neutral.
//
// Two interchangeable backends implement Scorer: an offline valence lexicon
// and a hosted finance-tuned classifier. Both report a compound score in
// [-1, 1] so the rest of the pipeline does not care which one is active.
package sentiment

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/seenimoa/finsum/pkg/models"
)

// Label thresholds on the compound score.
const (
	PositiveThreshold = 0.05
	NegativeThreshold = -0.05
)

// Trend thresholds on the average compound score.
const (
	BullishThreshold = 0.05
	BearishThreshold = -0.05
)

// Result is the outcome of scoring one text.
type Result struct {
	Compound float64
	Label    models.SentimentLabel
	Detail   map[string]float64
}

// Scorer produces a compound score, label and backend-specific detail for a text.
type Scorer interface {
	Name() string
	Score(ctx context.Context, text string) (Result, error)
}

// Options selects and configures a backend.
type Options struct {
	UseClassifier bool
	ClassifierURL string
	Token         string
	Client        *http.Client
	Logger        *zap.Logger
}

// New returns the lexicon, or when opts.UseClassifier is set, the classifier
// backed by the lexicon for texts the classifier fails on.
func New(opts Options) Scorer {
	if opts.UseClassifier {
		return NewChain(opts.Logger, NewClassifier(opts.ClassifierURL, opts.Token, opts.Client), NewLexicon())
	}
	return NewLexicon()
}

// Normalize collapses runs of whitespace into single spaces and trims the ends.
func Normalize(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// LabelFor maps a compound score to a label. Boundaries are inclusive.
func LabelFor(compound float64) models.SentimentLabel {
	switch {
	case compound >= PositiveThreshold:
		return models.SentimentPositive
	case compound <= NegativeThreshold:
		return models.SentimentNegative
	default:
		return models.SentimentNeutral
	}
}

// TrendFor maps an average compound score to a trend. Boundaries are exclusive.
func TrendFor(avg float64) models.Trend {
	switch {
	case avg > BullishThreshold:
		return models.TrendBullish
	case avg < BearishThreshold:
		return models.TrendBearish
	default:
		return models.TrendNeutral
	}
}

// ScoreNews labels every item in place and returns the mean compound score.
// An empty slice averages to exactly 0.
func ScoreNews(ctx context.Context, s Scorer, items []models.NewsItem) (float64, error) {
	for i := range items {
		res, err := s.Score(ctx, items[i].ScoringText())
		if err != nil {
			return 0, fmt.Errorf("score news item %d (%q): %w", i, items[i].Title, err)
		}
		items[i].LocalCompound = res.Compound
		items[i].LocalSentiment = res.Label
	}
	return Average(items), nil
}

// Average returns the arithmetic mean of LocalCompound over items, or 0 when empty.
func Average(items []models.NewsItem) float64 {
	if len(items) == 0 {
		return 0
	}
	sum := 0.0
	for _, it := range items {
		sum += it.LocalCompound
	}
	return sum / float64(len(items))
}
