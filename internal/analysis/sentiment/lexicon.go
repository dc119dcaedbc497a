package sentiment

import (
	"context"
	"sync"

	"github.com/jonreiter/govader"
)

// marketValences adds market vocabulary missing from the general-purpose
// VADER lexicon. Words VADER already rates keep their VADER valence.
var marketValences = map[string]float64{
	"bullish": 2.4, "bearish": -2.4,
	"rally": 1.9, "rallies": 1.9, "rallied": 1.9,
	"surge": 1.8, "surges": 1.8, "surged": 1.8,
	"soar": 2.3, "soars": 2.3, "soared": 2.3,
	"jump": 1.2, "jumps": 1.2, "jumped": 1.2,
	"climb": 1.1, "climbs": 1.1,
	"rebound": 1.5, "rebounds": 1.5, "recovery": 1.8,
	"upgrade": 2.0, "upgraded": 2.0,
	"outperform": 2.0, "outperforms": 2.0,
	"beat": 1.4, "beats": 1.5, "exceeds": 1.7, "exceeded": 1.7,
	"strong": 2.3, "stronger": 2.1, "robust": 1.9,
	"growth": 1.6, "profit": 1.9, "profits": 1.9, "profitable": 2.2,
	"boost": 1.7, "boosts": 1.7, "buyback": 1.2, "breakthrough": 2.3,
	"crash": -3.0, "crashes": -3.0,
	"plunge": -2.6, "plunges": -2.6, "plunged": -2.6,
	"tumble": -2.0, "tumbles": -2.0,
	"slump": -2.1, "slumps": -2.1, "sink": -1.5, "sinks": -1.5,
	"drop": -1.1, "drops": -1.1, "dropped": -1.1,
	"decline": -1.5, "declines": -1.5, "declined": -1.5,
	"loss": -1.9, "losses": -2.1,
	"downgrade": -2.0, "downgraded": -2.0, "underperform": -1.9,
	"miss": -1.4, "misses": -1.5, "missed": -1.5,
	"weak": -1.9, "weaker": -1.8, "weakness": -1.7,
	"selloff": -2.2, "sell-off": -2.2, "volatile": -1.0,
	"recession": -2.6, "layoffs": -2.1, "lawsuit": -1.9, "sued": -1.8,
	"investigation": -1.5, "fraud": -3.2, "bankruptcy": -3.2, "bankrupt": -3.2,
	"warns": -1.6, "recall": -1.6, "fined": -1.9, "penalty": -1.8,
}

var analyzer = sync.OnceValue(func() *govader.SentimentIntensityAnalyzer {
	sia := govader.NewSentimentIntensityAnalyzer()
	for word, v := range marketValences {
		if _, ok := sia.Lexicon[word]; !ok {
			sia.Lexicon[word] = v
		}
	}
	return sia
})

// Lexicon scores text with the VADER valence rules and lexicon.
type Lexicon struct {
	sia *govader.SentimentIntensityAnalyzer
}

// NewLexicon returns the lexicon scorer. The dictionary is loaded once per
// process and shared; scoring only reads it.
func NewLexicon() *Lexicon { return &Lexicon{sia: analyzer()} }

// Name returns the backend name.
func (l *Lexicon) Name() string { return "lexicon" }

// Score implements Scorer. It never returns an error.
func (l *Lexicon) Score(_ context.Context, text string) (Result, error) {
	s := l.sia.PolarityScores(Normalize(text))
	compound := max(-1, min(1, s.Compound))
	return Result{
		Compound: compound,
		Label:    LabelFor(compound),
		Detail: map[string]float64{
			"compound": compound,
			"pos":      s.Positive,
			"neg":      s.Negative,
			"neu":      s.Neutral,
		},
	}, nil
}

var _ Scorer = (*Lexicon)(nil)
