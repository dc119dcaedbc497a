package datasource

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/seenimoa/finsum/pkg/models"
	"github.com/seenimoa/finsum/pkg/utils"
)

// Jitter applied to generated values.
const (
	syntheticPriceJitter  = 0.03 // ±3% of the reference price
	syntheticChangeRange  = 2.5  // daily change drawn from ±2.5%
	syntheticScoreJitter  = 0.1  // template sentiment ±0.1
	syntheticMaxNewsItems = 5
)

// referencePrices anchors generated quotes near realistic levels.
var referencePrices = map[string]float64{
	"AAPL":  175.0,
	"MSFT":  410.0,
	"GOOGL": 165.0,
	"AMZN":  180.0,
	"META":  480.0,
	"TSLA":  175.0,
	"NVDA":  880.0,
	"NFLX":  600.0,
	"BABA":  75.0,
	"BAC":   38.0,
	"XRP":   0.5,
}

const defaultReferencePrice = 100.0

// ReferencePrice returns the anchor price used for synthetic quotes.
func ReferencePrice(symbol string) float64 {
	if p, ok := referencePrices[utils.NormalizeTicker(symbol)]; ok {
		return p
	}
	return defaultReferencePrice
}

// lockedRand is a *rand.Rand safe for concurrent use.
type lockedRand struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func newLockedRand(rng *rand.Rand) *lockedRand {
	if rng == nil {
		now := uint64(time.Now().UnixNano())
		rng = rand.New(rand.NewPCG(now, now>>7|1))
	}
	return &lockedRand{rng: rng}
}

// uniform returns a value in [lo, hi).
func (r *lockedRand) uniform(lo, hi float64) float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return lo + r.rng.Float64()*(hi-lo)
}

func round2(f float64) float64 {
	return decimal.NewFromFloat(f).Round(2).InexactFloat64()
}

// SyntheticQuotes generates a plausible quote for any symbol. It never fails.
type SyntheticQuotes struct {
	rng *lockedRand
}

// NewSyntheticQuotes creates the generator. A nil rng seeds from the clock.
func NewSyntheticQuotes(rng *rand.Rand) *SyntheticQuotes {
	return &SyntheticQuotes{rng: newLockedRand(rng)}
}

// Name returns the provider name.
func (s *SyntheticQuotes) Name() string { return "synthetic" }

// GetQuote implements QuoteProvider.
func (s *SyntheticQuotes) GetQuote(_ context.Context, symbol string) (*models.SymbolQuote, error) {
	sym := utils.NormalizeTicker(symbol)
	base := ReferencePrice(sym)
	price := base * (1 + s.rng.uniform(-syntheticPriceJitter, syntheticPriceJitter))
	change := s.rng.uniform(-syntheticChangeRange, syntheticChangeRange)

	return &models.SymbolQuote{
		Symbol:    sym,
		Price:     round2(price),
		ChangePct: round2(change),
		Source:    s.Name(),
		Synthetic: true,
	}, nil
}

// SyntheticNews produces template headlines pointing at real finance sites.
// It never fails and never returns an empty list.
type SyntheticNews struct {
	rng *lockedRand
	now func() time.Time
}

// NewSyntheticNews creates the generator. A nil rng seeds from the clock.
func NewSyntheticNews(rng *rand.Rand) *SyntheticNews {
	return &SyntheticNews{rng: newLockedRand(rng), now: time.Now}
}

// Name returns the provider name.
func (s *SyntheticNews) Name() string { return "synthetic" }

// GetNews implements NewsProvider.
func (s *SyntheticNews) GetNews(_ context.Context, symbol string, limit int) ([]models.NewsItem, error) {
	sym := utils.NormalizeTicker(symbol)
	if limit <= 0 {
		limit = DefaultNewsLimit
	}

	templates := headlineTemplates(sym)
	urls := CuratedURLs(sym)
	count := min(limit, syntheticMaxNewsItems, len(templates))

	now := s.now()
	summary := "Latest financial news and analysis about " + sym + " relevant to investors and market watchers."
	items := make([]models.NewsItem, 0, count)
	for i := 0; i < count; i++ {
		t := templates[i]
		score := t.sentiment + s.rng.uniform(-syntheticScoreJitter, syntheticScoreJitter)
		items = append(items, models.NewsItem{
			Title:       sym + " " + t.headline,
			Summary:     summary,
			URL:         urls[i%len(urls)],
			Published:   now.AddDate(0, 0, -i),
			SourceScore: clamp(score, -1, 1),
			Source:      s.Name(),
			Synthetic:   true,
		})
	}
	return items, nil
}

func clamp(v, lo, hi float64) float64 {
	return max(lo, min(hi, v))
}
