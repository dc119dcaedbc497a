// Package pipeline turns symbols into scored, risk-rated analyses by combining
// quotes, news, sentiment and the risk evaluator.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/seenimoa/finsum/internal/analysis/risk"
	"github.com/seenimoa/finsum/internal/analysis/sentiment"
	"github.com/seenimoa/finsum/internal/datasource"
	"github.com/seenimoa/finsum/pkg/models"
	"github.com/seenimoa/finsum/pkg/utils"
)

// DefaultConcurrency bounds how many symbols are analyzed at once.
const DefaultConcurrency = 4

var (
	// ErrNoSymbols is returned by Analyze when nothing is left after normalization.
	ErrNoSymbols = errors.New("pipeline: no symbols")
	// ErrPanic marks a symbol whose analysis panicked.
	ErrPanic = errors.New("pipeline: analysis panicked")
)

// Analyzer runs the per-symbol analysis.
type Analyzer struct {
	quotes      datasource.QuoteProvider
	news        datasource.NewsProvider
	scorer      sentiment.Scorer
	newsLimit   int
	concurrency int
	log         *zap.Logger
	now         func() time.Time
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithNewsLimit sets how many headlines are fetched per symbol.
func WithNewsLimit(n int) Option {
	return func(a *Analyzer) {
		if n > 0 {
			a.newsLimit = n
		}
	}
}

// WithConcurrency sets how many symbols are analyzed in parallel.
func WithConcurrency(n int) Option {
	return func(a *Analyzer) {
		if n > 0 {
			a.concurrency = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) Option {
	return func(a *Analyzer) { a.log = log }
}

// WithClock overrides the time source used for AnalyzedAt.
func WithClock(now func() time.Time) Option {
	return func(a *Analyzer) { a.now = now }
}

// New creates an Analyzer.
func New(quotes datasource.QuoteProvider, news datasource.NewsProvider, scorer sentiment.Scorer, opts ...Option) *Analyzer {
	a := &Analyzer{
		quotes:      quotes,
		news:        news,
		scorer:      scorer,
		newsLimit:   datasource.DefaultNewsLimit,
		concurrency: DefaultConcurrency,
		log:         zap.NewNop(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Result is the outcome of analyzing a batch of symbols.
type Result struct {
	Symbols []string                         // normalized request order
	Stocks  map[string]*models.StockAnalysis // successful symbols only
	Failed  map[string]error
}

// Ordered returns the successful analyses in request order.
func (r *Result) Ordered() []*models.StockAnalysis {
	out := make([]*models.StockAnalysis, 0, len(r.Stocks))
	for _, sym := range r.Symbols {
		if a, ok := r.Stocks[sym]; ok {
			out = append(out, a)
		}
	}
	return out
}

// Err joins the per-symbol failures, or returns nil when every symbol succeeded.
func (r *Result) Err() error {
	if len(r.Failed) == 0 {
		return nil
	}
	errs := make([]error, 0, len(r.Failed))
	for _, sym := range r.Symbols {
		if err, ok := r.Failed[sym]; ok {
			errs = append(errs, fmt.Errorf("%s: %w", sym, err))
		}
	}
	return errors.Join(errs...)
}

// AnalyzeSymbol fetches the quote and news for one symbol concurrently, then
// scores the news and rates the risk.
func (a *Analyzer) AnalyzeSymbol(ctx context.Context, symbol string) (*models.StockAnalysis, error) {
	sym := utils.NormalizeTicker(symbol)
	if sym == "" {
		return nil, fmt.Errorf("analyze %q: %w", symbol, datasource.ErrTickerNotFound)
	}

	var (
		quote *models.SymbolQuote
		news  []models.NewsItem
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(guard(func() error {
		q, err := a.quotes.GetQuote(gctx, sym)
		if err != nil {
			return fmt.Errorf("quote: %w", err)
		}
		quote = q
		return nil
	}))
	g.Go(guard(func() error {
		items, err := a.news.GetNews(gctx, sym, a.newsLimit)
		if err != nil {
			return fmt.Errorf("news: %w", err)
		}
		news = items
		return nil
	}))
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("analyze %s: %w", sym, err)
	}

	avg, err := sentiment.ScoreNews(ctx, a.scorer, news)
	if err != nil {
		return nil, fmt.Errorf("analyze %s: %w", sym, err)
	}

	analysis := &models.StockAnalysis{
		Symbol:         sym,
		Price:          quote.Price,
		ChangePct:      quote.ChangePct,
		QuoteSource:    quote.Source,
		SyntheticQuote: quote.Synthetic,
		News:           news,
		AvgSentiment:   avg,
		SentimentTrend: sentiment.TrendFor(avg),
		AnalyzedAt:     a.now(),
	}
	assessment := risk.Evaluate(analysis)
	analysis.RiskLevel = assessment.Level
	analysis.RiskPoints = assessment.Points

	a.log.Debug("symbol analyzed",
		zap.String("symbol", sym),
		zap.Float64("price", analysis.Price),
		zap.Float64("change_pct", analysis.ChangePct),
		zap.Int("news", len(news)),
		zap.String("trend", string(analysis.SentimentTrend)),
		zap.String("risk", string(analysis.RiskLevel)),
		zap.Strings("risk_factors", assessment.Factors),
	)
	return analysis, nil
}

// Analyze runs AnalyzeSymbol over the normalized symbols with bounded
// concurrency. A failing symbol is recorded in Failed and does not stop the
// others. The returned error is non-nil only for an empty request or a
// cancelled context.
func (a *Analyzer) Analyze(ctx context.Context, symbols []string) (*Result, error) {
	syms := utils.NormalizeSymbols(symbols)
	if len(syms) == 0 {
		return nil, ErrNoSymbols
	}

	res := &Result{
		Symbols: syms,
		Stocks:  make(map[string]*models.StockAnalysis, len(syms)),
		Failed:  make(map[string]error),
	}
	var mu sync.Mutex

	var g errgroup.Group
	g.SetLimit(a.concurrency)
	for _, sym := range syms {
		g.Go(func() error {
			analysis, err := a.safeAnalyze(ctx, sym)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				a.log.Warn("symbol analysis failed", zap.String("symbol", sym), zap.Error(err))
				res.Failed[sym] = err
				return nil
			}
			res.Stocks[sym] = analysis
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return res, err
	}
	return res, nil
}

// safeAnalyze converts a panic in one symbol's analysis into an error.
func (a *Analyzer) safeAnalyze(ctx context.Context, sym string) (analysis *models.StockAnalysis, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("analyze %s: %w: %v", sym, ErrPanic, r)
		}
	}()
	return a.AnalyzeSymbol(ctx, sym)
}

// guard runs fn on an errgroup goroutine, turning a panic into an error.
func guard(fn func() error) func() error {
	return func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("%w: %v", ErrPanic, r)
			}
		}()
		return fn()
	}
}
