// Package app assembles FinSum's components from configuration.
package app

import (
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/seenimoa/finsum/internal/analysis/sentiment"
	"github.com/seenimoa/finsum/internal/cache"
	"github.com/seenimoa/finsum/internal/config"
	"github.com/seenimoa/finsum/internal/datasource"
	"github.com/seenimoa/finsum/internal/infra"
	"github.com/seenimoa/finsum/internal/llm"
	"github.com/seenimoa/finsum/internal/pipeline"
	"github.com/seenimoa/finsum/internal/scheduler"
	"github.com/seenimoa/finsum/pkg/utils"
)

// App holds the wired components shared by the CLI and the API server.
type App struct {
	Config    *config.Config
	Log       *zap.Logger
	Results   *cache.ResultCache
	Summaries *cache.SummaryCache
	Quotes    datasource.QuoteProvider
	News      datasource.NewsProvider
	Scorer    sentiment.Scorer
	Analyzer  *pipeline.Analyzer
	Refresher *scheduler.Refresher
	Engine    *llm.Engine
}

// New validates cfg and builds every component. Nothing is started; call
// Refresher.Start to begin background refreshes.
func New(cfg *config.Config, log *zap.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if log == nil {
		log = zap.NewNop()
	}

	client := infra.NewHTTPClient(infra.HTTPOptions{
		Timeout:  cfg.Sources.Timeout(),
		RetryMax: cfg.Sources.RetryMax,
		Logger:   log.Named("http"),
	})

	a := &App{
		Config:    cfg,
		Log:       log,
		Results:   cache.NewResultCache(),
		Summaries: cache.NewSummaryCache(cfg.Cache.SummaryMaxEntries),
		Quotes:    buildQuotes(cfg, client, log),
		News:      buildNews(cfg, client, log),
		Scorer: sentiment.New(sentiment.Options{
			UseClassifier: cfg.Sentiment.UseFinBERT,
			ClassifierURL: cfg.Sentiment.FinBERTURL,
			Token:         cfg.Sentiment.HFToken,
			Client:        client,
			Logger:        log.Named("sentiment"),
		}),
	}
	log.Info("sentiment backend selected", zap.String("scorer", a.Scorer.Name()))

	a.Analyzer = pipeline.New(a.Quotes, a.News, a.Scorer,
		pipeline.WithNewsLimit(cfg.Refresh.NewsLimit),
		pipeline.WithConcurrency(cfg.Refresh.Concurrency),
		pipeline.WithLogger(log.Named("pipeline")),
	)
	a.Refresher = scheduler.New(a.Analyzer, a.Results, utils.NormalizeSymbols(cfg.Refresh.Symbols),
		scheduler.WithInterval(cfg.Refresh.RefreshInterval()),
		scheduler.WithMaxAge(cfg.Refresh.MaxAge()),
		scheduler.WithLogger(log.Named("scheduler")),
	)
	a.Engine = buildEngine(cfg, a.Summaries, log)
	return a, nil
}

func buildQuotes(cfg *config.Config, client *http.Client, log *zap.Logger) datasource.QuoteProvider {
	var providers []datasource.QuoteProvider
	if !cfg.Sources.DisablePrimary {
		providers = append(providers, datasource.NewYFinance(
			datasource.WithYFinanceBaseURL(cfg.Sources.QuoteURL),
			datasource.WithYFinanceClient(client),
			datasource.WithYFinanceLimiter(infra.NewRateLimiter(cfg.Sources.RequestsPerSecond, 1)),
		))
	}
	providers = append(providers, datasource.NewSyntheticQuotes(nil))
	return datasource.NewQuoteChain(log.Named("quotes"), providers...)
}

func buildNews(cfg *config.Config, client *http.Client, log *zap.Logger) datasource.NewsProvider {
	var providers []datasource.NewsProvider
	if !cfg.Sources.DisablePrimary {
		providers = append(providers,
			datasource.NewYahooNews(
				datasource.WithYahooFeedURL(cfg.Sources.NewsFeedURL),
				datasource.WithYahooNewsClient(client),
				datasource.WithYahooNewsLimiter(infra.NewRateLimiter(cfg.Sources.RequestsPerSecond, 1)),
			),
			datasource.NewWebSearch(
				datasource.WithSearchURL(cfg.Sources.SearchURL),
				datasource.WithSearchClient(client),
				datasource.WithSearchLimiter(infra.NewRateLimiter(cfg.Sources.RequestsPerSecond, 1)),
			),
		)
	}
	providers = append(providers, datasource.NewSyntheticNews(nil))
	return datasource.NewNewsChain(log.Named("news"), providers...)
}

// buildEngine wires the language model. A missing key leaves the engine
// without a backend so calls return an inline error.
func buildEngine(cfg *config.Config, summaries *cache.SummaryCache, log *zap.Logger) *llm.Engine {
	var completer llm.Completer
	provider, err := llm.NewOpenAIProvider(cfg.LLM.OpenAIKey,
		llm.WithOpenAIBaseURL(cfg.LLM.BaseURL),
		llm.WithOpenAIModel(cfg.LLM.Model),
		llm.WithOpenAIHTTPClient(&http.Client{Timeout: cfg.LLM.Timeout()}),
		llm.WithOpenAILogger(log.Named("openai")),
	)
	if err != nil {
		log.Warn("language model disabled", zap.Error(err))
	} else {
		completer = provider
	}

	return llm.NewEngine(completer, summaries,
		llm.WithTemperatures(cfg.LLM.SummaryTemperature, cfg.LLM.AnswerTemperature),
		llm.WithMaxTokens(cfg.LLM.MaxTokens),
		llm.WithSummaryTimeout(cfg.LLM.Timeout()),
		llm.WithEngineLogger(log.Named("llm")),
	)
}
