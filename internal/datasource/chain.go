package datasource

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/seenimoa/finsum/pkg/models"
)

// QuoteChain tries each provider in order and returns the first complete quote.
// Failures are logged and never retried within a call.
type QuoteChain struct {
	providers []QuoteProvider
	log       *zap.Logger
}

// NewQuoteChain builds a chain over providers, tried in the given order.
func NewQuoteChain(log *zap.Logger, providers ...QuoteProvider) *QuoteChain {
	if log == nil {
		log = zap.NewNop()
	}
	return &QuoteChain{providers: providers, log: log}
}

// Name returns the chain's provider names joined by " > ".
func (c *QuoteChain) Name() string {
	names := make([]string, len(c.providers))
	for i, p := range c.providers {
		names[i] = p.Name()
	}
	return strings.Join(names, " > ")
}

// GetQuote implements QuoteProvider.
func (c *QuoteChain) GetQuote(ctx context.Context, symbol string) (*models.SymbolQuote, error) {
	var errs []error
	for _, p := range c.providers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		q, err := p.GetQuote(ctx, symbol)
		if err == nil && q != nil {
			if len(errs) > 0 {
				c.log.Info("quote served by fallback source",
					zap.String("symbol", symbol), zap.String("source", p.Name()))
			}
			return q, nil
		}
		if err == nil {
			err = ErrIncompleteQuote
		}
		c.log.Warn("quote source failed",
			zap.String("symbol", symbol), zap.String("source", p.Name()), zap.Error(err))
		errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
	}
	return nil, fmt.Errorf("all quote sources failed for %s: %w", symbol, errors.Join(errs...))
}

// NewsChain tries each provider in order; the first non-empty result wins.
type NewsChain struct {
	providers []NewsProvider
	log       *zap.Logger
}

// NewNewsChain builds a chain over providers, tried in the given order.
func NewNewsChain(log *zap.Logger, providers ...NewsProvider) *NewsChain {
	if log == nil {
		log = zap.NewNop()
	}
	return &NewsChain{providers: providers, log: log}
}

// Name returns the chain's provider names joined by " > ".
func (c *NewsChain) Name() string {
	names := make([]string, len(c.providers))
	for i, p := range c.providers {
		names[i] = p.Name()
	}
	return strings.Join(names, " > ")
}

// GetNews implements NewsProvider. limit <= 0 means DefaultNewsLimit.
func (c *NewsChain) GetNews(ctx context.Context, symbol string, limit int) ([]models.NewsItem, error) {
	if limit <= 0 {
		limit = DefaultNewsLimit
	}

	var errs []error
	for _, p := range c.providers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		items, err := p.GetNews(ctx, symbol, limit)
		if err == nil && len(items) > 0 {
			if len(items) > limit {
				items = items[:limit]
			}
			c.log.Debug("news fetched",
				zap.String("symbol", symbol), zap.String("source", p.Name()), zap.Int("count", len(items)))
			return items, nil
		}
		if err == nil {
			err = ErrNoNews
		}
		c.log.Warn("news source failed",
			zap.String("symbol", symbol), zap.String("source", p.Name()), zap.Error(err))
		errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
	}
	return nil, fmt.Errorf("all news sources failed for %s: %w", symbol, errors.Join(errs...))
}
