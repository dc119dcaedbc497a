package datasource

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seenimoa/finsum/pkg/models"
)

type stubQuotes struct {
	name  string
	quote *models.SymbolQuote
	err   error
	calls int
}

func (s *stubQuotes) Name() string { return s.name }

func (s *stubQuotes) GetQuote(context.Context, string) (*models.SymbolQuote, error) {
	s.calls++
	return s.quote, s.err
}

type stubNews struct {
	name  string
	items []models.NewsItem
	err   error
	calls int
}

func (s *stubNews) Name() string { return s.name }

func (s *stubNews) GetNews(context.Context, string, int) ([]models.NewsItem, error) {
	s.calls++
	return s.items, s.err
}

func TestQuoteChainFirstSuccessWins(t *testing.T) {
	primary := &stubQuotes{name: "primary", quote: &models.SymbolQuote{Symbol: "AAPL", Price: 190}}
	secondary := &stubQuotes{name: "secondary", quote: &models.SymbolQuote{Symbol: "AAPL", Price: 1}}

	q, err := NewQuoteChain(nil, primary, secondary).GetQuote(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, 190.0, q.Price)
	assert.Equal(t, 0, secondary.calls)
}

func TestQuoteChainFallsThroughErrorsAndNil(t *testing.T) {
	failing := &stubQuotes{name: "down", err: errors.New("boom")}
	empty := &stubQuotes{name: "empty"}
	last := &stubQuotes{name: "last", quote: &models.SymbolQuote{Symbol: "AAPL", Price: 175, Synthetic: true}}

	q, err := NewQuoteChain(nil, failing, empty, last).GetQuote(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.True(t, q.Synthetic)
	assert.Equal(t, 1, failing.calls, "primary must not be retried")
}

func TestQuoteChainAllFail(t *testing.T) {
	chain := NewQuoteChain(nil, &stubQuotes{name: "a", err: ErrTickerNotFound}, &stubQuotes{name: "b"})
	_, err := chain.GetQuote(context.Background(), "ZZZZ")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTickerNotFound)
	assert.ErrorIs(t, err, ErrIncompleteQuote)
}

func TestQuoteChainCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := &stubQuotes{name: "p", quote: &models.SymbolQuote{}}
	_, err := NewQuoteChain(nil, p).GetQuote(ctx, "AAPL")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, p.calls)
}

func TestNewsChainSkipsEmptyTiers(t *testing.T) {
	rss := &stubNews{name: "rss"}
	search := &stubNews{name: "search", err: errors.New("blocked")}
	synthetic := &stubNews{name: "synthetic", items: make([]models.NewsItem, 7)}

	chain := NewNewsChain(nil, rss, search, synthetic)
	items, err := chain.GetNews(context.Background(), "AAPL", 0)
	require.NoError(t, err)
	assert.Len(t, items, DefaultNewsLimit, "result truncated to the limit")
	assert.Equal(t, 1, rss.calls)
	assert.Equal(t, 1, search.calls)
	assert.Equal(t, "rss > search > synthetic", chain.Name())
}

func TestNewsChainStopsAtFirstNonEmpty(t *testing.T) {
	rss := &stubNews{name: "rss", items: []models.NewsItem{{Title: "one"}}}
	synthetic := &stubNews{name: "synthetic", items: []models.NewsItem{{Title: "fake"}}}

	items, err := NewNewsChain(nil, rss, synthetic).GetNews(context.Background(), "AAPL", 5)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "one", items[0].Title)
	assert.Equal(t, 0, synthetic.calls)
}

func TestNewsChainAllEmpty(t *testing.T) {
	_, err := NewNewsChain(nil, &stubNews{name: "a"}).GetNews(context.Background(), "AAPL", 5)
	assert.ErrorIs(t, err, ErrNoNews)
}
