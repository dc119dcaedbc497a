package datasource

import (
	"context"
	"math"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seeded() *rand.Rand { return rand.New(rand.NewPCG(42, 7)) }

func TestSyntheticQuoteWithinJitter(t *testing.T) {
	gen := NewSyntheticQuotes(seeded())
	for _, sym := range []string{"AAPL", "NVDA", "XRP", "UNLISTED"} {
		base := ReferencePrice(sym)
		for i := 0; i < 200; i++ {
			q, err := gen.GetQuote(context.Background(), sym)
			require.NoError(t, err)
			// rounding to cents may add up to half a cent
			assert.LessOrEqual(t, math.Abs(q.Price-base), base*0.03+0.005, "%s price %v", sym, q.Price)
			assert.LessOrEqual(t, math.Abs(q.ChangePct), 2.5)
			assert.True(t, q.Synthetic)
			assert.Equal(t, "synthetic", q.Source)
			assert.InDelta(t, math.Round(q.Price*100)/100, q.Price, 1e-9)
		}
	}
}

func TestReferencePrice(t *testing.T) {
	assert.Equal(t, 175.0, ReferencePrice("AAPL"))
	assert.Equal(t, 0.5, ReferencePrice("xrp"))
	assert.Equal(t, 100.0, ReferencePrice("ZZZZ"))
}

func TestSyntheticNewsKnownSymbol(t *testing.T) {
	items, err := NewSyntheticNews(seeded()).GetNews(context.Background(), "AAPL", 5)
	require.NoError(t, err)
	require.Len(t, items, 5)

	assert.Equal(t, "AAPL Announces New iPhone Model", items[0].Title)
	assert.Equal(t, "https://www.macrumors.com/", items[0].URL)
	assert.Equal(t, "https://finance.yahoo.com/quote/AAPL/", items[4].URL)
	for i, it := range items {
		assert.True(t, it.Synthetic)
		assert.GreaterOrEqual(t, it.SourceScore, -1.0)
		assert.LessOrEqual(t, it.SourceScore, 1.0)
		assert.Contains(t, it.Summary, "about AAPL relevant to investors")
		if i > 0 {
			assert.True(t, it.Published.Before(items[i-1].Published), "items are newest first")
		}
	}
	assert.InDelta(t, 0.6, items[0].SourceScore, 0.1+1e-9)
}

func TestSyntheticNewsGenericSymbol(t *testing.T) {
	items, err := NewSyntheticNews(seeded()).GetNews(context.Background(), "BAC", 10)
	require.NoError(t, err)
	require.Len(t, items, 5, "never more than five items")
	assert.Equal(t, "BAC Beats Earnings Expectations", items[0].Title)
	assert.Equal(t, "https://finance.yahoo.com/quote/BAC/", items[0].URL)
	assert.Equal(t, "https://www.marketwatch.com/investing/stock/bac", items[3].URL)
}

func TestSyntheticNewsHonoursSmallLimit(t *testing.T) {
	items, err := NewSyntheticNews(seeded()).GetNews(context.Background(), "TSLA", 2)
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestCuratedURLs(t *testing.T) {
	for _, sym := range []string{"AAPL", "GOOGL", "MSFT", "TSLA", "NVDA", "AMZN", "META", "NFLX", "XRP"} {
		urls := CuratedURLs(sym)
		require.NotEmpty(t, urls, sym)
		for _, u := range urls {
			assert.True(t, strings.HasPrefix(u, "https://"), u)
		}
	}
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 1.0, clamp(1.07, -1, 1))
	assert.Equal(t, -1.0, clamp(-3, -1, 1))
	assert.Equal(t, 0.25, clamp(0.25, -1, 1))
}
