package datasource

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>Yahoo! Finance: AAPL News</title>
  <item>
    <title>Apple shares climb after earnings beat</title>
    <link>https://finance.yahoo.com/news/apple-earnings-beat.html</link>
    <description>&lt;p&gt;Apple &lt;b&gt;beat&lt;/b&gt; estimates.&lt;/p&gt;</description>
    <pubDate>Tue, 14 Oct 2025 13:30:00 +0000</pubDate>
  </item>
  <item>
    <title>   </title>
    <link>https://finance.yahoo.com/news/blank.html</link>
  </item>
  <item>
    <title>Apple supplier warns on demand</title>
    <link>https://finance.yahoo.com/news/apple-supplier.html</link>
    <description>Demand concerns.</description>
  </item>
  <item>
    <title>Third headline</title>
    <link>https://finance.yahoo.com/news/third.html</link>
  </item>
</channel>
</rss>`

func TestYahooNewsParsesFeed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "AAPL", r.URL.Query().Get("s"))
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(sampleFeed))
	}))
	defer srv.Close()

	fixed := time.Date(2025, 10, 15, 9, 0, 0, 0, time.UTC)
	n := NewYahooNews(WithYahooFeedURL(srv.URL))
	n.now = func() time.Time { return fixed }

	items, err := n.GetNews(context.Background(), "aapl", 2)
	require.NoError(t, err)
	require.Len(t, items, 2, "blank titles are skipped and the limit applies")

	assert.Equal(t, "Apple shares climb after earnings beat", items[0].Title)
	assert.Equal(t, "Apple beat estimates.", items[0].Summary)
	assert.Equal(t, "https://finance.yahoo.com/news/apple-earnings-beat.html", items[0].URL)
	assert.Equal(t, 2025, items[0].Published.Year())
	assert.Equal(t, "Yahoo Finance RSS", items[0].Source)
	assert.Zero(t, items[0].SourceScore)

	assert.Equal(t, "Apple supplier warns on demand", items[1].Title)
	assert.Equal(t, fixed, items[1].Published, "missing publish time falls back to now")
}

func TestYahooNewsEmptyFeed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<rss version="2.0"><channel><title>empty</title></channel></rss>`))
	}))
	defer srv.Close()

	_, err := NewYahooNews(WithYahooFeedURL(srv.URL)).GetNews(context.Background(), "AAPL", 5)
	assert.ErrorIs(t, err, ErrNoNews)
}

func TestYahooNewsServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewYahooNews(WithYahooFeedURL(srv.URL)).GetNews(context.Background(), "AAPL", 5)
	assert.Error(t, err)
}

func TestCleanHTML(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"plain", "plain"},
		{"<p>Hello <b>world</b></p>", "Hello world"},
		{"  <div>spaced</div>  ", "spaced"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, cleanHTML(tt.in), "cleanHTML(%q)", tt.in)
	}
}
