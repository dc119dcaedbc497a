package datasource

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"github.com/seenimoa/finsum/internal/infra"
	"github.com/seenimoa/finsum/pkg/models"
	"github.com/seenimoa/finsum/pkg/utils"
)

// DefaultYahooFeedURL is the Yahoo Finance per-symbol headline feed.
const DefaultYahooFeedURL = "https://feeds.finance.yahoo.com/rss/2.0/headline"

// YahooNews reads headlines from the Yahoo Finance RSS feed.
type YahooNews struct {
	feedURL string
	limiter *infra.RateLimiter
	parser  *gofeed.Parser
	now     func() time.Time
}

// YahooNewsOption configures a YahooNews provider.
type YahooNewsOption func(*YahooNews)

// WithYahooFeedURL overrides the feed endpoint.
func WithYahooFeedURL(u string) YahooNewsOption {
	return func(n *YahooNews) { n.feedURL = u }
}

// WithYahooNewsClient sets the HTTP client used by the feed parser.
func WithYahooNewsClient(c *http.Client) YahooNewsOption {
	return func(n *YahooNews) { n.parser.Client = c }
}

// WithYahooNewsLimiter sets the request pacer.
func WithYahooNewsLimiter(l *infra.RateLimiter) YahooNewsOption {
	return func(n *YahooNews) { n.limiter = l }
}

// NewYahooNews creates the RSS news provider.
func NewYahooNews(opts ...YahooNewsOption) *YahooNews {
	parser := gofeed.NewParser()
	parser.UserAgent = DefaultUserAgent
	parser.Client = DefaultHTTPClient

	n := &YahooNews{
		feedURL: DefaultYahooFeedURL,
		limiter: infra.NewRateLimiter(2, 2), // conservative: 2 req/s
		parser:  parser,
		now:     time.Now,
	}
	for _, o := range opts {
		o(n)
	}
	return n
}

// Name returns the provider name.
func (n *YahooNews) Name() string { return "Yahoo Finance RSS" }

// GetNews implements NewsProvider.
func (n *YahooNews) GetNews(ctx context.Context, symbol string, limit int) ([]models.NewsItem, error) {
	sym := utils.NormalizeTicker(symbol)
	if limit <= 0 {
		limit = DefaultNewsLimit
	}

	if err := n.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	feedURL := fmt.Sprintf("%s?s=%s&region=US&lang=en-US", n.feedURL, url.QueryEscape(sym))
	feed, err := n.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("parse RSS for %s: %w", sym, err)
	}

	items := make([]models.NewsItem, 0, limit)
	for _, entry := range feed.Items {
		if len(items) == limit {
			break
		}
		title := strings.TrimSpace(entry.Title)
		if title == "" {
			continue
		}
		items = append(items, models.NewsItem{
			Title:     title,
			Summary:   cleanHTML(entry.Description),
			URL:       entry.Link,
			Published: n.published(entry),
			Source:    n.Name(),
		})
	}

	if len(items) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoNews, sym)
	}
	return items, nil
}

func (n *YahooNews) published(entry *gofeed.Item) time.Time {
	switch {
	case entry.PublishedParsed != nil:
		return *entry.PublishedParsed
	case entry.UpdatedParsed != nil:
		return *entry.UpdatedParsed
	default:
		return n.now()
	}
}

// cleanHTML strips HTML tags from a string using goquery.
func cleanHTML(s string) string {
	if s == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<body>" + s + "</body>"))
	if err != nil {
		return s
	}
	return strings.TrimSpace(doc.Text())
}
