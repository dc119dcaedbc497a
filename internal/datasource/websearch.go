package datasource

import (
	"context"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"github.com/seenimoa/finsum/internal/infra"
	"github.com/seenimoa/finsum/pkg/models"
	"github.com/seenimoa/finsum/pkg/utils"
)

// DefaultSearchURL is the Google search endpoint scraped for news results.
const DefaultSearchURL = "https://www.google.com/search"

// Result markup of the news tab. The second pattern covers the older layout
// and is only tried when the first finds nothing.
var (
	searchResultPattern   = regexp.MustCompile(`<a href="(https://[^"]+)" data-jsarwt="[^"]+" class="[^"]+"[^>]*><div[^>]*><div[^>]*><div[^>]*><div[^>]*>(.*?)</div>`)
	searchFallbackPattern = regexp.MustCompile(`<a href="(https://[^"]+)" data-ved="[^"]+" ping="[^"]+"[^>]*>(.*?)</a>`)
)

// WebSearch scrapes headline links from a news search results page.
type WebSearch struct {
	searchURL string
	client    *http.Client
	limiter   *infra.RateLimiter
	sanitizer *bluemonday.Policy
	now       func() time.Time
}

// WebSearchOption configures a WebSearch provider.
type WebSearchOption func(*WebSearch)

// WithSearchURL overrides the search endpoint.
func WithSearchURL(u string) WebSearchOption {
	return func(w *WebSearch) { w.searchURL = u }
}

// WithSearchClient sets the HTTP client.
func WithSearchClient(c *http.Client) WebSearchOption {
	return func(w *WebSearch) { w.client = c }
}

// WithSearchLimiter sets the request pacer.
func WithSearchLimiter(l *infra.RateLimiter) WebSearchOption {
	return func(w *WebSearch) { w.limiter = l }
}

// NewWebSearch creates the search-scrape news provider.
func NewWebSearch(opts ...WebSearchOption) *WebSearch {
	w := &WebSearch{
		searchURL: DefaultSearchURL,
		client:    DefaultHTTPClient,
		limiter:   infra.NewRateLimiter(1, 1),
		sanitizer: bluemonday.StrictPolicy(),
		now:       time.Now,
	}
	for _, o := range opts {
		o(w)
	}
	return w
}

// Name returns the provider name.
func (w *WebSearch) Name() string { return "Google News" }

// GetNews implements NewsProvider.
func (w *WebSearch) GetNews(ctx context.Context, symbol string, limit int) ([]models.NewsItem, error) {
	sym := utils.NormalizeTicker(symbol)
	if limit <= 0 {
		limit = DefaultNewsLimit
	}

	if err := w.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("q", sym+" stock news")
	q.Set("tbm", "nws")
	q.Set("num", strconv.Itoa(limit))

	body, err := doGet(ctx, w.client, w.searchURL+"?"+q.Encode(), map[string]string{
		"Accept": "text/html,application/xhtml+xml",
	})
	if err != nil {
		return nil, fmt.Errorf("news search %s: %w", sym, err)
	}
	defer body.Close()

	page, err := io.ReadAll(io.LimitReader(body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read search page: %w", err)
	}

	items := w.parseResults(sym, string(page), limit)
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoNews, sym)
	}
	return items, nil
}

// parseResults extracts up to limit results from a search page. Links back to
// the search engine itself are skipped but still consume a slot, and the nth
// slot is dated n days ago.
func (w *WebSearch) parseResults(sym, page string, limit int) []models.NewsItem {
	matches := searchResultPattern.FindAllStringSubmatch(page, -1)
	if len(matches) == 0 {
		matches = searchFallbackPattern.FindAllStringSubmatch(page, -1)
	}
	if len(matches) > limit {
		matches = matches[:limit]
	}

	now := w.now()
	var items []models.NewsItem
	for i, m := range matches {
		link := html.UnescapeString(m[1])
		if strings.Contains(link, "google.com") {
			continue
		}
		title := w.cleanTitle(m[2])
		if title == "" {
			continue
		}
		items = append(items, models.NewsItem{
			Title:     title,
			Summary:   fmt.Sprintf("Latest news about %s from %s", sym, hostOf(link)),
			URL:       link,
			Published: now.AddDate(0, 0, -i),
			Source:    w.Name(),
		})
	}
	return items
}

func (w *WebSearch) cleanTitle(raw string) string {
	return strings.TrimSpace(html.UnescapeString(w.sanitizer.Sanitize(raw)))
}

func hostOf(link string) string {
	u, err := url.Parse(link)
	if err != nil || u.Host == "" {
		return link
	}
	return u.Host
}
