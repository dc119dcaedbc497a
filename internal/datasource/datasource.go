// Package datasource fetches quotes and headlines for a symbol. Every kind of
// data sits behind an ordered chain of providers ending in a synthetic
// generator, so callers always get a usable value.
package datasource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/seenimoa/finsum/pkg/models"
)

// DefaultNewsLimit is the number of headlines requested per symbol.
const DefaultNewsLimit = 5

// QuoteProvider returns the latest price for a symbol.
type QuoteProvider interface {
	// Name returns the human-readable name of this provider.
	Name() string

	// GetQuote returns a quote with both price and change set, or an error.
	GetQuote(ctx context.Context, symbol string) (*models.SymbolQuote, error)
}

// NewsProvider returns recent headlines for a symbol.
type NewsProvider interface {
	Name() string

	// GetNews returns at most limit items, most recent first.
	GetNews(ctx context.Context, symbol string, limit int) ([]models.NewsItem, error)
}

// --- Sentinel errors ---

// ErrTickerNotFound is returned when a source has no data for a symbol.
var ErrTickerNotFound = errors.New("ticker not found")

// ErrIncompleteQuote is returned when a source answers without price or change.
var ErrIncompleteQuote = errors.New("incomplete quote data")

// ErrNoNews is returned when a source answers with no usable headlines.
var ErrNoNews = errors.New("no news items")

// ErrHTTP wraps an HTTP error with status code.
type ErrHTTP struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *ErrHTTP) Error() string {
	return fmt.Sprintf("HTTP %d %s: %s", e.StatusCode, e.Status, e.Body)
}

// --- Shared HTTP client helpers ---

// DefaultUserAgent is the user agent string used for HTTP requests.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

// DefaultHTTPClient is used by providers constructed without an explicit client.
var DefaultHTTPClient = &http.Client{
	Timeout: 30 * time.Second,
}

// doGet performs a GET request with the given URL and headers, returning the response body.
// Any status other than 200 is reported as *ErrHTTP.
// The caller is responsible for closing the returned ReadCloser.
func doGet(ctx context.Context, client *http.Client, url string, headers map[string]string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", DefaultUserAgent)
	req.Header.Set("Accept", "application/json, text/html, */*")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	if client == nil {
		client = DefaultHTTPClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP GET %s: %w", url, err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, &ErrHTTP{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       string(body),
		}
	}

	return resp.Body, nil
}
