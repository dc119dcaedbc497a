package datasource

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"

	"github.com/seenimoa/finsum/internal/infra"
	"github.com/seenimoa/finsum/pkg/models"
	"github.com/seenimoa/finsum/pkg/utils"
)

// DefaultYFinanceURL is the Yahoo Finance API host.
const DefaultYFinanceURL = "https://query1.finance.yahoo.com"

// YFinance fetches live quotes from the Yahoo Finance v7 quote API.
type YFinance struct {
	baseURL string
	client  *http.Client
	limiter *infra.RateLimiter
}

// YFinanceOption configures a YFinance provider.
type YFinanceOption func(*YFinance)

// WithYFinanceBaseURL points the provider at another host (used by tests).
func WithYFinanceBaseURL(u string) YFinanceOption {
	return func(y *YFinance) { y.baseURL = strings.TrimRight(u, "/") }
}

// WithYFinanceClient sets the HTTP client.
func WithYFinanceClient(c *http.Client) YFinanceOption {
	return func(y *YFinance) { y.client = c }
}

// WithYFinanceLimiter sets the request pacer.
func WithYFinanceLimiter(l *infra.RateLimiter) YFinanceOption {
	return func(y *YFinance) { y.limiter = l }
}

// NewYFinance creates a new Yahoo Finance quote provider.
func NewYFinance(opts ...YFinanceOption) *YFinance {
	y := &YFinance{
		baseURL: DefaultYFinanceURL,
		client:  DefaultHTTPClient,
		limiter: infra.NewRateLimiter(5, 5),
	}
	for _, o := range opts {
		o(y)
	}
	return y
}

// Name returns the provider name.
func (y *YFinance) Name() string { return "Yahoo Finance" }

// --- Yahoo Finance v7 API types ---

type yfQuoteResponse struct {
	QuoteResponse struct {
		Result []yfQuoteResult `json:"result"`
		Error  *yfError        `json:"error"`
	} `json:"quoteResponse"`
}

// Pointers distinguish a missing field from a genuine zero.
type yfQuoteResult struct {
	Symbol                     string   `json:"symbol"`
	ShortName                  string   `json:"shortName"`
	RegularMarketPrice         *float64 `json:"regularMarketPrice"`
	RegularMarketChange        *float64 `json:"regularMarketChange"`
	RegularMarketPreviousClose *float64 `json:"regularMarketPreviousClose"`
	RegularMarketChangePercent *float64 `json:"regularMarketChangePercent"` // already in percent
}

// changePct returns the daily change in percent. The fraction derived from
// change and previous close is preferred; the reported percent is used as-is
// when either is missing.
func (r yfQuoteResult) changePct() (float64, bool) {
	if r.RegularMarketChange != nil && r.RegularMarketPreviousClose != nil && *r.RegularMarketPreviousClose != 0 {
		return NormalizeChangePct(*r.RegularMarketChange / *r.RegularMarketPreviousClose), true
	}
	if r.RegularMarketChangePercent != nil {
		return *r.RegularMarketChangePercent, true
	}
	return 0, false
}

type yfError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// GetQuote returns the latest quote from Yahoo Finance.
func (y *YFinance) GetQuote(ctx context.Context, symbol string) (*models.SymbolQuote, error) {
	sym := utils.NormalizeTicker(symbol)

	if err := y.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	u := fmt.Sprintf("%s/v7/finance/quote?symbols=%s", y.baseURL, url.QueryEscape(sym))
	body, err := doGet(ctx, y.client, u, map[string]string{
		"Accept": "application/json",
	})
	if err != nil {
		return nil, fmt.Errorf("yfinance quote %s: %w", sym, err)
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var resp yfQuoteResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("parse yfinance quote: %w", err)
	}

	if resp.QuoteResponse.Error != nil {
		return nil, fmt.Errorf("yfinance API error: %s", resp.QuoteResponse.Error.Description)
	}
	if len(resp.QuoteResponse.Result) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrTickerNotFound, sym)
	}

	r := resp.QuoteResponse.Result[0]
	change, ok := r.changePct()
	if r.RegularMarketPrice == nil || !ok {
		return nil, fmt.Errorf("%w: %s", ErrIncompleteQuote, sym)
	}
	price := *r.RegularMarketPrice
	if !isFinite(price) || !isFinite(change) {
		return nil, fmt.Errorf("%w: %s has non-finite values", ErrIncompleteQuote, sym)
	}

	return &models.SymbolQuote{
		Symbol:    sym,
		Price:     price,
		ChangePct: change,
		Source:    y.Name(),
	}, nil
}

// NormalizeChangePct converts a fractional change (0.0123) into percent
// (1.23). Values with magnitude of 10 or more are taken to be percent already.
func NormalizeChangePct(c float64) float64 {
	if math.Abs(c) < 10 {
		return c * 100
	}
	return c
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
