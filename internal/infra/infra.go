// Package infra provides shared infrastructure components used across
// the application: the retrying HTTP client and request pacing.
package infra

import (
	"context"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// --- HTTP client ---

// HTTPOptions configures the outbound HTTP client.
type HTTPOptions struct {
	Timeout      time.Duration
	RetryMax     int
	RetryWaitMin time.Duration // zero keeps the library default
	RetryWaitMax time.Duration
	Logger       *zap.Logger // nil disables retry logging
}

// NewRetryClient returns a retryablehttp client with linear jitter backoff.
// Exhausted retries hand back the last response instead of an error so callers
// can inspect the status themselves.
func NewRetryClient(opts HTTPOptions) *retryablehttp.Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = opts.RetryMax
	rc.HTTPClient.Timeout = opts.Timeout
	rc.Backoff = retryablehttp.LinearJitterBackoff
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	if opts.RetryWaitMin > 0 {
		rc.RetryWaitMin = opts.RetryWaitMin
	}
	if opts.RetryWaitMax > 0 {
		rc.RetryWaitMax = opts.RetryWaitMax
	}
	rc.Logger = nil
	if opts.Logger != nil {
		rc.Logger = LeveledLogger{opts.Logger.Sugar()}
	}
	return rc
}

// NewHTTPClient returns a standard *http.Client whose transport retries,
// for libraries that only accept net/http clients.
func NewHTTPClient(opts HTTPOptions) *http.Client {
	return NewRetryClient(opts).StandardClient()
}

// LeveledLogger adapts zap to retryablehttp.LeveledLogger.
type LeveledLogger struct {
	S *zap.SugaredLogger
}

func (l LeveledLogger) Error(msg string, kv ...interface{}) { l.S.Errorw(msg, kv...) }
func (l LeveledLogger) Warn(msg string, kv ...interface{})  { l.S.Warnw(msg, kv...) }
func (l LeveledLogger) Info(msg string, kv ...interface{})  { l.S.Debugw(msg, kv...) }
func (l LeveledLogger) Debug(msg string, kv ...interface{}) { l.S.Debugw(msg, kv...) }

// --- Rate limiter ---

// RateLimiter paces requests to one upstream.
type RateLimiter struct {
	lim *rate.Limiter
}

// NewRateLimiter allows perSecond requests per second with the given burst.
// perSecond <= 0 disables limiting.
func NewRateLimiter(perSecond float64, burst int) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	limit := rate.Limit(perSecond)
	if perSecond <= 0 {
		limit = rate.Inf
	}
	return &RateLimiter{lim: rate.NewLimiter(limit, burst)}
}

// Wait blocks until a token is available or context is cancelled.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	if rl == nil {
		return nil
	}
	return rl.lim.Wait(ctx)
}
