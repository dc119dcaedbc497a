package llm

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"go.uber.org/zap"

	"github.com/seenimoa/finsum/internal/cache"
	"github.com/seenimoa/finsum/pkg/models"
)

// NoContentSummary is returned for blank articles without calling the model.
const NoContentSummary = "(No content to summarize.)"

// UserTextTitle is the title used for articles pasted in by a user.
const UserTextTitle = "User provided text"

// DefaultSummaryTimeout bounds one shared summary computation.
const DefaultSummaryTimeout = 2 * time.Minute

// Default sampling temperatures.
const (
	DefaultSummaryTemperature = 0.2
	DefaultAnswerTemperature  = 0.0
)

var htmlTag = regexp.MustCompile(`(?i)<(p|div|br|h[1-6]|ul|ol|li|a|span|article|section|table|strong|em|b|i)[\s>/]`)

// Engine summarizes articles and answers questions about them. Failures are
// returned inline as text so callers can render them next to the article.
type Engine struct {
	completer   Completer
	summaries   *cache.SummaryCache
	log         *zap.Logger
	summaryOpts ChatOptions
	answerOpts  ChatOptions
	converter   *md.Converter
	timeout     time.Duration
}

// EngineOption configures the engine.
type EngineOption func(*Engine)

// WithTemperatures sets the summary and answer temperatures.
func WithTemperatures(summary, answer float64) EngineOption {
	return func(e *Engine) {
		e.summaryOpts.Temperature = summary
		e.answerOpts.Temperature = answer
	}
}

// WithMaxTokens caps reply length. Zero leaves the provider default.
func WithMaxTokens(n int) EngineOption {
	return func(e *Engine) {
		e.summaryOpts.MaxTokens = n
		e.answerOpts.MaxTokens = n
	}
}

// WithSummaryTimeout bounds a summary computation. It applies even when the
// caller that started it has gone away.
func WithSummaryTimeout(d time.Duration) EngineOption {
	return func(e *Engine) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithEngineLogger sets the logger.
func WithEngineLogger(log *zap.Logger) EngineOption {
	return func(e *Engine) { e.log = log }
}

// NewEngine creates an engine. A nil completer is allowed; every call then
// reports ErrNoAPIKey inline. A nil cache gets an unbounded one.
func NewEngine(c Completer, summaries *cache.SummaryCache, opts ...EngineOption) *Engine {
	if summaries == nil {
		summaries = cache.NewSummaryCache(0)
	}
	e := &Engine{
		completer:   c,
		summaries:   summaries,
		log:         zap.NewNop(),
		summaryOpts: ChatOptions{Temperature: DefaultSummaryTemperature},
		answerOpts:  ChatOptions{Temperature: DefaultAnswerTemperature},
		converter:   md.NewConverter("", true, nil),
		timeout:     DefaultSummaryTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Available reports whether a model backend is configured.
func (e *Engine) Available() bool { return e.completer != nil }

// Summarize returns a bullet-point summary of the article. Successful
// summaries are cached by title and raw content.
func (e *Engine) Summarize(ctx context.Context, title, content string) string {
	if strings.TrimSpace(content) == "" {
		return NoContentSummary
	}

	key := cache.ContentKey(title, content)
	// The computation is shared by concurrent callers and outlives any one of them.
	summary, err := e.summaries.GetOrCompute(ctx, key, func() (string, error) {
		cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.timeout)
		defer cancel()
		return e.complete(cctx, summaryMessages(title, e.toMarkdown(content)), &e.summaryOpts)
	})
	if err != nil {
		e.log.Warn("summarize failed", zap.String("title", title), zap.Error(err))
		return fmt.Sprintf("*(Error summarizing: %v)*", err)
	}
	return summary
}

// Answer answers question using only the article text. Answers are not cached.
func (e *Engine) Answer(ctx context.Context, article, question string) string {
	ans, err := e.complete(ctx, answerMessages(e.toMarkdown(article), question), &e.answerOpts)
	if err != nil {
		e.log.Warn("question answering failed", zap.Error(err))
		return fmt.Sprintf("*(Error in Q&A: %v)*", err)
	}
	return ans
}

// AnalyzeText summarizes user-provided text and answers question when one is given.
func (e *Engine) AnalyzeText(ctx context.Context, article, question string) models.ArticleResult {
	res := models.ArticleResult{Summary: e.Summarize(ctx, UserTextTitle, article)}
	if q := strings.TrimSpace(question); q != "" {
		res.Question = q
		res.Answer = e.Answer(ctx, article, q)
	}
	return res
}

func (e *Engine) complete(ctx context.Context, msgs []Message, opts *ChatOptions) (string, error) {
	if e.completer == nil {
		return "", ErrNoAPIKey
	}
	o := *opts
	return e.completer.Complete(ctx, msgs, &o)
}

// toMarkdown converts HTML markup to Markdown. Plain text passes through.
func (e *Engine) toMarkdown(content string) string {
	if !htmlTag.MatchString(content) {
		return content
	}
	out, err := e.converter.ConvertString(content)
	if err != nil || strings.TrimSpace(out) == "" {
		return content
	}
	return out
}
