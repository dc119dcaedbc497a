package llm

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// DefaultOpenAIModel is used when no model is configured.
const DefaultOpenAIModel = "gpt-3.5-turbo"

// OpenAIProvider implements Completer for OpenAI-compatible chat completion APIs.
type OpenAIProvider struct {
	client  *openai.Client
	baseURL string
	model   string
	http    *http.Client
	log     *zap.Logger
}

// OpenAIOption configures the OpenAI provider.
type OpenAIOption func(*OpenAIProvider)

// WithOpenAIBaseURL sets a custom base URL (e.g., for Azure OpenAI or proxies).
func WithOpenAIBaseURL(url string) OpenAIOption {
	return func(p *OpenAIProvider) {
		if url != "" {
			p.baseURL = strings.TrimRight(url, "/")
		}
	}
}

// WithOpenAIModel sets the default model.
func WithOpenAIModel(model string) OpenAIOption {
	return func(p *OpenAIProvider) {
		if model != "" {
			p.model = model
		}
	}
}

// WithOpenAIHTTPClient sets a custom HTTP client.
func WithOpenAIHTTPClient(client *http.Client) OpenAIOption {
	return func(p *OpenAIProvider) { p.http = client }
}

// WithOpenAILogger sets the logger used for per-request debug output.
func WithOpenAILogger(log *zap.Logger) OpenAIOption {
	return func(p *OpenAIProvider) { p.log = log }
}

// NewOpenAIProvider creates an OpenAI provider.
func NewOpenAIProvider(apiKey string, opts ...OpenAIOption) (*OpenAIProvider, error) {
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	p := &OpenAIProvider{
		baseURL: "https://api.openai.com/v1",
		model:   DefaultOpenAIModel,
		http:    &http.Client{Timeout: 60 * time.Second},
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}

	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = p.baseURL
	cfg.HTTPClient = p.http
	p.client = openai.NewClientWithConfig(cfg)
	return p, nil
}

func (p *OpenAIProvider) Name() string  { return ProviderOpenAI }
func (p *OpenAIProvider) Model() string { return p.model }

// Complete sends the conversation and returns the trimmed reply text.
func (p *OpenAIProvider) Complete(ctx context.Context, messages []Message, opts *ChatOptions) (string, error) {
	resp, err := p.Chat(ctx, messages, opts)
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

// Chat sends a chat completion request and returns the full response.
func (p *OpenAIProvider) Chat(ctx context.Context, messages []Message, opts *ChatOptions) (*Response, error) {
	start := time.Now()
	req := p.buildRequest(messages, opts)

	raw, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, p.mapError(ctx, err)
	}
	if len(raw.Choices) == 0 {
		return nil, fmt.Errorf("openai: %w", ErrEmptyReply)
	}

	resp := &Response{
		Content:  strings.TrimSpace(raw.Choices[0].Message.Content),
		Model:    raw.Model,
		Provider: ProviderOpenAI,
		Tokens:   raw.Usage.TotalTokens,
		Latency:  time.Since(start),
	}
	p.log.Debug("chat completion", zap.Stringer("response", resp))
	return resp, nil
}

// ── Helpers ──

func (p *OpenAIProvider) buildRequest(messages []Message, opts *ChatOptions) openai.ChatCompletionRequest {
	req := openai.ChatCompletionRequest{
		Model:    p.model,
		Messages: make([]openai.ChatCompletionMessage, len(messages)),
	}
	for i, m := range messages {
		req.Messages[i] = openai.ChatCompletionMessage{Role: string(m.Role), Content: m.Content}
	}
	if opts == nil {
		return req
	}
	if opts.Model != "" {
		req.Model = opts.Model
	}
	req.Temperature = wireTemperature(opts.Temperature)
	if opts.MaxTokens > 0 {
		req.MaxTokens = opts.MaxTokens
	}
	return req
}

// wireTemperature keeps a requested zero from being dropped by omitempty,
// which would leave the server on its own default.
func wireTemperature(t float64) float32 {
	if t <= 0 {
		return math.SmallestNonzeroFloat32
	}
	return float32(t)
}

func (p *OpenAIProvider) mapError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("openai: %w", ctxErr)
	}

	status := 0
	msg := err.Error()
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status, msg = apiErr.HTTPStatusCode, apiErr.Message
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	default:
		return fmt.Errorf("%w: %v", ErrProviderDown, err)
	}

	switch {
	case status == http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", ErrNoAPIKey, msg)
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", ErrRateLimit, msg)
	case status >= 500:
		return fmt.Errorf("%w: HTTP %d: %s", ErrProviderDown, status, msg)
	}
	return fmt.Errorf("openai: API error (%d): %s", status, msg)
}
