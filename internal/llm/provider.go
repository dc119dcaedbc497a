// Package llm wraps a hosted chat-completion model and builds the article
// summarization and question answering on top of it.
package llm

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ProviderOpenAI names the OpenAI-compatible backend.
const ProviderOpenAI = "openai"

// Common errors returned by completers.
var (
	ErrNoAPIKey     = errors.New("llm: API key not configured")
	ErrRateLimit    = errors.New("llm: rate limit exceeded")
	ErrProviderDown = errors.New("llm: provider unavailable")
	ErrEmptyReply   = errors.New("llm: empty reply")
)

// Role represents the role of a message sender.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message represents a single message in a conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ChatOptions configures a single completion request.
type ChatOptions struct {
	Model       string  `json:"model,omitempty"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
}

// Response is a completed reply with its accounting.
type Response struct {
	Content  string        `json:"content"`
	Model    string        `json:"model"`
	Provider string        `json:"provider"`
	Tokens   int           `json:"tokens"`
	Latency  time.Duration `json:"latency"`
}

// Completer is implemented by every chat backend.
type Completer interface {
	// Name returns the provider identifier.
	Name() string

	// Complete sends the conversation and returns the reply text.
	Complete(ctx context.Context, messages []Message, opts *ChatOptions) (string, error)
}

// NewMessage creates a message with the given role and content.
func NewMessage(role Role, content string) Message {
	return Message{Role: role, Content: content}
}

// SystemMessage creates a system prompt message.
func SystemMessage(content string) Message {
	return NewMessage(RoleSystem, content)
}

// UserMessage creates a user message.
func UserMessage(content string) Message {
	return NewMessage(RoleUser, content)
}

// AssistantMessage creates an assistant message.
func AssistantMessage(content string) Message {
	return NewMessage(RoleAssistant, content)
}

// String returns a human-readable summary of the response.
func (r *Response) String() string {
	truncated := r.Content
	if len(truncated) > 100 {
		truncated = truncated[:100] + "..."
	}
	return fmt.Sprintf("[%s/%s] %q, %d tokens, %v",
		r.Provider, r.Model, truncated, r.Tokens, r.Latency.Round(time.Millisecond))
}
