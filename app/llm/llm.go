// Package llm wraps the remote language-model providers used for relevance
// judging and translation.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrEmptyResponse = errors.New("empty response from model")

type Request struct {
	System      string
	User        string
	MaxTokens   int
	Temperature float32
}

type Response struct {
	Text         string
	Model        string
	InputTokens  int
	OutputTokens int
}

// Completer sends one system+user exchange to a model.
type Completer interface {
	Complete(ctx context.Context, req Request) (Response, error)
}

type Config struct {
	Provider string
	APIKey   string
	Model    string
	BaseURL  string
	Timeout  time.Duration
}

// New creates a Completer for the configured provider.
func New(cfg Config) (Completer, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required for provider %q", cfg.Provider)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	switch strings.ToLower(cfg.Provider) {
	case "openai":
		return NewOpenAIClient(cfg), nil
	case "claude", "anthropic":
		return NewClaudeClient(cfg), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider: %q (valid: claude, openai)", cfg.Provider)
	}
}
