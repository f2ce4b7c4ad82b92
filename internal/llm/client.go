// Package llm abstracts the model providers behind a single completion
// interface, with decorators for caching, rate limiting and retry.
package llm

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/atlas-esg/esia-review/internal/config"
	"github.com/atlas-esg/esia-review/internal/model"
)

// Request is a single completion request.
type Request struct {
	Model       string
	System      string
	Prompt      string
	MaxTokens   int64
	Temperature *float64
}

// Response is the completion result with usage accounting.
type Response struct {
	Text  string
	Model string
	Usage model.TokenUsage
}

// Client is implemented by each model provider.
type Client interface {
	// Complete sends one prompt and returns the model's text response.
	Complete(ctx context.Context, req Request) (*Response, error)
	// Provider returns the provider name for logging.
	Provider() string
}

// New builds the configured provider wrapped with the standard decorator
// stack: resilience innermost, then rate limiting, then response caching so
// cache hits bypass the limiter entirely.
func New(cfg config.LLMConfig) (Client, error) {
	var base Client
	switch cfg.Provider {
	case "anthropic", "":
		if cfg.AnthropicKey == "" {
			return nil, eris.New("llm: anthropic provider requires anthropic_key")
		}
		base = NewAnthropic(cfg.AnthropicKey)
	case "openai":
		if cfg.OpenAIKey == "" {
			return nil, eris.New("llm: openai provider requires openai_key")
		}
		base = NewOpenAI(cfg.OpenAIKey, cfg.OpenAIBaseURL)
	default:
		return nil, eris.Errorf("llm: unknown provider %q", cfg.Provider)
	}

	client := WithResilience(base, cfg.MaxAttempts)
	if cfg.RequestsPerSec > 0 {
		client = WithRateLimit(client, cfg.RequestsPerSec)
	}
	if cfg.CacheTTLMins > 0 {
		client = WithCache(client, cfg.CacheTTLMins)
	}
	return client, nil
}
