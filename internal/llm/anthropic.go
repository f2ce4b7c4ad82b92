package llm

import (
	"context"

	"github.com/atlas-esg/esia-review/internal/model"
	"github.com/atlas-esg/esia-review/pkg/anthropic"
)

// anthropicClient adapts pkg/anthropic to the provider interface. The system
// prompt is sent with a cache breakpoint: it is identical across all chunks
// of a document, so only the first request pays full input price for it.
type anthropicClient struct {
	api anthropic.Client
}

// NewAnthropic creates the Anthropic provider.
func NewAnthropic(apiKey string) Client {
	return &anthropicClient{api: anthropic.NewClient(apiKey)}
}

// NewAnthropicWithAPI creates the provider over an existing API client.
// Used by tests to inject a fake.
func NewAnthropicWithAPI(api anthropic.Client) Client {
	return &anthropicClient{api: api}
}

func (c *anthropicClient) Provider() string { return "anthropic" }

func (c *anthropicClient) Complete(ctx context.Context, req Request) (*Response, error) {
	msgReq := anthropic.MessageRequest{
		Model:       req.Model,
		MaxTokens:   req.MaxTokens,
		Messages:    []anthropic.Message{{Role: "user", Content: req.Prompt}},
		Temperature: req.Temperature,
	}
	if req.System != "" {
		msgReq.System = anthropic.BuildCachedSystemBlocks(req.System)
	}

	resp, err := c.api.CreateMessage(ctx, msgReq)
	if err != nil {
		return nil, err
	}

	resp.Usage.LogCost(resp.Model, "extract")

	return &Response{
		Text:  resp.Text(),
		Model: resp.Model,
		Usage: model.TokenUsage{
			InputTokens:  resp.Usage.InputTokens + resp.Usage.CacheCreationInputTokens + resp.Usage.CacheReadInputTokens,
			OutputTokens: resp.Usage.OutputTokens,
			CostUSD:      resp.Usage.EstimateCost(resp.Model),
		},
	}, nil
}
