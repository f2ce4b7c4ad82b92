package llm

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/sashabaranov/go-openai"

	"github.com/atlas-esg/esia-review/internal/model"
)

// openaiPricing holds per-million-token pricing for known OpenAI models.
var openaiPricing = map[string][2]float64{
	"gpt-4o-mini": {0.15, 0.60},
	"gpt-4o":      {2.50, 10.00},
}

// openaiClient implements the provider interface over go-openai.
type openaiClient struct {
	client *openai.Client
}

// NewOpenAI creates the OpenAI provider. baseURL overrides the default
// endpoint, which also covers OpenAI-compatible local servers.
func NewOpenAI(apiKey, baseURL string) Client {
	clientConfig := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		clientConfig.BaseURL = baseURL
	}
	return &openaiClient{client: openai.NewClientWithConfig(clientConfig)}
}

func (c *openaiClient) Provider() string { return "openai" }

func (c *openaiClient) Complete(ctx context.Context, req Request) (*Response, error) {
	chatReq := openai.ChatCompletionRequest{
		Model: req.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.System},
			{Role: openai.ChatMessageRoleUser, Content: req.Prompt},
		},
		MaxTokens: int(req.MaxTokens),
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}
	if req.Temperature != nil {
		chatReq.Temperature = float32(*req.Temperature)
	}

	resp, err := c.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return nil, eris.Wrap(err, "openai: chat completion")
	}
	if len(resp.Choices) == 0 {
		return nil, eris.New("openai: empty choices in response")
	}

	usage := model.TokenUsage{
		InputTokens:  int64(resp.Usage.PromptTokens),
		OutputTokens: int64(resp.Usage.CompletionTokens),
	}
	if pricing, ok := openaiPricing[resp.Model]; ok {
		usage.CostUSD = float64(resp.Usage.PromptTokens)/1e6*pricing[0] +
			float64(resp.Usage.CompletionTokens)/1e6*pricing[1]
	}

	return &Response{
		Text:  resp.Choices[0].Message.Content,
		Model: resp.Model,
		Usage: usage,
	}, nil
}
