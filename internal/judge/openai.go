package judge

import (
	"context"
	"errors"

	"github.com/rotisserie/eris"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/sells-group/feasibility-cli/internal/cost"
	"github.com/sells-group/feasibility-cli/internal/model"
	"github.com/sells-group/feasibility-cli/internal/resilience"
)

type openAICompleter struct {
	client *openai.Client
	model  string
	calc   *cost.Calculator
}

func newOpenAICompleter(cfg Config, calc *cost.Calculator) *openAICompleter {
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	return &openAICompleter{
		client: openai.NewClientWithConfig(oc),
		model:  orDefault(cfg.Model, defaultOpenAIModel),
		calc:   calc,
	}
}

func (c *openAICompleter) Name() string { return "openai" }

func (c *openAICompleter) Complete(ctx context.Context, p Prompt) (*Completion, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: p.System},
			{Role: openai.ChatMessageRoleUser, Content: p.User},
		},
		MaxTokens:   p.MaxTokens,
		Temperature: float32(p.Temperature),
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return nil, &resilience.StatusError{Err: err, StatusCode: apiErr.HTTPStatusCode}
		}
		return nil, eris.Wrap(err, "openai: create chat completion")
	}
	if len(resp.Choices) == 0 {
		return nil, eris.New("openai: no choices in response")
	}

	zap.L().Debug("openai: judge usage",
		zap.String("model", resp.Model),
		zap.Int("input_tokens", resp.Usage.PromptTokens),
		zap.Int("output_tokens", resp.Usage.CompletionTokens),
	)
	return &Completion{
		Text:  resp.Choices[0].Message.Content,
		Model: resp.Model,
		Usage: model.TokenUsage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
			Calls:        1,
			Cost: c.calc.Tokens("openai", resp.Model, cost.Usage{
				Input:  resp.Usage.PromptTokens,
				Output: resp.Usage.CompletionTokens,
			}),
		},
	}, nil
}
