package judge

import (
	"context"
	"errors"

	sdk "github.com/anthropics/anthropic-sdk-go"

	"github.com/sells-group/feasibility-cli/internal/cost"
	"github.com/sells-group/feasibility-cli/internal/model"
	"github.com/sells-group/feasibility-cli/internal/resilience"
	"github.com/sells-group/feasibility-cli/pkg/anthropic"
)

type anthropicCompleter struct {
	client   anthropic.Client
	model    string
	cacheTTL string
	calc     *cost.Calculator
}

func newAnthropicCompleter(cfg Config, calc *cost.Calculator) *anthropicCompleter {
	var opts []anthropic.Option
	if cfg.BaseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(cfg.BaseURL))
	}
	// The breaker owns failure handling; one attempt per question.
	opts = append(opts, anthropic.WithMaxRetries(0))
	return &anthropicCompleter{
		client:   anthropic.NewClient(cfg.APIKey, opts...),
		model:    orDefault(cfg.Model, defaultAnthropicModel),
		cacheTTL: cfg.CacheTTL,
		calc:     calc,
	}
}

func (c *anthropicCompleter) Name() string { return "anthropic" }

func (c *anthropicCompleter) Complete(ctx context.Context, p Prompt) (*Completion, error) {
	temp := p.Temperature
	resp, err := c.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       c.model,
		MaxTokens:   int64(p.MaxTokens),
		System:      p.System,
		CacheTTL:    c.cacheTTL,
		Messages:    []anthropic.Message{{Role: "user", Content: p.User}},
		Temperature: &temp,
	})
	if err != nil {
		var apiErr *sdk.Error
		if errors.As(err, &apiErr) {
			return nil, &resilience.StatusError{Err: err, StatusCode: apiErr.StatusCode}
		}
		return nil, err
	}

	usd := c.calc.Tokens("anthropic", c.model, cost.Usage{
		Input:      int(resp.Usage.InputTokens),
		Output:     int(resp.Usage.OutputTokens),
		CacheWrite: int(resp.Usage.CacheCreationInputTokens),
		CacheRead:  int(resp.Usage.CacheReadInputTokens),
	})
	resp.Usage.LogCost(c.model, "judge", usd)
	return &Completion{
		Text:  resp.Text,
		Model: resp.Model,
		Usage: model.TokenUsage{
			InputTokens:  int(resp.Usage.InputTokens + resp.Usage.CacheCreationInputTokens + resp.Usage.CacheReadInputTokens),
			OutputTokens: int(resp.Usage.OutputTokens),
			Calls:        1,
			Cost:         usd,
		},
	}, nil
}
