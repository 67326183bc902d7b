// Package judge answers feasibility questions with a large language model.
// It supplies the AI tier of the question mapper: a provider-neutral
// LLMJudge over Anthropic, OpenAI or Gemini, plus caching and metering
// decorators.
package judge

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/feasibility-cli/internal/cost"
	"github.com/sells-group/feasibility-cli/internal/mapper"
	"github.com/sells-group/feasibility-cli/internal/model"
)

// Prompt is a provider-neutral single-turn request.
type Prompt struct {
	System      string
	User        string
	MaxTokens   int
	Temperature float64
}

// Completion is one provider reply.
type Completion struct {
	Text  string
	Model string
	Usage model.TokenUsage
}

// Completer sends a prompt to one LLM provider.
type Completer interface {
	Name() string
	Complete(ctx context.Context, p Prompt) (*Completion, error)
}

// Config selects and tunes a provider.
type Config struct {
	Provider  string // anthropic, openai, gemini
	Model     string
	APIKey    string
	BaseURL   string
	MaxTokens int
	CacheTTL  string // anthropic prompt cache TTL, "5m" or "1h"
	Pricing   cost.Rates

	RatePerSecond    float64
	Burst            int
	BreakerThreshold int
	BreakerCooldown  time.Duration
	MemoTTL          time.Duration
}

const (
	defaultAnthropicModel = "claude-haiku-4-5-20251001"
	defaultOpenAIModel    = "gpt-4o-mini"
	defaultGeminiModel    = "gemini-2.5-flash"
)

// NewCompleter builds the backend named by cfg.Provider.
func NewCompleter(ctx context.Context, cfg Config) (Completer, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, eris.Errorf("judge: %s api key is required", cfg.Provider)
	}
	calc := cost.NewCalculator(cost.DefaultRates().Merge(cfg.Pricing))
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "anthropic", "claude", "":
		return newAnthropicCompleter(cfg, calc), nil
	case "openai":
		return newOpenAICompleter(cfg, calc), nil
	case "gemini", "google":
		return newGeminiCompleter(ctx, cfg, calc)
	default:
		return nil, eris.Errorf("judge: unknown provider %q (supported: anthropic, openai, gemini)", cfg.Provider)
	}
}

// New builds the full judge stack for cfg: backend, rate limit, circuit
// breaker and, when MemoTTL is set, an in-process memo.
func New(ctx context.Context, cfg Config) (mapper.Judge, error) {
	backend, err := NewCompleter(ctx, cfg)
	if err != nil {
		return nil, err
	}
	opts := []Option{WithMaxTokens(cfg.MaxTokens)}
	if cfg.RatePerSecond > 0 {
		opts = append(opts, WithRateLimit(cfg.RatePerSecond, cfg.Burst))
	}
	if cfg.BreakerThreshold > 0 || cfg.BreakerCooldown > 0 {
		opts = append(opts, WithBreaker(cfg.BreakerThreshold, cfg.BreakerCooldown))
	}
	j := NewLLMJudge(backend, opts...)
	if cfg.MemoTTL > 0 {
		return Cached(j, cfg.MemoTTL), nil
	}
	return j, nil
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
