package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
)

// Validation modes, one per command family.
const (
	ModeEvaluate  = "evaluate"
	ModeStore     = "store"
	ModeQuestions = "questions"
)

// Validate checks that the settings required by mode are present and in
// range. All problems are reported together.
func (c *Config) Validate(mode string) error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	switch mode {
	case ModeEvaluate:
		c.validateStore(add)
		if c.Mapper.Concurrency < 1 || c.Mapper.Concurrency > 64 {
			add("mapper.concurrency must be between 1 and 64, got %d", c.Mapper.Concurrency)
		}
		if c.Mapper.TimeoutSecs < 1 {
			add("mapper.timeout_secs must be positive, got %d", c.Mapper.TimeoutSecs)
		}
		if c.Batch.MaxConcurrentSites < 1 || c.Batch.MaxConcurrentSites > 64 {
			add("batch.max_concurrent_sites must be between 1 and 64, got %d", c.Batch.MaxConcurrentSites)
		}
		if c.Judge.Enabled {
			c.validateJudge(add)
		}
	case ModeStore:
		c.validateStore(add)
	case ModeQuestions:
		if c.Notion.Token == "" {
			add("notion.token is required")
		}
		if c.Notion.QuestionDB == "" {
			add("notion.question_db is required")
		}
	default:
		return eris.Errorf("config: unknown validation mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.Errorf("config: invalid for %s: %s", mode, strings.Join(problems, "; "))
	}
	return nil
}

func (c *Config) validateStore(add func(string, ...any)) {
	switch c.Store.Driver {
	case "sqlite", "postgres":
	default:
		add("store.driver must be sqlite or postgres, got %q", c.Store.Driver)
	}
	if c.Store.DatabaseURL == "" {
		add("store.database_url is required")
	}
}

func (c *Config) validateJudge(add func(string, ...any)) {
	if c.Judge.MaxTokens < 1 {
		add("judge.max_tokens must be positive, got %d", c.Judge.MaxTokens)
	}
	if c.Judge.RatePerSecond < 0 {
		add("judge.rate_per_second must not be negative, got %g", c.Judge.RatePerSecond)
	}
	if c.Judge.BreakerThreshold < 1 {
		add("judge.breaker_threshold must be positive, got %d", c.Judge.BreakerThreshold)
	}
	if c.ProviderKey() == "" {
		add("%s api key is required when judge.enabled is true", c.Judge.Provider)
	}
	switch c.Anthropic.CacheTTL {
	case "", "5m", "1h":
	default:
		add("anthropic.cache_ttl must be 5m or 1h, got %q", c.Anthropic.CacheTTL)
	}
}

// ProviderKey returns the API key of the configured judge provider, or ""
// for an unknown provider.
func (c *Config) ProviderKey() string {
	switch strings.ToLower(c.Judge.Provider) {
	case "anthropic", "claude", "":
		return c.Anthropic.Key
	case "openai":
		return c.OpenAI.Key
	case "gemini", "google":
		return c.Gemini.Key
	default:
		return ""
	}
}
