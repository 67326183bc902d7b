// Package cost prices LLM token usage per provider and model.
package cost

import "strings"

// Rates holds per-provider pricing configuration, keyed by model name.
type Rates struct {
	Anthropic map[string]ModelRate `yaml:"anthropic" mapstructure:"anthropic"`
	OpenAI    map[string]ModelRate `yaml:"openai" mapstructure:"openai"`
	Gemini    map[string]ModelRate `yaml:"gemini" mapstructure:"gemini"`
}

// ModelRate holds per-model token pricing (per million tokens).
type ModelRate struct {
	Input         float64 `yaml:"input" mapstructure:"input"`
	Output        float64 `yaml:"output" mapstructure:"output"`
	CacheWriteMul float64 `yaml:"cache_write_mul" mapstructure:"cache_write_mul"`
	CacheReadMul  float64 `yaml:"cache_read_mul" mapstructure:"cache_read_mul"`
}

// Usage is the token count of one call.
type Usage struct {
	Input      int
	Output     int
	CacheWrite int
	CacheRead  int
}

// Calculator computes costs for API usage.
type Calculator struct {
	rates Rates
}

// NewCalculator creates a Calculator with the given rates.
func NewCalculator(rates Rates) *Calculator {
	return &Calculator{rates: rates}
}

// Tokens returns the USD cost of u on provider/model. Unknown providers
// and models cost 0. A dated model name such as "gpt-4o-mini-2024-07-18"
// falls back to the longest configured prefix.
func (c *Calculator) Tokens(provider, model string, u Usage) float64 {
	if c == nil {
		return 0
	}
	rate, ok := lookup(c.table(provider), model)
	if !ok {
		return 0
	}

	inCost := (float64(u.Input) / 1e6) * rate.Input
	outCost := (float64(u.Output) / 1e6) * rate.Output
	cwCost := (float64(u.CacheWrite) / 1e6) * rate.Input * rate.CacheWriteMul
	crCost := (float64(u.CacheRead) / 1e6) * rate.Input * rate.CacheReadMul

	return inCost + outCost + cwCost + crCost
}

func (c *Calculator) table(provider string) map[string]ModelRate {
	switch strings.ToLower(provider) {
	case "anthropic", "claude", "":
		return c.rates.Anthropic
	case "openai":
		return c.rates.OpenAI
	case "gemini", "google":
		return c.rates.Gemini
	default:
		return nil
	}
}

func lookup(table map[string]ModelRate, model string) (ModelRate, bool) {
	if rate, ok := table[model]; ok {
		return rate, true
	}
	var best string
	for name := range table {
		if strings.HasPrefix(model, name) && len(name) > len(best) {
			best = name
		}
	}
	if best == "" {
		return ModelRate{}, false
	}
	return table[best], true
}

// Merge returns r with every model in overrides added or replaced.
func (r Rates) Merge(overrides Rates) Rates {
	return Rates{
		Anthropic: mergeTable(r.Anthropic, overrides.Anthropic),
		OpenAI:    mergeTable(r.OpenAI, overrides.OpenAI),
		Gemini:    mergeTable(r.Gemini, overrides.Gemini),
	}
}

func mergeTable(base, over map[string]ModelRate) map[string]ModelRate {
	out := make(map[string]ModelRate, len(base)+len(over))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range over {
		out[k] = v
	}
	return out
}

// DefaultRates returns the default pricing rates.
func DefaultRates() Rates {
	return Rates{
		Anthropic: map[string]ModelRate{
			"claude-haiku-4-5-20251001": {
				Input: 1.00, Output: 5.00,
				CacheWriteMul: 1.25, CacheReadMul: 0.1,
			},
			"claude-sonnet-4-5-20250929": {
				Input: 3.00, Output: 15.00,
				CacheWriteMul: 1.25, CacheReadMul: 0.1,
			},
			"claude-opus-4-6": {
				Input: 15.00, Output: 75.00,
				CacheWriteMul: 1.25, CacheReadMul: 0.1,
			},
		},
		OpenAI: map[string]ModelRate{
			"gpt-4o-mini":  {Input: 0.15, Output: 0.60, CacheReadMul: 0.5},
			"gpt-4o":       {Input: 2.50, Output: 10.00, CacheReadMul: 0.5},
			"gpt-4.1-mini": {Input: 0.40, Output: 1.60, CacheReadMul: 0.25},
		},
		Gemini: map[string]ModelRate{
			"gemini-2.5-flash": {Input: 0.30, Output: 2.50},
			"gemini-2.5-pro":   {Input: 1.25, Output: 10.00},
		},
	}
}
