package judge

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/sells-group/feasibility-cli/internal/cost"
	"github.com/sells-group/feasibility-cli/internal/model"
)

type geminiCompleter struct {
	client *genai.Client
	model  string
	calc   *cost.Calculator
}

func newGeminiCompleter(ctx context.Context, cfg Config, calc *cost.Calculator) (*geminiCompleter, error) {
	gc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		gc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, gc)
	if err != nil {
		return nil, eris.Wrap(err, "gemini: create client")
	}
	return &geminiCompleter{
		client: client,
		model:  orDefault(cfg.Model, defaultGeminiModel),
		calc:   calc,
	}, nil
}

func (c *geminiCompleter) Name() string { return "gemini" }

func (c *geminiCompleter) Complete(ctx context.Context, p Prompt) (*Completion, error) {
	gcfg := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr(float32(p.Temperature)),
		MaxOutputTokens:  int32(p.MaxTokens),
		ResponseMIMEType: "application/json",
	}
	if p.System != "" {
		gcfg.SystemInstruction = genai.NewContentFromText(p.System, genai.RoleUser)
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(p.User), gcfg)
	if err != nil {
		return nil, eris.Wrap(err, "gemini: generate content")
	}

	var b strings.Builder
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part == nil || part.Text == "" {
				continue
			}
			b.WriteString(part.Text)
		}
	}
	text := strings.TrimSpace(b.String())
	if text == "" {
		return nil, eris.New("gemini: empty response")
	}

	usage := model.TokenUsage{Calls: 1}
	if resp.UsageMetadata != nil {
		usage.InputTokens = int(resp.UsageMetadata.PromptTokenCount)
		usage.OutputTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}
	usage.Cost = c.calc.Tokens("gemini", c.model, cost.Usage{Input: usage.InputTokens, Output: usage.OutputTokens})
	zap.L().Debug("gemini: judge usage",
		zap.String("model", c.model),
		zap.Int("input_tokens", usage.InputTokens),
		zap.Int("output_tokens", usage.OutputTokens),
	)
	return &Completion{Text: text, Model: c.model, Usage: usage}, nil
}
