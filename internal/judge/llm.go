package judge

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/feasibility-cli/internal/mapper"
	"github.com/sells-group/feasibility-cli/internal/model"
	"github.com/sells-group/feasibility-cli/internal/resilience"
)

const defaultMaxTokens = 512

const systemPrompt = `You are a clinical trial feasibility assessor completing a site questionnaire.
Answer only from the site facts provided. Do not invent numbers, equipment or staff.
Keep the answer short: a number, Yes/No, a name, or a brief phrase.
If the facts do not support an answer, set "answer" to "unknown".
Respond with a single JSON object and nothing else:
{"answer": "...", "rationale": "one sentence citing the facts used", "fact_keys": ["key", "..."]}`

// LLMJudge implements mapper.Judge over a Completer. Each Judge call makes
// at most one provider request.
type LLMJudge struct {
	backend   Completer
	limiter   *rate.Limiter
	breaker   *resilience.Breaker
	maxTokens int
}

// Option configures an LLMJudge.
type Option func(*LLMJudge)

// WithRateLimit caps provider requests per second.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(j *LLMJudge) {
		if burst <= 0 {
			burst = 1
		}
		j.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// WithBreaker replaces the default circuit breaker settings.
func WithBreaker(threshold int, cooldown time.Duration) Option {
	return func(j *LLMJudge) {
		j.breaker = resilience.NewBreaker(resilience.BreakerConfig{
			Name:      j.backend.Name(),
			Threshold: threshold,
			Cooldown:  cooldown,
		})
	}
}

// WithMaxTokens bounds the reply length.
func WithMaxTokens(n int) Option {
	return func(j *LLMJudge) {
		if n > 0 {
			j.maxTokens = n
		}
	}
}

// NewLLMJudge wraps backend. Without options requests are unthrottled and
// guarded by a breaker that opens after five consecutive failures.
func NewLLMJudge(backend Completer, opts ...Option) *LLMJudge {
	j := &LLMJudge{
		backend:   backend,
		limiter:   rate.NewLimiter(rate.Inf, 1),
		breaker:   resilience.NewBreaker(resilience.BreakerConfig{Name: backend.Name()}),
		maxTokens: defaultMaxTokens,
	}
	for _, o := range opts {
		o(j)
	}
	return j
}

// Judge asks the provider for an answer. Every failure wraps
// model.ErrAIProvider.
func (j *LLMJudge) Judge(ctx context.Context, req mapper.JudgeRequest) (*mapper.Judgment, error) {
	if err := j.limiter.Wait(ctx); err != nil {
		return nil, j.fail(req, err)
	}

	prompt := Prompt{
		System:    systemPrompt,
		User:      BuildPrompt(req),
		MaxTokens: j.maxTokens,
	}
	c, err := resilience.Do(ctx, j.breaker, func(ctx context.Context) (*Completion, error) {
		return j.backend.Complete(ctx, prompt)
	})
	if err != nil {
		return nil, j.fail(req, err)
	}

	out, err := parseReply(c.Text)
	if err != nil {
		return nil, j.fail(req, err)
	}
	out.Usage = c.Usage
	return out, nil
}

func (j *LLMJudge) fail(req mapper.JudgeRequest, err error) error {
	zap.L().Debug("judge: provider call failed",
		zap.String("provider", j.backend.Name()),
		zap.String("question", req.Question.ID),
		zap.Error(err),
	)
	return eris.Wrapf(model.ErrAIProvider, "judge: %s: question %s: %v", j.backend.Name(), req.Question.ID, err)
}

// BuildPrompt renders the user turn for one question.
func BuildPrompt(req mapper.JudgeRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Question: %s\n", strings.TrimSpace(req.Question.Text))
	if req.Question.Section != "" {
		fmt.Fprintf(&b, "Questionnaire section: %s\n", req.Question.Section)
	}
	if !req.Question.IsObjective {
		b.WriteString("This question asks for a judgment; base it on the facts below.\n")
	}

	b.WriteString("\nProtocol requirements:\n")
	if len(req.Requirements) == 0 {
		b.WriteString("- none relevant\n")
	}
	for _, r := range req.Requirements {
		fmt.Fprintf(&b, "- [%s] %s %s %s", r.Criticality, r.Key, r.Operator.Symbol(), r.Value.String())
		if r.Unit != "" {
			fmt.Fprintf(&b, " %s", r.Unit)
		}
		if r.SourceText != "" {
			fmt.Fprintf(&b, " (%q)", r.SourceText)
		}
		b.WriteString("\n")
	}

	b.WriteString("\nSite facts on file:\n")
	if len(req.Facts) == 0 {
		b.WriteString("- none\n")
	}
	for _, f := range req.Facts {
		fmt.Fprintf(&b, "- %s: %s", f.Key, f.Value.String())
		if f.Unit != "" {
			fmt.Fprintf(&b, " %s", f.Unit)
		}
		b.WriteString("\n")
	}
	return b.String()
}

type reply struct {
	Answer    any      `json:"answer"`
	Rationale string   `json:"rationale"`
	FactKeys  []string `json:"fact_keys"`
}

func parseReply(text string) (*mapper.Judgment, error) {
	var r reply
	if err := json.Unmarshal([]byte(cleanJSON(text)), &r); err != nil {
		return nil, eris.Wrap(err, "judge: parse reply")
	}
	return &mapper.Judgment{
		Answer:    answerString(r.Answer),
		Rationale: strings.TrimSpace(r.Rationale),
		FactKeys:  r.FactKeys,
	}, nil
}

func answerString(v any) string {
	switch a := v.(type) {
	case string:
		return strings.TrimSpace(a)
	case float64:
		return strconv.FormatFloat(a, 'f', -1, 64)
	case bool:
		if a {
			return "Yes"
		}
		return "No"
	default:
		return ""
	}
}

// cleanJSON strips markdown fences and extracts the JSON object.
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}
	return strings.TrimSpace(text)
}
