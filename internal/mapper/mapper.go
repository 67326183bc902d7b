// Package mapper answers free-text feasibility questions from a site's
// capability facts through tiered resolution: exact key, heuristic, AI
// judgment, then unresolved.
package mapper

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/feasibility-cli/internal/model"
)

const (
	defaultTimeout     = 30 * time.Second
	defaultConcurrency = 4
	maxJudgeFacts      = 20
	maxJudgeReqs       = 10
)

// Mapper resolves questions against a capability store. A Mapper holds no
// per-question state and is safe for concurrent use.
type Mapper struct {
	synonyms    *SynonymTable
	judge       Judge
	timeout     time.Duration
	concurrency int
}

// Option configures a Mapper.
type Option func(*Mapper)

// WithSynonyms replaces the default synonym table.
func WithSynonyms(t *SynonymTable) Option {
	return func(m *Mapper) {
		if t != nil {
			m.synonyms = t
		}
	}
}

// WithJudge enables the AI tier. Without a judge, questions the
// deterministic tiers cannot answer are unresolved.
func WithJudge(j Judge) Option {
	return func(m *Mapper) { m.judge = j }
}

// WithTimeout bounds each judge call.
func WithTimeout(d time.Duration) Option {
	return func(m *Mapper) {
		if d > 0 {
			m.timeout = d
		}
	}
}

// WithConcurrency bounds how many questions MapAll resolves at once.
func WithConcurrency(n int) Option {
	return func(m *Mapper) {
		if n > 0 {
			m.concurrency = n
		}
	}
}

// NewMapper creates a Mapper with the default synonym table and no judge.
func NewMapper(opts ...Option) *Mapper {
	m := &Mapper{
		synonyms:    DefaultSynonyms(),
		timeout:     defaultTimeout,
		concurrency: defaultConcurrency,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Map resolves one question. It never returns an error: judge failures
// and timeouts degrade the question to unresolved.
func (m *Mapper) Map(ctx context.Context, q model.Question, store FactLister, reqs []model.Requirement) model.MappingResult {
	norm := Normalize(q.Text)
	intent := DetectIntent(norm)

	if !isEvaluative(q, norm) {
		if r, ok := m.exactKey(q, norm, intent, store); ok {
			return r
		}
		if value, key, ok := heuristic(intent, norm, store); ok && FitsIntent(intent, value) {
			return model.MappingResult{
				QuestionID:     q.ID,
				Value:          value,
				ConfidenceBand: model.BandMedium,
				Source:         model.SourceHeuristic,
				Rationale:      fmt.Sprintf("%s heuristic from %s", intent, key),
				FieldKey:       key,
				Intent:         string(intent),
			}
		}
	}

	return m.judgeTier(ctx, q, intent, store, reqs)
}

func (m *Mapper) exactKey(q model.Question, norm string, intent Intent, store Resolver) (model.MappingResult, bool) {
	for _, key := range m.synonyms.Lookup(norm) {
		f, ok := store.Resolve(key)
		if !ok || f.Value.IsEmpty() {
			continue
		}
		value := renderFact(f, intent, norm)
		if !FitsIntent(intent, value) {
			continue
		}
		return model.MappingResult{
			QuestionID:     q.ID,
			Value:          value,
			ConfidenceBand: model.BandHigh,
			Source:         model.SourceExactKey,
			Locked:         true,
			Rationale:      "matched " + key,
			FieldKey:       f.Key,
			Intent:         string(intent),
		}, true
	}
	return model.MappingResult{}, false
}

func (m *Mapper) judgeTier(ctx context.Context, q model.Question, intent Intent, store FactLister, reqs []model.Requirement) model.MappingResult {
	if m.judge == nil {
		return withIntent(model.Unresolved(q.ID, "no deterministic match; manual input required"), intent)
	}

	facts := relevantFacts(q.Text, store.Facts(), maxJudgeFacts)
	req := JudgeRequest{
		Question:     q,
		Facts:        facts,
		Requirements: relevantRequirements(q.Text, reqs, maxJudgeReqs),
	}

	cctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	j, err := m.judge.Judge(cctx, req)
	if err != nil {
		zap.L().Warn("mapper: ai judgment failed",
			zap.String("question", q.ID),
			zap.Error(err),
		)
		return withIntent(model.Unresolved(q.ID, "ai judgment unavailable; manual input required"), intent)
	}
	if j == nil || !IsDecisive(j.Answer) {
		zap.L().Debug("mapper: ai judgment not decisive", zap.String("question", q.ID))
		return withIntent(model.Unresolved(q.ID, "ai judgment was not decisive; manual input required"), intent)
	}
	if !FitsIntent(intent, j.Answer) {
		zap.L().Debug("mapper: ai judgment does not fit intent",
			zap.String("question", q.ID),
			zap.String("intent", string(intent)),
		)
		return withIntent(model.Unresolved(q.ID, "ai judgment did not match the expected answer shape"), intent)
	}

	band := model.BandLow
	if verifiable(j, store, facts) {
		band = model.BandMedium
	}
	res := model.MappingResult{
		QuestionID:     q.ID,
		Value:          j.Answer,
		ConfidenceBand: band,
		Source:         model.SourceAIJudgment,
		Rationale:      j.Rationale,
		Intent:         string(intent),
	}
	if len(j.FactKeys) > 0 {
		res.FieldKey = j.FactKeys[0]
	}
	return res
}

// MapAll resolves every question with bounded concurrency. The result has
// one entry per question in input order.
func (m *Mapper) MapAll(ctx context.Context, qs []model.Question, store FactLister, reqs []model.Requirement) []model.MappingResult {
	results := make([]model.MappingResult, len(qs))
	var g errgroup.Group
	g.SetLimit(m.concurrency)
	for i, q := range qs {
		g.Go(func() error {
			results[i] = m.Map(ctx, q, store, reqs)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func withIntent(r model.MappingResult, intent Intent) model.MappingResult {
	r.Intent = string(intent)
	return r
}

// renderFact formats a fact as an answer value. Unitless counts from the
// fact table take the unit the question's intent expects.
func renderFact(f model.CapabilityFact, intent Intent, normalized string) string {
	if f.Unit == "" && f.Value.Kind != model.KindBool {
		if n, ok := f.Value.AsNumber(); ok {
			switch intent {
			case IntentPopulationSize:
				return formatNum(n) + " patients/year"
			case IntentEnrollmentVolume:
				if !strings.Contains(strings.ToLower(f.Key), "per_month") {
					return formatNum(n) + " patients/year"
				}
				if asksAnnual(normalized) {
					return formatNum(n*12) + " patients/year"
				}
				return formatNum(n) + " patients/month"
			}
		}
	}

	var s string
	switch f.Value.Kind {
	case model.KindBool:
		s = yesNo(f.Value.Bool)
	default:
		s = f.Value.String()
	}
	if f.Unit != "" && f.Value.Kind == model.KindNumber {
		s += " " + f.Unit
	}
	return s
}
