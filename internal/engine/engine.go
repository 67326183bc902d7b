// Package engine runs one feasibility evaluation end to end: requirement
// scoring with gap explanations plus questionnaire autofill, for one
// protocol against one site.
package engine

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/feasibility-cli/internal/capability"
	"github.com/sells-group/feasibility-cli/internal/evaluate"
	"github.com/sells-group/feasibility-cli/internal/judge"
	"github.com/sells-group/feasibility-cli/internal/mapper"
	"github.com/sells-group/feasibility-cli/internal/metrics"
	"github.com/sells-group/feasibility-cli/internal/model"
	"github.com/sells-group/feasibility-cli/internal/scorer"
	"github.com/sells-group/feasibility-cli/internal/store"
)

const defaultBatchConcurrency = 4

// Input is one (protocol, site) pair to evaluate. Site is a snapshot; the
// engine never reads the site again during the run.
type Input struct {
	Site         model.SiteProfile
	ProtocolID   string
	Requirements []model.Requirement
	Questions    []model.Question

	// Overrides are what-if facts layered over the snapshot.
	Overrides map[string]string
}

// Engine wires the evaluation components together. It holds no per-run
// state and is safe for concurrent use.
type Engine struct {
	judge       mapper.Judge
	mapperOpts  []mapper.Option
	store       store.Store
	metrics     *metrics.Metrics
	concurrency int
	now         func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithJudge enables the AI tier for question mapping.
func WithJudge(j mapper.Judge) Option {
	return func(e *Engine) { e.judge = j }
}

// WithMapperOptions passes options through to every run's mapper.
func WithMapperOptions(opts ...mapper.Option) Option {
	return func(e *Engine) { e.mapperOpts = append(e.mapperOpts, opts...) }
}

// WithStore persists every finished evaluation.
func WithStore(s store.Store) Option {
	return func(e *Engine) { e.store = s }
}

// WithMetrics records counters for every finished evaluation.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithBatchConcurrency bounds how many inputs RunBatch evaluates at once.
func WithBatchConcurrency(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

// New creates an Engine. Without WithJudge, questions the deterministic
// tiers cannot answer are unresolved.
func New(opts ...Option) *Engine {
	e := &Engine{
		concurrency: defaultBatchConcurrency,
		now:         func() time.Time { return time.Now().UTC() },
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Run evaluates in. Only structurally malformed input returns an error
// before evaluation; per-requirement and per-question failures are
// contained in the result. A persistence failure returns the complete
// evaluation together with the error.
func (e *Engine) Run(ctx context.Context, in Input) (*model.Evaluation, error) {
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "engine: run")
	}
	if err := validateInput(in); err != nil {
		return nil, err
	}
	reqs, rejected, err := scorer.ValidateRequirements(in.Requirements)
	if err != nil {
		return nil, eris.Wrapf(err, "engine: site %s", in.Site.ID)
	}

	start := time.Now()
	caps := capability.Build(in.Site, in.Overrides)

	verdicts := evaluate.EvaluateAll(reqs, caps)
	score := scorer.Aggregate(reqs, verdicts)
	gaps := evaluate.ExplainAll(reqs, verdicts)

	opts := append([]mapper.Option{}, e.mapperOpts...)
	var meter *judge.Meter
	if e.judge != nil {
		meter = judge.Metered(e.judge)
		opts = append(opts, mapper.WithJudge(meter))
	}
	answers := mapper.Finalize(mapper.NewMapper(opts...).MapAll(ctx, in.Questions, caps, reqs))

	ev := &model.Evaluation{
		ID:         uuid.New().String(),
		SiteID:     in.Site.ID,
		ProtocolID: in.ProtocolID,
		WhatIf:     len(in.Overrides) > 0,
		Overrides:  in.Overrides,
		Score:      score,
		Verdicts:   verdicts,
		Gaps:       gaps,
		Rejected:   rejected,
		Answers:    answers,
		Stats:      mapper.Summarize(answers),
		CreatedAt:  e.now(),
	}
	if meter != nil {
		ev.Usage = meter.Usage()
		total, failed := meter.Requests()
		e.metrics.ObserveJudge(total, failed)
	}
	e.metrics.ObserveEvaluation(ev, time.Since(start).Seconds())

	zap.L().Info("engine: evaluation complete",
		zap.String("evaluation", ev.ID),
		zap.String("site", ev.SiteID),
		zap.String("protocol", ev.ProtocolID),
		zap.Int("overall", score.Overall),
		zap.Bool("disqualified", score.Disqualified),
		zap.Int("requirements", len(reqs)),
		zap.Int("rejected", len(rejected)),
		zap.Int("questions", len(answers)),
		zap.Int("locked", ev.Stats.Locked),
		zap.Bool("what_if", ev.WhatIf),
	)

	if e.store != nil {
		if err := e.store.SaveEvaluation(ctx, ev); err != nil {
			return ev, eris.Wrapf(err, "engine: save evaluation %s", ev.ID)
		}
	}
	return ev, nil
}

// RunBatch evaluates every input concurrently and returns the successful
// evaluations ranked best first. Inputs that fail are reported together in
// the returned error without affecting the others.
func (e *Engine) RunBatch(ctx context.Context, inputs []Input) ([]*model.Evaluation, error) {
	results := make([]*model.Evaluation, len(inputs))
	errs := make([]error, len(inputs))

	var g errgroup.Group
	g.SetLimit(e.concurrency)
	for i, in := range inputs {
		g.Go(func() error {
			ev, err := e.Run(ctx, in)
			results[i] = ev
			if err != nil {
				zap.L().Warn("engine: batch input failed",
					zap.String("site", in.Site.ID),
					zap.String("protocol", in.ProtocolID),
					zap.Error(err),
				)
				errs[i] = eris.Wrapf(err, "site %s", in.Site.ID)
			}
			return nil
		})
	}
	_ = g.Wait()

	evals := make([]*model.Evaluation, 0, len(results))
	for _, ev := range results {
		if ev != nil {
			evals = append(evals, ev)
		}
	}
	scorer.Rank(evals)
	return evals, errors.Join(errs...)
}

func validateInput(in Input) error {
	if strings.TrimSpace(in.Site.ID) == "" {
		return eris.Wrap(model.ErrMalformedInput, "engine: site profile has no id")
	}
	seen := make(map[string]struct{}, len(in.Questions))
	for i, q := range in.Questions {
		id := strings.TrimSpace(q.ID)
		if id == "" {
			return eris.Wrapf(model.ErrMalformedInput, "engine: question at index %d has no id", i)
		}
		if _, ok := seen[id]; ok {
			return eris.Wrapf(model.ErrMalformedInput, "engine: duplicate question id %q", id)
		}
		seen[id] = struct{}{}
	}
	return nil
}
