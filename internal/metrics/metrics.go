// Package metrics records evaluation and judge counters in a private
// Prometheus registry. CLI runs dump it to a textfile on exit.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rotisserie/eris"

	"github.com/sells-group/feasibility-cli/internal/model"
)

// Metrics holds the feasibility counters. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	registry *prometheus.Registry

	evaluations *prometheus.CounterVec
	verdicts    *prometheus.CounterVec
	mappings    *prometheus.CounterVec
	rejected    prometheus.Counter
	judgeCalls  *prometheus.CounterVec
	judgeTokens *prometheus.CounterVec
	duration    prometheus.Histogram
}

// New registers the feasibility collectors in a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		registry: reg,
		evaluations: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "feasibility_evaluations_total",
				Help: "Evaluations completed, by disqualification.",
			},
			[]string{"disqualified"},
		),
		verdicts: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "feasibility_verdicts_total",
				Help: "Requirement verdicts, by outcome.",
			},
			[]string{"outcome"},
		),
		mappings: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "feasibility_mappings_total",
				Help: "Question mappings, by resolution tier and confidence band.",
			},
			[]string{"source", "band"},
		),
		rejected: f.NewCounter(prometheus.CounterOpts{
			Name: "feasibility_rejected_requirements_total",
			Help: "Malformed requirements excluded from scoring.",
		}),
		judgeCalls: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "feasibility_judge_calls_total",
				Help: "AI judge calls, by result.",
			},
			[]string{"result"},
		),
		judgeTokens: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "feasibility_judge_tokens_total",
				Help: "AI judge tokens, by direction.",
			},
			[]string{"direction"},
		),
		duration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "feasibility_evaluation_duration_seconds",
			Help:    "Wall time of one evaluation.",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
		}),
	}
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveEvaluation counts one finished evaluation.
func (m *Metrics) ObserveEvaluation(ev *model.Evaluation, seconds float64) {
	if m == nil || ev == nil {
		return
	}
	disq := "false"
	if ev.Score.Disqualified {
		disq = "true"
	}
	m.evaluations.WithLabelValues(disq).Inc()
	for _, v := range ev.Verdicts {
		m.verdicts.WithLabelValues(string(v.Outcome)).Inc()
	}
	for _, a := range ev.Answers {
		m.mappings.WithLabelValues(string(a.Source), string(a.ConfidenceBand)).Inc()
	}
	m.rejected.Add(float64(len(ev.Rejected)))
	m.judgeTokens.WithLabelValues("input").Add(float64(ev.Usage.InputTokens))
	m.judgeTokens.WithLabelValues("output").Add(float64(ev.Usage.OutputTokens))
	m.duration.Observe(seconds)
}

// ObserveJudge counts judge calls made during one evaluation.
func (m *Metrics) ObserveJudge(total, failed int) {
	if m == nil {
		return
	}
	m.judgeCalls.WithLabelValues("ok").Add(float64(total - failed))
	m.judgeCalls.WithLabelValues("error").Add(float64(failed))
}

// WriteFile writes the registry in the text exposition format, suitable
// for the node_exporter textfile collector.
func (m *Metrics) WriteFile(path string) error {
	if m == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return eris.Wrapf(err, "metrics: write %s", path)
	}
	return nil
}
