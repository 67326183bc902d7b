package judge

import (
	"context"
	"sync"

	"github.com/sells-group/feasibility-cli/internal/mapper"
	"github.com/sells-group/feasibility-cli/internal/model"
)

// Meter counts calls, failures and token usage flowing through a judge.
// Create one per run.
type Meter struct {
	next mapper.Judge

	mu       sync.Mutex
	usage    model.TokenUsage
	requests int
	failures int
}

// Metered wraps next.
func Metered(next mapper.Judge) *Meter {
	return &Meter{next: next}
}

// Judge forwards to the wrapped judge and records the outcome.
func (m *Meter) Judge(ctx context.Context, req mapper.JudgeRequest) (*mapper.Judgment, error) {
	j, err := m.next.Judge(ctx, req)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests++
	if err != nil {
		m.failures++
		return nil, err
	}
	if j != nil {
		m.usage.Add(j.Usage)
	}
	return j, nil
}

// Usage returns the accumulated token usage.
func (m *Meter) Usage() model.TokenUsage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.usage
}

// Requests returns how many judgments were asked for, and how many failed.
func (m *Meter) Requests() (total, failed int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requests, m.failures
}
