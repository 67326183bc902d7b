package judge

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/feasibility-cli/internal/mapper"
	"github.com/sells-group/feasibility-cli/internal/model"
)

func TestMeter_AccumulatesUsage(t *testing.T) {
	mj := new(mockJudge)
	mj.On("Judge", mock.Anything, mock.MatchedBy(func(r mapper.JudgeRequest) bool { return r.Question.ID == "bad" })).
		Return(nil, errors.New("timeout"))
	mj.On("Judge", mock.Anything, mock.Anything).
		Return(&mapper.Judgment{Answer: "Yes", Usage: model.TokenUsage{InputTokens: 10, OutputTokens: 2, Calls: 1, Cost: 0.5}}, nil)

	m := Metered(mj)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = m.Judge(context.Background(), mapper.JudgeRequest{Question: model.Question{ID: "ok"}})
		}()
	}
	wg.Wait()
	_, err := m.Judge(context.Background(), mapper.JudgeRequest{Question: model.Question{ID: "bad"}})
	require.Error(t, err)

	u := m.Usage()
	assert.Equal(t, 80, u.InputTokens)
	assert.Equal(t, 16, u.OutputTokens)
	assert.Equal(t, 8, u.Calls)
	assert.InDelta(t, 4.0, u.Cost, 0.0001)

	total, failed := m.Requests()
	assert.Equal(t, 9, total)
	assert.Equal(t, 1, failed)
}
