package judge

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/feasibility-cli/internal/mapper"
	"github.com/sells-group/feasibility-cli/internal/model"
)

func TestCached_SecondCallIsHit(t *testing.T) {
	mj := new(mockJudge)
	mj.On("Judge", mock.Anything, mock.Anything).Return(&mapper.Judgment{
		Answer:   "Yes",
		FactKeys: []string{"facilities.freezer_minus80"},
		Usage:    model.TokenUsage{InputTokens: 100, Calls: 1},
	}, nil).Once()

	c := Cached(mj, time.Minute)
	first, err := c.Judge(context.Background(), freezerRequest())
	require.NoError(t, err)
	second, err := c.Judge(context.Background(), freezerRequest())
	require.NoError(t, err)

	assert.Equal(t, "Yes", second.Answer)
	assert.Equal(t, first.FactKeys, second.FactKeys)
	assert.Equal(t, 1, first.Usage.Calls)
	assert.Zero(t, second.Usage.Calls, "a memo hit spends no tokens")
	assert.Equal(t, 1, c.Len())
	mj.AssertNumberOfCalls(t, "Judge", 1)
}

func TestCached_DifferentFactsMiss(t *testing.T) {
	mj := new(mockJudge)
	mj.On("Judge", mock.Anything, mock.Anything).Return(&mapper.Judgment{Answer: "Yes"}, nil)

	c := Cached(mj, time.Minute)
	req := freezerRequest()
	_, err := c.Judge(context.Background(), req)
	require.NoError(t, err)

	req.Facts[0].Value = model.BoolValue(false)
	_, err = c.Judge(context.Background(), req)
	require.NoError(t, err)

	mj.AssertNumberOfCalls(t, "Judge", 2)
}

func TestCached_ErrorsNotStored(t *testing.T) {
	mj := new(mockJudge)
	mj.On("Judge", mock.Anything, mock.Anything).Return(nil, errors.New("provider down")).Once()
	mj.On("Judge", mock.Anything, mock.Anything).Return(&mapper.Judgment{Answer: "Yes"}, nil).Once()

	c := Cached(mj, time.Minute)
	_, err := c.Judge(context.Background(), freezerRequest())
	require.Error(t, err)

	out, err := c.Judge(context.Background(), freezerRequest())
	require.NoError(t, err)
	assert.Equal(t, "Yes", out.Answer)
	mj.AssertNumberOfCalls(t, "Judge", 2)
}

func TestCached_HitIsIsolatedCopy(t *testing.T) {
	mj := new(mockJudge)
	mj.On("Judge", mock.Anything, mock.Anything).Return(&mapper.Judgment{Answer: "Yes", FactKeys: []string{"a"}}, nil).Once()

	c := Cached(mj, time.Minute)
	first, err := c.Judge(context.Background(), freezerRequest())
	require.NoError(t, err)
	first.FactKeys[0] = "mutated"

	second, err := c.Judge(context.Background(), freezerRequest())
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, second.FactKeys)
}

func TestFingerprint(t *testing.T) {
	a := freezerRequest()
	b := freezerRequest()
	assert.Equal(t, Fingerprint(a), Fingerprint(b))

	b.Question.IsObjective = true
	assert.NotEqual(t, Fingerprint(a), Fingerprint(b))

	c := freezerRequest()
	c.Requirements[0].Criticality = model.Preferred
	assert.NotEqual(t, Fingerprint(a), Fingerprint(c))
}
