package judge

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/feasibility-cli/internal/mapper"
)

type mockCompleter struct {
	mock.Mock
}

func (m *mockCompleter) Name() string { return "mock" }

func (m *mockCompleter) Complete(ctx context.Context, p Prompt) (*Completion, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Completion), args.Error(1)
}

type mockJudge struct {
	mock.Mock
}

func (m *mockJudge) Judge(ctx context.Context, req mapper.JudgeRequest) (*mapper.Judgment, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*mapper.Judgment), args.Error(1)
}
