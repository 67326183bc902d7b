package mapper

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type mockJudge struct {
	mock.Mock
}

func (m *mockJudge) Judge(ctx context.Context, req JudgeRequest) (*Judgment, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Judgment), args.Error(1)
}
