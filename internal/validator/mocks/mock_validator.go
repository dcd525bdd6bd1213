package mocks

import (
	"context"

	"trustdocs/internal/validator"

	"github.com/stretchr/testify/mock"
)

type MockValidator struct {
	mock.Mock
}

func (m *MockValidator) Validate(ctx context.Context, data []byte, rules validator.Rules) (validator.Report, error) {
	args := m.Called(ctx, data, rules)
	return args.Get(0).(validator.Report), args.Error(1)
}
