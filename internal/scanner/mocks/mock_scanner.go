package mocks

import (
	"context"

	"trustdocs/internal/scanner"

	"github.com/stretchr/testify/mock"
)

type MockScanner struct {
	mock.Mock
}

func (m *MockScanner) Scan(ctx context.Context, data []byte) (scanner.Result, error) {
	args := m.Called(ctx, data)
	return args.Get(0).(scanner.Result), args.Error(1)
}
