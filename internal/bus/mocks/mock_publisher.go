package mocks

import (
	"context"

	"trustdocs/internal/bus"

	"github.com/stretchr/testify/mock"
)

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, ev bus.Event) error {
	args := m.Called(ctx, ev)
	return args.Error(0)
}
