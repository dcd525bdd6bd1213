package mocks

import (
	"context"

	"trustdocs/internal/vault"

	"github.com/stretchr/testify/mock"
)

type MockVault struct {
	mock.Mock
}

func (m *MockVault) Store(ctx context.Context, location string, plaintext []byte) (vault.StoredObject, error) {
	args := m.Called(ctx, location, plaintext)
	if f, ok := args.Get(0).(func(context.Context, string, []byte) vault.StoredObject); ok {
		return f(ctx, location, plaintext), args.Error(1)
	}
	return args.Get(0).(vault.StoredObject), args.Error(1)
}

func (m *MockVault) Open(ctx context.Context, location, keyID string) ([]byte, error) {
	args := m.Called(ctx, location, keyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockVault) Destroy(ctx context.Context, location, keyID string) error {
	args := m.Called(ctx, location, keyID)
	return args.Error(0)
}
