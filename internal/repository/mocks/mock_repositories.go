package mocks

import (
	"context"

	"trustdocs/internal/model"

	"github.com/stretchr/testify/mock"
)

type MockCategoryRepository struct {
	mock.Mock
}

func (m *MockCategoryRepository) FindByID(ctx context.Context, id string) (*model.DocumentCategory, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.DocumentCategory), args.Error(1)
}

func (m *MockCategoryRepository) ListRequired(ctx context.Context, role string) ([]model.DocumentCategory, error) {
	args := m.Called(ctx, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.DocumentCategory), args.Error(1)
}

type MockAuditRepository struct {
	mock.Mock
}

func (m *MockAuditRepository) InsertBatch(ctx context.Context, events []model.AuditEvent) error {
	args := m.Called(ctx, events)
	return args.Error(0)
}

type MockVerificationRepository struct {
	mock.Mock
}

func (m *MockVerificationRepository) Get(ctx context.Context, ownerID string) (*model.VerificationStatus, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.VerificationStatus), args.Error(1)
}

func (m *MockVerificationRepository) Upsert(ctx context.Context, vs *model.VerificationStatus) error {
	args := m.Called(ctx, vs)
	return args.Error(0)
}

type MockKeyRepository struct {
	mock.Mock
}

func (m *MockKeyRepository) Insert(ctx context.Context, id string, wrappedKey []byte) error {
	args := m.Called(ctx, id, wrappedKey)
	return args.Error(0)
}

func (m *MockKeyRepository) Find(ctx context.Context, id string) ([]byte, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockKeyRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
