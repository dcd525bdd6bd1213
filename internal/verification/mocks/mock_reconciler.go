package mocks

import (
	"context"

	"trustdocs/internal/model"

	"github.com/stretchr/testify/mock"
)

type MockReconciler struct {
	mock.Mock
}

func (m *MockReconciler) SyncDocuments(ctx context.Context, ownerID string) error {
	args := m.Called(ctx, ownerID)
	return args.Error(0)
}

func (m *MockReconciler) SyncProfile(ctx context.Context, ownerID string) error {
	args := m.Called(ctx, ownerID)
	return args.Error(0)
}

func (m *MockReconciler) Adjudicate(ctx context.Context, ownerID string, decision model.AdjudicationDecision, notes string) (*model.VerificationStatus, error) {
	args := m.Called(ctx, ownerID, decision, notes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.VerificationStatus), args.Error(1)
}

func (m *MockReconciler) Status(ctx context.Context, ownerID string) (*model.VerificationStatus, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.VerificationStatus), args.Error(1)
}

type MockProfileProvider struct {
	mock.Mock
}

func (m *MockProfileProvider) IsComplete(ctx context.Context, ownerID string) (bool, error) {
	args := m.Called(ctx, ownerID)
	return args.Bool(0), args.Error(1)
}
