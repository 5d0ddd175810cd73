package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"libris/internal/domain"
)

// MockProgressStore is a mock implementation of port.ProgressStore.
type MockProgressStore struct {
	mock.Mock
}

func (m *MockProgressStore) Save(ctx context.Context, documentID uuid.UUID, progress domain.IngestionProgress) error {
	args := m.Called(ctx, documentID, progress)
	return args.Error(0)
}

func (m *MockProgressStore) Get(ctx context.Context, documentID uuid.UUID) (*domain.IngestionProgress, error) {
	args := m.Called(ctx, documentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.IngestionProgress), args.Error(1)
}

func (m *MockProgressStore) Delete(ctx context.Context, documentID uuid.UUID) error {
	args := m.Called(ctx, documentID)
	return args.Error(0)
}
