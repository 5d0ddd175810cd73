package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"libris/internal/domain"
)

// MockPageAssetRepo is a mock implementation of port.PageAssetRepository.
type MockPageAssetRepo struct {
	mock.Mock
}

func (m *MockPageAssetRepo) DeleteByDocument(ctx context.Context, documentID uuid.UUID) error {
	args := m.Called(ctx, documentID)
	return args.Error(0)
}

func (m *MockPageAssetRepo) Create(ctx context.Context, asset *domain.PageAsset) error {
	args := m.Called(ctx, asset)
	return args.Error(0)
}

func (m *MockPageAssetRepo) ListByDocument(ctx context.Context, documentID uuid.UUID) ([]domain.PageAsset, error) {
	args := m.Called(ctx, documentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.PageAsset), args.Error(1)
}
