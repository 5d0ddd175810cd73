package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"libris/internal/domain"
	"libris/internal/service"
)

// MockIngestService is a mock implementation of service.IngestService.
type MockIngestService struct {
	mock.Mock
}

func (m *MockIngestService) Submit(ctx context.Context, input service.SubmitInput) (*domain.IngestionJob, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.IngestionJob), args.Error(1)
}

func (m *MockIngestService) Ingest(ctx context.Context, documentID uuid.UUID, data []byte) (int, error) {
	args := m.Called(ctx, documentID, data)
	return args.Int(0), args.Error(1)
}

func (m *MockIngestService) Progress(ctx context.Context, documentID uuid.UUID) (*domain.IngestionProgress, error) {
	args := m.Called(ctx, documentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.IngestionProgress), args.Error(1)
}

func (m *MockIngestService) Watch(documentID uuid.UUID) (<-chan domain.IngestionProgress, func()) {
	args := m.Called(documentID)
	return args.Get(0).(<-chan domain.IngestionProgress), args.Get(1).(func())
}

func (m *MockIngestService) Reset(ctx context.Context, documentID uuid.UUID) error {
	args := m.Called(ctx, documentID)
	return args.Error(0)
}

func (m *MockIngestService) Cancel(documentID uuid.UUID) error {
	args := m.Called(documentID)
	return args.Error(0)
}

func (m *MockIngestService) ListPages(ctx context.Context, documentID uuid.UUID) ([]domain.PageAsset, error) {
	args := m.Called(ctx, documentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.PageAsset), args.Error(1)
}
