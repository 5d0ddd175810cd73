package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"libris/internal/domain"
	"libris/internal/port"
)

// MockDocumentOpener is a mock implementation of port.DocumentOpener.
type MockDocumentOpener struct {
	mock.Mock
}

func (m *MockDocumentOpener) Open(ctx context.Context, data []byte) (port.Document, error) {
	args := m.Called(ctx, data)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(port.Document), args.Error(1)
}

// MockDocumentInspector is a mock implementation of port.DocumentInspector.
type MockDocumentInspector struct {
	mock.Mock
}

func (m *MockDocumentInspector) Inspect(ctx context.Context, data []byte) (*domain.DocumentInfo, error) {
	args := m.Called(ctx, data)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.DocumentInfo), args.Error(1)
}
