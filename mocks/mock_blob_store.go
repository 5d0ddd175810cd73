package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"libris/internal/port"
)

// MockBlobStore is a mock implementation of port.BlobStore.
type MockBlobStore struct {
	mock.Mock
}

func (m *MockBlobStore) Upload(ctx context.Context, input port.UploadInput) (*port.UploadOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*port.UploadOutput), args.Error(1)
}

func (m *MockBlobStore) PublicURL(key string) string {
	args := m.Called(key)
	return args.String(0)
}
