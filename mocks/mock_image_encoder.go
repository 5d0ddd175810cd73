package mocks

import (
	"image"

	"github.com/stretchr/testify/mock"

	"libris/internal/domain"
)

// MockImageEncoder is a mock implementation of port.ImageEncoder.
type MockImageEncoder struct {
	mock.Mock
}

func (m *MockImageEncoder) Encode(img image.Image, quality float64) (*domain.EncodedAsset, error) {
	args := m.Called(img, quality)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.EncodedAsset), args.Error(1)
}
