package port

import (
	"context"

	"libris/internal/domain"
)

// DocumentInspector validates the structure of an uploaded document before it is queued.
type DocumentInspector interface {
	Inspect(ctx context.Context, data []byte) (*domain.DocumentInfo, error)
}
