package port

import (
	"context"

	"github.com/google/uuid"

	"libris/internal/domain"
)

// ProgressStore shares the latest ingestion progress of a document across processes.
type ProgressStore interface {
	Save(ctx context.Context, documentID uuid.UUID, progress domain.IngestionProgress) error
	// Get returns domain.ErrNotFound when nothing has been saved for documentID.
	Get(ctx context.Context, documentID uuid.UUID) (*domain.IngestionProgress, error)
	Delete(ctx context.Context, documentID uuid.UUID) error
}
