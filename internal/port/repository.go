package port

import (
	"context"

	"github.com/google/uuid"

	"libris/internal/domain"
)

// PageAssetRepository defines the contract for page asset metadata persistence.
type PageAssetRepository interface {
	// DeleteByDocument removes every record for documentID. Deleting zero records is not an error.
	DeleteByDocument(ctx context.Context, documentID uuid.UUID) error
	Create(ctx context.Context, asset *domain.PageAsset) error
	// ListByDocument returns the records for documentID ordered by page number.
	ListByDocument(ctx context.Context, documentID uuid.UUID) ([]domain.PageAsset, error)
}
