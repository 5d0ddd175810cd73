package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"libris/internal/domain"
	"libris/internal/port"
)

type pageAssetRepo struct {
	db *sqlx.DB
}

// NewPageAssetRepo creates a new PostgreSQL-backed PageAssetRepository.
func NewPageAssetRepo(db *sqlx.DB) port.PageAssetRepository {
	return &pageAssetRepo{db: db}
}

func (r *pageAssetRepo) DeleteByDocument(ctx context.Context, documentID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx,
		"DELETE FROM page_assets WHERE document_id = $1", documentID)
	if err != nil {
		return fmt.Errorf("pageAssetRepo.DeleteByDocument: %w", err)
	}
	return nil
}

func (r *pageAssetRepo) Create(ctx context.Context, asset *domain.PageAsset) error {
	if asset.ID == uuid.Nil {
		asset.ID = uuid.New()
	}
	if asset.CreatedAt.IsZero() {
		asset.CreatedAt = time.Now().UTC()
	}

	query := `INSERT INTO page_assets
		(id, document_id, page_number, image_url, thumbnail_url, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.db.ExecContext(ctx, query,
		asset.ID, asset.DocumentID, asset.PageNumber, asset.ImageURL,
		asset.ThumbnailURL, asset.CreatedAt)
	if err != nil {
		return fmt.Errorf("pageAssetRepo.Create: %w", err)
	}
	return nil
}

func (r *pageAssetRepo) ListByDocument(ctx context.Context, documentID uuid.UUID) ([]domain.PageAsset, error) {
	var assets []domain.PageAsset
	err := r.db.SelectContext(ctx, &assets,
		`SELECT id, document_id, page_number, image_url, thumbnail_url, created_at
		 FROM page_assets WHERE document_id = $1
		 ORDER BY page_number ASC`, documentID)
	if err != nil {
		return nil, fmt.Errorf("pageAssetRepo.ListByDocument: %w", err)
	}
	if assets == nil {
		assets = []domain.PageAsset{}
	}
	return assets, nil
}
