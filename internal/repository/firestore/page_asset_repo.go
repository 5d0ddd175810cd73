package firestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"google.golang.org/api/option"

	"libris/internal/config"
	"libris/internal/domain"
	"libris/internal/port"
)

// pageAssetDoc is the stored shape of a page asset.
type pageAssetDoc struct {
	ID           string    `firestore:"id"`
	DocumentID   string    `firestore:"documentId"`
	PageNumber   int       `firestore:"pageNumber"`
	ImageURL     string    `firestore:"imageUrl"`
	ThumbnailURL *string   `firestore:"thumbnailUrl"`
	CreatedAt    time.Time `firestore:"createdAt"`
}

type pageAssetRepo struct {
	client     *firestore.Client
	collection string
}

// NewClient creates a Firestore client for cfg.ProjectID.
func NewClient(ctx context.Context, cfg *config.FirestoreConfig) (*firestore.Client, error) {
	if cfg.ProjectID == "" {
		return nil, errors.New("firestore project_id must be provided")
	}
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	client, err := firestore.NewClient(ctx, cfg.ProjectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating firestore client: %w", err)
	}
	return client, nil
}

// NewPageAssetRepo creates a Firestore-backed PageAssetRepository storing one
// document per page, keyed so that a page can only be recorded once.
func NewPageAssetRepo(client *firestore.Client, collection string) port.PageAssetRepository {
	return &pageAssetRepo{client: client, collection: collection}
}

func docKey(documentID uuid.UUID, pageNumber int) string {
	return fmt.Sprintf("%s_%06d", documentID, pageNumber)
}

func (r *pageAssetRepo) DeleteByDocument(ctx context.Context, documentID uuid.UUID) error {
	snaps, err := r.client.Collection(r.collection).
		Where("documentId", "==", documentID.String()).
		Documents(ctx).GetAll()
	if err != nil {
		return fmt.Errorf("pageAssetRepo.DeleteByDocument query: %w", err)
	}
	if len(snaps) == 0 {
		return nil
	}

	bw := r.client.BulkWriter(ctx)
	jobs := make([]*firestore.BulkWriterJob, 0, len(snaps))
	for _, s := range snaps {
		job, err := bw.Delete(s.Ref)
		if err != nil {
			bw.End()
			return fmt.Errorf("pageAssetRepo.DeleteByDocument enqueue: %w", err)
		}
		jobs = append(jobs, job)
	}
	bw.End()

	for _, job := range jobs {
		if _, err := job.Results(); err != nil {
			return fmt.Errorf("pageAssetRepo.DeleteByDocument: %w", err)
		}
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

	ref := r.client.Collection(r.collection).Doc(docKey(asset.DocumentID, asset.PageNumber))
	_, err := ref.Create(ctx, pageAssetDoc{
		ID:           asset.ID.String(),
		DocumentID:   asset.DocumentID.String(),
		PageNumber:   asset.PageNumber,
		ImageURL:     asset.ImageURL,
		ThumbnailURL: asset.ThumbnailURL,
		CreatedAt:    asset.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("pageAssetRepo.Create: %w", err)
	}
	return nil
}

func (r *pageAssetRepo) ListByDocument(ctx context.Context, documentID uuid.UUID) ([]domain.PageAsset, error) {
	snaps, err := r.client.Collection(r.collection).
		Where("documentId", "==", documentID.String()).
		OrderBy("pageNumber", firestore.Asc).
		Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("pageAssetRepo.ListByDocument: %w", err)
	}

	assets := make([]domain.PageAsset, 0, len(snaps))
	for _, s := range snaps {
		var d pageAssetDoc
		if err := s.DataTo(&d); err != nil {
			return nil, fmt.Errorf("pageAssetRepo.ListByDocument decode %s: %w", s.Ref.ID, err)
		}
		asset, err := d.toDomain()
		if err != nil {
			return nil, fmt.Errorf("pageAssetRepo.ListByDocument decode %s: %w", s.Ref.ID, err)
		}
		assets = append(assets, asset)
	}
	return assets, nil
}

func (d pageAssetDoc) toDomain() (domain.PageAsset, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return domain.PageAsset{}, err
	}
	docID, err := uuid.Parse(d.DocumentID)
	if err != nil {
		return domain.PageAsset{}, err
	}
	return domain.PageAsset{
		ID:           id,
		DocumentID:   docID,
		PageNumber:   d.PageNumber,
		ImageURL:     d.ImageURL,
		ThumbnailURL: d.ThumbnailURL,
		CreatedAt:    d.CreatedAt,
	}, nil
}
