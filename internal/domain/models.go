package domain

import (
	"time"

	"github.com/google/uuid"
)

// PageAsset is the metadata record for one rendered page of a document.
// (DocumentID, PageNumber) is unique; PageNumber is 1-based.
type PageAsset struct {
	ID           uuid.UUID `db:"id" json:"id"`
	DocumentID   uuid.UUID `db:"document_id" json:"document_id"`
	PageNumber   int       `db:"page_number" json:"page_number"`
	ImageURL     string    `db:"image_url" json:"image_url"`
	ThumbnailURL *string   `db:"thumbnail_url" json:"thumbnail_url"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// EncodedAsset is a compressed raster ready for upload.
type EncodedAsset struct {
	Data        []byte
	ContentType string
	Extension   string
}

// IngestionProgress is a point-in-time view of an ingestion run.
type IngestionProgress struct {
	Total  int             `json:"total"`
	Done   int             `json:"done"`
	Status IngestionStatus `json:"status"`
	Error  string          `json:"error,omitempty"`
}

// IngestionJob describes a document accepted for asynchronous ingestion.
type IngestionJob struct {
	DocumentID uuid.UUID         `json:"document_id"`
	FileName   string            `json:"file_name"`
	SizeBytes  int64             `json:"size_bytes"`
	PageCount  int               `json:"page_count"`
	Progress   IngestionProgress `json:"progress"`
	QueuedAt   time.Time         `json:"queued_at"`
}

// DocumentInfo is the result of a structural preflight of an uploaded document.
type DocumentInfo struct {
	PageCount int
	SizeBytes int64
}
