package domain

import "fmt"

// IngestionErrorKind classifies a fatal ingestion failure.
type IngestionErrorKind string

const (
	RenderFailure          IngestionErrorKind = "render_failure"
	EncodeFailure          IngestionErrorKind = "encode_failure"
	UploadFailure          IngestionErrorKind = "upload_failure"
	PersistFailure         IngestionErrorKind = "persist_failure"
	MetadataCleanupFailure IngestionErrorKind = "metadata_cleanup_failure"
)

// IsPageFailure reports whether the kind originates in a single page's work unit.
func (k IngestionErrorKind) IsPageFailure() bool {
	switch k {
	case RenderFailure, EncodeFailure, UploadFailure, PersistFailure:
		return true
	}
	return false
}

// IngestionError is a fatal failure that aborts an ingestion run.
// PageNumber is 1-based and zero for failures not tied to a page.
type IngestionError struct {
	Kind       IngestionErrorKind
	DocumentID string
	PageNumber int
	Err        error
}

func (e *IngestionError) Error() string {
	if e.PageNumber > 0 {
		return fmt.Sprintf("%s on page %d of document %s: %v", e.Kind, e.PageNumber, e.DocumentID, e.Err)
	}
	return fmt.Sprintf("%s for document %s: %v", e.Kind, e.DocumentID, e.Err)
}

func (e *IngestionError) Unwrap() error { return e.Err }

// ThumbnailError is a recoverable failure producing or uploading a page thumbnail.
// It never aborts a run; the page is recorded without a thumbnail URL.
type ThumbnailError struct {
	PageNumber int
	Stage      string
	Err        error
}

func (e *ThumbnailError) Error() string {
	return fmt.Sprintf("thumbnail %s failed on page %d: %v", e.Stage, e.PageNumber, e.Err)
}

func (e *ThumbnailError) Unwrap() error { return e.Err }
