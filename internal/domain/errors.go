package domain

import "errors"

var (
	ErrNotFound            = errors.New("resource not found")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrForbidden           = errors.New("forbidden")
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrFileTooLarge        = errors.New("file exceeds maximum allowed size")
	ErrUploadFailed        = errors.New("file upload to storage failed")
	ErrInvalidDocumentID   = errors.New("invalid document id")
	ErrInvalidDocument     = errors.New("document could not be read")
	ErrDocumentClosed      = errors.New("document handle is closed")
	ErrPageOutOfRange      = errors.New("page index out of range")
	ErrUnsupportedFormat   = errors.New("unsupported export format")
)

// Ingestion errors.
var (
	ErrIngestionInProgress = errors.New("ingestion already in progress for document")
	ErrQueueFull           = errors.New("ingestion queue is full")
	ErrCancelled           = errors.New("ingestion cancelled")
	ErrProgressNotReset    = errors.New("previous ingestion run has not been reset")
)
