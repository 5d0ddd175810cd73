package port

import (
	"context"
	"io"
)

// UploadInput encapsulates the parameters needed to upload a blob.
type UploadInput struct {
	Key         string
	Body        io.Reader
	ContentType string
	Size        int64
	// Overwrite replaces an existing blob at Key. When false an existing blob fails the upload.
	Overwrite bool
}

// UploadOutput contains the result of a successful upload.
type UploadOutput struct {
	Location string
	ETag     string
}

// BlobStore abstracts key-addressed object storage for rendered page assets.
type BlobStore interface {
	Upload(ctx context.Context, input UploadInput) (*UploadOutput, error)
	// PublicURL derives the public address of key. It performs no I/O.
	PublicURL(key string) string
}
