package port

import (
	"context"
	"image"
)

// Page renders a single page of an open document.
type Page interface {
	// Render rasterizes the page at scale, where 1.0 is the page's natural size.
	Render(ctx context.Context, scale float64) (image.Image, error)
}

// Document is an open, paginated document owned by a single ingestion run.
// Pages may be rendered concurrently. Any access after Close fails.
type Document interface {
	PageCount() int
	// Page returns the page at the zero-based index.
	Page(index int) (Page, error)
	Close() error
}

// DocumentOpener opens raw document bytes for rendering.
type DocumentOpener interface {
	Open(ctx context.Context, data []byte) (Document, error)
}
