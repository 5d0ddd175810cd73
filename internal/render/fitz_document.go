package render

import (
	"context"
	"fmt"
	"image"
	"sync"

	"github.com/gen2brain/go-fitz"

	"libris/internal/domain"
	"libris/internal/port"
)

// baseDPI is the resolution at which a page renders at scale 1.0.
const baseDPI = 72.0

// FitzOpener opens PDF documents with MuPDF through go-fitz.
type FitzOpener struct{}

// NewFitzOpener creates a new FitzOpener.
func NewFitzOpener() *FitzOpener {
	return &FitzOpener{}
}

// Open loads data into a MuPDF document. The caller owns the returned handle.
func (o *FitzOpener) Open(_ context.Context, data []byte) (port.Document, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidDocument, err)
	}
	return &fitzDocument{doc: doc, pageCount: doc.NumPage()}, nil
}

type fitzDocument struct {
	doc       *fitz.Document
	pageCount int

	// mu guards closed. Renders register in inflight under a read lock so
	// Close can wait for them before freeing the native document.
	mu       sync.RWMutex
	closed   bool
	inflight sync.WaitGroup
}

func (d *fitzDocument) PageCount() int {
	return d.pageCount
}

func (d *fitzDocument) Page(index int) (port.Page, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return nil, domain.ErrDocumentClosed
	}
	if index < 0 || index >= d.pageCount {
		return nil, fmt.Errorf("%w: %d of %d", domain.ErrPageOutOfRange, index, d.pageCount)
	}
	return &fitzPage{doc: d, index: index}, nil
}

// Close is idempotent. It blocks until renders that are still running in MuPDF return.
func (d *fitzDocument) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	d.mu.Unlock()

	d.inflight.Wait()
	if err := d.doc.Close(); err != nil {
		return fmt.Errorf("fitzDocument.Close: %w", err)
	}
	return nil
}

func (d *fitzDocument) acquire() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return false
	}
	d.inflight.Add(1)
	return true
}

type fitzPage struct {
	doc   *fitzDocument
	index int
}

type renderResult struct {
	img image.Image
	err error
}

// Render rasterizes the page at scale. MuPDF cannot be interrupted, so when ctx
// ends first the render keeps running in the background and its result is dropped.
func (p *fitzPage) Render(ctx context.Context, scale float64) (image.Image, error) {
	if scale <= 0 {
		return nil, fmt.Errorf("render page %d: invalid scale %v", p.index+1, scale)
	}
	if !p.doc.acquire() {
		return nil, domain.ErrDocumentClosed
	}

	done := make(chan renderResult, 1)
	go func() {
		defer p.doc.inflight.Done()
		img, err := p.doc.doc.ImageDPI(p.index, scale*baseDPI)
		done <- renderResult{img: img, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			return nil, fmt.Errorf("render page %d: %w", p.index+1, res.err)
		}
		return res.img, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("render page %d: %w", p.index+1, ctx.Err())
	}
}
