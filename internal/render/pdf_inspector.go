package render

import (
	"bytes"
	"context"
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"libris/internal/domain"
)

// PDFInspector validates uploads with pdfcpu before they reach the renderer.
type PDFInspector struct {
	conf *model.Configuration
}

// NewPDFInspector creates a PDFInspector using relaxed validation, which
// accepts the minor structural defects common in scanner output.
func NewPDFInspector() *PDFInspector {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return &PDFInspector{conf: conf}
}

// Inspect parses and validates data and reports its page count.
func (i *PDFInspector) Inspect(_ context.Context, data []byte) (*domain.DocumentInfo, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty file", domain.ErrInvalidDocument)
	}

	pdfCtx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), i.conf)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidDocument, err)
	}

	return &domain.DocumentInfo{
		PageCount: pdfCtx.PageCount,
		SizeBytes: int64(len(data)),
	}, nil
}
