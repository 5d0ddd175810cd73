package encoder

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"math"

	"libris/internal/domain"
)

const (
	ContentTypeJPEG = "image/jpeg"
	ExtensionJPEG   = "jpg"
)

// JPEGEncoder compresses rasters as baseline JPEG.
type JPEGEncoder struct{}

// NewJPEGEncoder creates a new JPEGEncoder.
func NewJPEGEncoder() *JPEGEncoder {
	return &JPEGEncoder{}
}

// Encode compresses img at quality in (0,1], mapped onto the JPEG 1-100 scale.
func (e *JPEGEncoder) Encode(img image.Image, quality float64) (*domain.EncodedAsset, error) {
	if img == nil {
		return nil, errors.New("jpeg encode: nil image")
	}
	if quality <= 0 || quality > 1 {
		return nil, fmt.Errorf("jpeg encode: quality %v outside (0,1]", quality)
	}
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil, fmt.Errorf("jpeg encode: empty image %v", b)
	}

	var buf bytes.Buffer
	buf.Grow(b.Dx() * b.Dy() / 4)
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality(quality)}); err != nil {
		return nil, fmt.Errorf("jpeg encode: %w", err)
	}

	return &domain.EncodedAsset{
		Data:        buf.Bytes(),
		ContentType: ContentTypeJPEG,
		Extension:   ExtensionJPEG,
	}, nil
}

func jpegQuality(q float64) int {
	v := int(math.Round(q * 100))
	if v < 1 {
		return 1
	}
	if v > 100 {
		return 100
	}
	return v
}
