package port

import (
	"image"

	"libris/internal/domain"
)

// ImageEncoder compresses a raster into an uploadable asset.
type ImageEncoder interface {
	// Encode compresses img at quality in (0,1].
	Encode(img image.Image, quality float64) (*domain.EncodedAsset, error)
}
