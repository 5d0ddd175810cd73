package service

import (
	"bytes"
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"libris/internal/domain"
	"libris/internal/port"
)

// AssetKey returns the deterministic blob key of a page asset, e.g.
// "<documentID>/page-3.jpg" or "<documentID>/thumb-3.jpg". Re-ingesting a
// document writes to the same keys.
func AssetKey(documentID uuid.UUID, role domain.AssetRole, pageNumber int, ext string) string {
	return fmt.Sprintf("%s/%s-%d.%s", documentID, role, pageNumber, ext)
}

// processPage renders, encodes, uploads and records one page. pageNumber is 1-based.
// Thumbnail problems are logged and leave the record without a thumbnail URL;
// every other failure is returned as a *domain.IngestionError.
func (p *IngestionPipeline) processPage(
	ctx context.Context,
	doc port.Document,
	documentID uuid.UUID,
	pageNumber int,
) error {
	page, err := doc.Page(pageNumber - 1)
	if err != nil {
		return p.pageError(domain.RenderFailure, documentID, pageNumber, err)
	}

	raster, err := page.Render(ctx, p.cfg.HiResScale)
	if err != nil {
		return p.pageError(domain.RenderFailure, documentID, pageNumber, err)
	}
	primary, err := p.encoder.Encode(raster, p.cfg.HiResQuality)
	if err != nil {
		return p.pageError(domain.EncodeFailure, documentID, pageNumber, err)
	}

	thumb := p.renderThumbnail(ctx, page, documentID, pageNumber)

	primaryKey := AssetKey(documentID, domain.AssetRolePage, pageNumber, primary.Extension)
	var thumbURL *string

	var g errgroup.Group
	g.Go(func() error {
		if err := p.upload(ctx, primaryKey, primary); err != nil {
			return p.pageError(domain.UploadFailure, documentID, pageNumber, err)
		}
		return nil
	})
	if thumb != nil {
		thumbKey := AssetKey(documentID, domain.AssetRoleThumbnail, pageNumber, thumb.Extension)
		g.Go(func() error {
			if err := p.upload(ctx, thumbKey, thumb); err != nil {
				logThumbnailError(documentID, &domain.ThumbnailError{PageNumber: pageNumber, Stage: "upload", Err: err})
				return nil
			}
			u := p.blobs.PublicURL(thumbKey)
			thumbURL = &u
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	record := &domain.PageAsset{
		ID:           uuid.New(),
		DocumentID:   documentID,
		PageNumber:   pageNumber,
		ImageURL:     p.blobs.PublicURL(primaryKey),
		ThumbnailURL: thumbURL,
		CreatedAt:    p.now(),
	}
	if err := p.assets.Create(ctx, record); err != nil {
		return p.pageError(domain.PersistFailure, documentID, pageNumber, err)
	}

	log.Debug().
		Str("document_id", documentID.String()).
		Int("page", pageNumber).
		Bool("thumbnail", thumbURL != nil).
		Msg("ingestionPipeline.processPage: page stored")
	return nil
}

// renderThumbnail returns nil when the thumbnail cannot be produced.
func (p *IngestionPipeline) renderThumbnail(
	ctx context.Context,
	page port.Page,
	documentID uuid.UUID,
	pageNumber int,
) *domain.EncodedAsset {
	raster, err := page.Render(ctx, p.cfg.ThumbnailScale)
	if err != nil {
		logThumbnailError(documentID, &domain.ThumbnailError{PageNumber: pageNumber, Stage: "render", Err: err})
		return nil
	}
	asset, err := p.encoder.Encode(raster, p.cfg.ThumbnailQuality)
	if err != nil {
		logThumbnailError(documentID, &domain.ThumbnailError{PageNumber: pageNumber, Stage: "encode", Err: err})
		return nil
	}
	return asset
}

func (p *IngestionPipeline) upload(ctx context.Context, key string, asset *domain.EncodedAsset) error {
	_, err := p.blobs.Upload(ctx, port.UploadInput{
		Key:         key,
		Body:        bytes.NewReader(asset.Data),
		ContentType: asset.ContentType,
		Size:        int64(len(asset.Data)),
		Overwrite:   true,
	})
	return err
}

func (p *IngestionPipeline) pageError(kind domain.IngestionErrorKind, documentID uuid.UUID, pageNumber int, err error) error {
	return &domain.IngestionError{
		Kind:       kind,
		DocumentID: documentID.String(),
		PageNumber: pageNumber,
		Err:        err,
	}
}

func logThumbnailError(documentID uuid.UUID, err *domain.ThumbnailError) {
	log.Warn().Err(err).
		Str("document_id", documentID.String()).
		Int("page", err.PageNumber).
		Msg("ingestionPipeline.processPage: continuing without thumbnail")
}
