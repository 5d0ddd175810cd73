package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"libris/internal/config"
	"libris/internal/domain"
	"libris/internal/port"
)

// PipelineConfig holds the tunables of an ingestion run.
type PipelineConfig struct {
	BatchSize        int
	HiResScale       float64
	ThumbnailScale   float64
	HiResQuality     float64
	ThumbnailQuality float64
	PageTimeout      time.Duration
}

// DefaultPipelineConfig returns the standard rendering settings.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		BatchSize:        3,
		HiResScale:       2.0,
		ThumbnailScale:   0.3,
		HiResQuality:     0.9,
		ThumbnailQuality: 0.7,
		PageTimeout:      2 * time.Minute,
	}
}

// PipelineConfigFrom maps the ingest section of the application config.
func PipelineConfigFrom(cfg *config.IngestConfig) PipelineConfig {
	return PipelineConfig{
		BatchSize:        cfg.BatchSize,
		HiResScale:       cfg.HiResScale,
		ThumbnailScale:   cfg.ThumbnailScale,
		HiResQuality:     cfg.HiResQuality,
		ThumbnailQuality: cfg.ThumbnailQuality,
		PageTimeout:      cfg.PageTimeout,
	}
}

// IngestionPipeline turns an open document into per-page image assets and
// metadata records. Pages are processed in fixed-size batches; pages within a
// batch run concurrently and a batch must finish before the next one starts.
type IngestionPipeline struct {
	blobs   port.BlobStore
	assets  port.PageAssetRepository
	encoder port.ImageEncoder
	cfg     PipelineConfig
	now     func() time.Time
}

// NewIngestionPipeline creates a new IngestionPipeline. Zero or negative
// settings fall back to DefaultPipelineConfig.
func NewIngestionPipeline(
	blobs port.BlobStore,
	assets port.PageAssetRepository,
	encoder port.ImageEncoder,
	cfg PipelineConfig,
) *IngestionPipeline {
	def := DefaultPipelineConfig()
	if cfg.BatchSize < 1 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.HiResScale <= 0 {
		cfg.HiResScale = def.HiResScale
	}
	if cfg.ThumbnailScale <= 0 {
		cfg.ThumbnailScale = def.ThumbnailScale
	}
	if cfg.HiResQuality <= 0 {
		cfg.HiResQuality = def.HiResQuality
	}
	if cfg.ThumbnailQuality <= 0 {
		cfg.ThumbnailQuality = def.ThumbnailQuality
	}
	if cfg.PageTimeout <= 0 {
		cfg.PageTimeout = def.PageTimeout
	}
	return &IngestionPipeline{
		blobs:   blobs,
		assets:  assets,
		encoder: encoder,
		cfg:     cfg,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Run ingests doc under documentID and returns its page count.
//
// Run takes ownership of doc and closes it before returning. Existing records
// for documentID are deleted first, so a successful run leaves exactly one
// record per page. The first page failure aborts the run once its batch has
// settled; records written by earlier batches are kept. Cancelling ctx stops
// the run at the next batch boundary with domain.ErrCancelled. tracker must be
// idle; reset it between runs.
func (p *IngestionPipeline) Run(
	ctx context.Context,
	doc port.Document,
	documentID uuid.UUID,
	tracker *ProgressTracker,
) (int, error) {
	defer closeDocument(doc, documentID)

	total := doc.PageCount()
	logger := log.With().
		Str("document_id", documentID.String()).
		Int("pages", total).
		Logger()

	if err := tracker.Start(total); err != nil {
		return 0, err
	}
	logger.Info().Int("batch_size", p.cfg.BatchSize).Msg("ingestionPipeline.Run: started")

	if ctx.Err() != nil {
		return 0, p.cancelled(ctx, tracker, logger)
	}

	if err := p.assets.DeleteByDocument(ctx, documentID); err != nil {
		ierr := &domain.IngestionError{
			Kind:       domain.MetadataCleanupFailure,
			DocumentID: documentID.String(),
			Err:        err,
		}
		tracker.Fail(ierr.Error())
		logger.Error().Err(err).Msg("ingestionPipeline.Run: clearing stale page records failed")
		return 0, ierr
	}

	for start := 1; start <= total; start += p.cfg.BatchSize {
		if ctx.Err() != nil {
			return 0, p.cancelled(ctx, tracker, logger)
		}

		end := min(start+p.cfg.BatchSize-1, total)
		if err := p.runBatch(ctx, doc, documentID, start, end, tracker); err != nil {
			tracker.Fail(err.Error())
			logger.Error().Err(err).
				Int("batch_start", start).
				Int("batch_end", end).
				Msg("ingestionPipeline.Run: batch failed")
			return 0, err
		}
		logger.Debug().Int("batch_start", start).Int("batch_end", end).Msg("ingestionPipeline.Run: batch complete")
	}

	tracker.Complete()
	logger.Info().Msg("ingestionPipeline.Run: complete")
	return total, nil
}

// runBatch processes pages start..end (1-based, inclusive) concurrently and waits
// for all of them. Page work runs on a context detached from ctx's cancellation
// so that an in-flight batch always finishes; each page gets its own timeout.
func (p *IngestionPipeline) runBatch(
	ctx context.Context,
	doc port.Document,
	documentID uuid.UUID,
	start, end int,
	tracker *ProgressTracker,
) error {
	unitCtx := context.WithoutCancel(ctx)

	var g errgroup.Group
	for pageNumber := start; pageNumber <= end; pageNumber++ {
		g.Go(func() error {
			pageCtx, cancel := context.WithTimeout(unitCtx, p.cfg.PageTimeout)
			defer cancel()

			if err := p.processPage(pageCtx, doc, documentID, pageNumber); err != nil {
				return err
			}
			tracker.IncrementDone()
			return nil
		})
	}
	return g.Wait()
}

func (p *IngestionPipeline) cancelled(ctx context.Context, tracker *ProgressTracker, logger zerolog.Logger) error {
	tracker.Fail(domain.ErrCancelled.Error())
	logger.Warn().Err(context.Cause(ctx)).Msg("ingestionPipeline.Run: cancelled")
	return fmt.Errorf("%w: %w", domain.ErrCancelled, context.Cause(ctx))
}

func closeDocument(doc port.Document, documentID uuid.UUID) {
	if err := doc.Close(); err != nil {
		log.Warn().Err(err).
			Str("document_id", documentID.String()).
			Msg("ingestionPipeline.Run: closing document failed")
	}
}
