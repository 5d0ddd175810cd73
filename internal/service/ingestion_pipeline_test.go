package service_test

import (
	"context"
	"errors"
	"fmt"
	"image"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"libris/internal/domain"
	"libris/internal/service"
)

type pipelineFixture struct {
	blobs    *fakeBlobStore
	repo     *fakeAssetRepo
	encoder  *fakeEncoder
	events   *eventLog
	pipeline *service.IngestionPipeline
	tracker  *service.ProgressTracker
	docID    uuid.UUID
}

func newPipelineFixture(cfg service.PipelineConfig) *pipelineFixture {
	f := &pipelineFixture{
		blobs:   newFakeBlobStore(),
		repo:    newFakeAssetRepo(),
		encoder: &fakeEncoder{},
		events:  newEventLog(),
		tracker: service.NewProgressTracker(),
		docID:   uuid.New(),
	}
	f.repo.events = f.events
	f.pipeline = service.NewIngestionPipeline(f.blobs, f.repo, f.encoder, cfg)
	return f
}

func (f *pipelineFixture) document(pages int) *fakeDocument {
	doc := newFakeDocument(pages)
	doc.events = f.events
	return doc
}

func pageRange(from, to int) []int {
	var out []int
	for i := from; i <= to; i++ {
		out = append(out, i)
	}
	return out
}

func TestIngestionPipeline_Run_SevenPagesInBatchesOfThree(t *testing.T) {
	f := newPipelineFixture(service.DefaultPipelineConfig())
	doc := f.document(7)
	doc.renderDelay = 10 * time.Millisecond

	pages, err := f.pipeline.Run(context.Background(), doc, f.docID, f.tracker)

	require.NoError(t, err)
	assert.Equal(t, 7, pages)
	assert.Equal(t, pageRange(1, 7), f.repo.pageNumbers(f.docID))
	assert.Len(t, f.blobs.keys(), 14)
	assert.Equal(t, domain.IngestionProgress{Total: 7, Done: 7, Status: domain.IngestionStatusDone}, f.tracker.Snapshot())
	assert.LessOrEqual(t, doc.maxActive.Load(), int32(3))
	assert.Equal(t, int32(1), doc.closeCount.Load())

	// Every page of a batch starts after every page of the previous batch finished.
	batches := [][]int{{1, 2, 3}, {4, 5, 6}, {7}}
	for i := 1; i < len(batches); i++ {
		var prevEnd int64
		for _, p := range batches[i-1] {
			prevEnd = max(prevEnd, f.events.ends[p])
		}
		for _, p := range batches[i] {
			assert.Greater(t, f.events.starts[p], prevEnd, "page %d started before batch %d finished", p, i)
		}
	}
}

func TestIngestionPipeline_Run_RecordsUseDeterministicKeys(t *testing.T) {
	f := newPipelineFixture(service.DefaultPipelineConfig())

	_, err := f.pipeline.Run(context.Background(), f.document(2), f.docID, f.tracker)
	require.NoError(t, err)

	assets, err := f.repo.ListByDocument(context.Background(), f.docID)
	require.NoError(t, err)
	require.Len(t, assets, 2)

	for _, a := range assets {
		assert.Equal(t, f.docID, a.DocumentID)
		assert.NotEqual(t, uuid.Nil, a.ID)
		assert.False(t, a.CreatedAt.IsZero())
		assert.Equal(t, fmt.Sprintf("https://cdn.test/%s/page-%d.jpg", f.docID, a.PageNumber), a.ImageURL)
		require.NotNil(t, a.ThumbnailURL)
		assert.Equal(t, fmt.Sprintf("https://cdn.test/%s/thumb-%d.jpg", f.docID, a.PageNumber), *a.ThumbnailURL)
	}
}

func TestIngestionPipeline_Run_UsesConfiguredScalesAndQualities(t *testing.T) {
	f := newPipelineFixture(service.DefaultPipelineConfig())
	doc := f.document(1)

	_, err := f.pipeline.Run(context.Background(), doc, f.docID, f.tracker)
	require.NoError(t, err)

	assert.ElementsMatch(t, []float64{2.0, 0.3}, doc.scales)
	assert.ElementsMatch(t, []float64{0.9, 0.7}, f.encoder.qualities)
	assert.Equal(t, []byte("1224x1584@0.9"), f.blobs.objects[service.AssetKey(f.docID, domain.AssetRolePage, 1, "jpg")])
	assert.Equal(t, []byte("184x238@0.7"), f.blobs.objects[service.AssetKey(f.docID, domain.AssetRoleThumbnail, 1, "jpg")])
}

func TestIngestionPipeline_Run_EmptyDocument(t *testing.T) {
	f := newPipelineFixture(service.DefaultPipelineConfig())
	doc := f.document(0)

	pages, err := f.pipeline.Run(context.Background(), doc, f.docID, f.tracker)

	require.NoError(t, err)
	assert.Equal(t, 0, pages)
	assert.Equal(t, 1, f.repo.deletes)
	assert.Empty(t, f.blobs.keys())
	assert.Equal(t, domain.IngestionProgress{Total: 0, Done: 0, Status: domain.IngestionStatusDone}, f.tracker.Snapshot())
	assert.Equal(t, int32(1), doc.closeCount.Load())
}

func TestIngestionPipeline_Run_Idempotent(t *testing.T) {
	f := newPipelineFixture(service.DefaultPipelineConfig())

	_, err := f.pipeline.Run(context.Background(), f.document(5), f.docID, f.tracker)
	require.NoError(t, err)
	firstKeys := f.blobs.keys()
	first, _ := f.repo.ListByDocument(context.Background(), f.docID)
	require.NoError(t, f.tracker.Reset())

	_, err = f.pipeline.Run(context.Background(), f.document(5), f.docID, f.tracker)
	require.NoError(t, err)
	second, _ := f.repo.ListByDocument(context.Background(), f.docID)

	assert.Equal(t, firstKeys, f.blobs.keys())
	require.Len(t, second, len(first))
	for i := range first {
		assert.Equal(t, first[i].PageNumber, second[i].PageNumber)
		assert.Equal(t, first[i].ImageURL, second[i].ImageURL)
		assert.Equal(t, first[i].ThumbnailURL, second[i].ThumbnailURL)
	}
	assert.Equal(t, 2, f.repo.deletes)
}

func TestIngestionPipeline_Run_ReingestShrinksToNewPageCount(t *testing.T) {
	f := newPipelineFixture(service.DefaultPipelineConfig())

	_, err := f.pipeline.Run(context.Background(), f.document(6), f.docID, f.tracker)
	require.NoError(t, err)
	require.NoError(t, f.tracker.Reset())
	_, err = f.pipeline.Run(context.Background(), f.document(2), f.docID, f.tracker)
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2}, f.repo.pageNumbers(f.docID))
}

func TestIngestionPipeline_Run_ThumbnailRenderFailureIsIsolated(t *testing.T) {
	f := newPipelineFixture(service.DefaultPipelineConfig())
	doc := f.document(3)
	doc.thumbErr[2] = errors.New("thumbnail raster failed")

	pages, err := f.pipeline.Run(context.Background(), doc, f.docID, f.tracker)

	require.NoError(t, err)
	assert.Equal(t, 3, pages)
	assets, _ := f.repo.ListByDocument(context.Background(), f.docID)
	require.Len(t, assets, 3)
	assert.NotNil(t, assets[0].ThumbnailURL)
	assert.Nil(t, assets[1].ThumbnailURL)
	assert.NotNil(t, assets[2].ThumbnailURL)
	assert.Equal(t, domain.IngestionStatusDone, f.tracker.Snapshot().Status)
}

func TestIngestionPipeline_Run_ThumbnailEncodeFailureIsIsolated(t *testing.T) {
	f := newPipelineFixture(service.DefaultPipelineConfig())
	f.encoder.fail = func(_ image.Image, quality float64) error {
		if quality < 0.8 {
			return errors.New("encoder rejected thumbnail")
		}
		return nil
	}

	_, err := f.pipeline.Run(context.Background(), f.document(2), f.docID, f.tracker)

	require.NoError(t, err)
	assets, _ := f.repo.ListByDocument(context.Background(), f.docID)
	require.Len(t, assets, 2)
	for _, a := range assets {
		assert.Nil(t, a.ThumbnailURL)
		assert.NotEmpty(t, a.ImageURL)
	}
}

func TestIngestionPipeline_Run_ThumbnailUploadFailureIsIsolated(t *testing.T) {
	f := newPipelineFixture(service.DefaultPipelineConfig())
	f.blobs.failKeys["/thumb-1.jpg"] = errors.New("bucket unavailable")

	_, err := f.pipeline.Run(context.Background(), f.document(2), f.docID, f.tracker)

	require.NoError(t, err)
	assets, _ := f.repo.ListByDocument(context.Background(), f.docID)
	require.Len(t, assets, 2)
	assert.Nil(t, assets[0].ThumbnailURL)
	assert.NotNil(t, assets[1].ThumbnailURL)
}

func TestIngestionPipeline_Run_PrimaryUploadFailureAbortsRun(t *testing.T) {
	f := newPipelineFixture(service.DefaultPipelineConfig())
	doc := f.document(7)
	f.blobs.failKeys["/page-5.jpg"] = errors.New("network down")

	pages, err := f.pipeline.Run(context.Background(), doc, f.docID, f.tracker)

	require.Error(t, err)
	assert.Equal(t, 0, pages)

	var ierr *domain.IngestionError
	require.True(t, errors.As(err, &ierr))
	assert.Equal(t, domain.UploadFailure, ierr.Kind)
	assert.Equal(t, 5, ierr.PageNumber)

	// Batch 1 is persisted; batch 3 never starts.
	persisted := f.repo.pageNumbers(f.docID)
	assert.Subset(t, persisted, []int{1, 2, 3})
	assert.NotContains(t, persisted, 5)
	assert.NotContains(t, persisted, 7)
	_, started := f.events.starts[7]
	assert.False(t, started)

	snap := f.tracker.Snapshot()
	assert.Equal(t, domain.IngestionStatusError, snap.Status)
	assert.Contains(t, snap.Error, "page 5")
	assert.Equal(t, int32(1), doc.closeCount.Load())
}

func TestIngestionPipeline_Run_FatalKinds(t *testing.T) {
	tests := []struct {
		name  string
		setup func(f *pipelineFixture, doc *fakeDocument)
		kind  domain.IngestionErrorKind
	}{
		{
			name: "render",
			setup: func(_ *pipelineFixture, doc *fakeDocument) {
				doc.hiResErr[2] = errors.New("corrupt content stream")
			},
			kind: domain.RenderFailure,
		},
		{
			name: "encode",
			setup: func(f *pipelineFixture, _ *fakeDocument) {
				f.encoder.fail = func(img image.Image, quality float64) error {
					if quality > 0.8 && img.Bounds().Dx() > 0 {
						return errors.New("out of memory")
					}
					return nil
				}
			},
			kind: domain.EncodeFailure,
		},
		{
			name: "persist",
			setup: func(f *pipelineFixture, _ *fakeDocument) {
				f.repo.createErr[2] = errors.New("connection reset")
			},
			kind: domain.PersistFailure,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newPipelineFixture(service.DefaultPipelineConfig())
			doc := f.document(2)
			tt.setup(f, doc)

			_, err := f.pipeline.Run(context.Background(), doc, f.docID, f.tracker)

			var ierr *domain.IngestionError
			require.True(t, errors.As(err, &ierr), "got %v", err)
			assert.Equal(t, tt.kind, ierr.Kind)
			assert.True(t, ierr.Kind.IsPageFailure())
			assert.Equal(t, domain.IngestionStatusError, f.tracker.Snapshot().Status)
			assert.Equal(t, int32(1), doc.closeCount.Load())
		})
	}
}

func TestIngestionPipeline_Run_PersistFailureLeavesUploadedBlobs(t *testing.T) {
	f := newPipelineFixture(service.PipelineConfig{BatchSize: 1})
	f.repo.createErr[1] = errors.New("constraint violation")

	_, err := f.pipeline.Run(context.Background(), f.document(1), f.docID, f.tracker)

	require.Error(t, err)
	assert.Contains(t, f.blobs.keys(), service.AssetKey(f.docID, domain.AssetRolePage, 1, "jpg"))
	assert.Empty(t, f.repo.pageNumbers(f.docID))
}

func TestIngestionPipeline_Run_MetadataCleanupFailure(t *testing.T) {
	f := newPipelineFixture(service.DefaultPipelineConfig())
	f.repo.deleteErr = errors.New("permission denied")
	doc := f.document(4)

	_, err := f.pipeline.Run(context.Background(), doc, f.docID, f.tracker)

	var ierr *domain.IngestionError
	require.True(t, errors.As(err, &ierr))
	assert.Equal(t, domain.MetadataCleanupFailure, ierr.Kind)
	assert.False(t, ierr.Kind.IsPageFailure())
	assert.Zero(t, f.blobs.uploads)
	assert.Equal(t, domain.IngestionStatusError, f.tracker.Snapshot().Status)
	assert.Equal(t, int32(1), doc.closeCount.Load())
}

func TestIngestionPipeline_Run_ProgressIsMonotonic(t *testing.T) {
	f := newPipelineFixture(service.PipelineConfig{BatchSize: 2})
	doc := f.document(9)
	doc.renderDelay = 2 * time.Millisecond

	updates, stop := f.tracker.Subscribe()
	var seen []domain.IngestionProgress
	collected := make(chan struct{})
	go func() {
		defer close(collected)
		for u := range updates {
			seen = append(seen, u)
		}
	}()

	_, err := f.pipeline.Run(context.Background(), doc, f.docID, f.tracker)
	require.NoError(t, err)
	stop()
	<-collected

	require.NotEmpty(t, seen)
	for i := 1; i < len(seen); i++ {
		if seen[i-1].Status == domain.IngestionStatusIdle {
			continue
		}
		assert.GreaterOrEqual(t, seen[i].Done, seen[i-1].Done)
		assert.LessOrEqual(t, seen[i].Done, seen[i].Total)
	}
	assert.Equal(t, domain.IngestionProgress{Total: 9, Done: 9, Status: domain.IngestionStatusDone}, seen[len(seen)-1])
}

func TestIngestionPipeline_Run_CancelFinishesInFlightBatch(t *testing.T) {
	f := newPipelineFixture(service.DefaultPipelineConfig())
	doc := f.document(7)
	doc.renderDelay = 50 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	updates, stop := f.tracker.Subscribe()
	defer stop()
	go func() {
		for u := range updates {
			if u.Status == domain.IngestionStatusRendering {
				cancel()
				return
			}
		}
	}()

	pages, err := f.pipeline.Run(ctx, doc, f.docID, f.tracker)

	require.Error(t, err)
	assert.Equal(t, 0, pages)
	assert.True(t, errors.Is(err, domain.ErrCancelled))
	var ierr *domain.IngestionError
	assert.False(t, errors.As(err, &ierr))

	snap := f.tracker.Snapshot()
	assert.Equal(t, domain.IngestionStatusError, snap.Status)
	assert.LessOrEqual(t, snap.Done, 3)
	assert.NotContains(t, f.repo.pageNumbers(f.docID), 7)
	assert.Equal(t, int32(1), doc.closeCount.Load())
}

func TestIngestionPipeline_Run_PageTimeoutIsRenderFailure(t *testing.T) {
	cfg := service.DefaultPipelineConfig()
	cfg.PageTimeout = 20 * time.Millisecond
	f := newPipelineFixture(cfg)
	doc := f.document(1)
	doc.renderDelay = time.Second

	_, err := f.pipeline.Run(context.Background(), doc, f.docID, f.tracker)

	var ierr *domain.IngestionError
	require.True(t, errors.As(err, &ierr))
	assert.Equal(t, domain.RenderFailure, ierr.Kind)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestIngestionPipeline_Run_RejectsActiveTracker(t *testing.T) {
	f := newPipelineFixture(service.DefaultPipelineConfig())
	require.NoError(t, f.tracker.Start(4))
	doc := f.document(2)

	_, err := f.pipeline.Run(context.Background(), doc, f.docID, f.tracker)

	assert.ErrorIs(t, err, domain.ErrIngestionInProgress)
	assert.Equal(t, 0, f.repo.deletes)
	assert.Equal(t, int32(1), doc.closeCount.Load())
}

func TestIngestionPipeline_Run_RejectsFinishedTracker(t *testing.T) {
	f := newPipelineFixture(service.DefaultPipelineConfig())
	_, err := f.pipeline.Run(context.Background(), f.document(1), f.docID, f.tracker)
	require.NoError(t, err)
	doc := f.document(2)

	_, err = f.pipeline.Run(context.Background(), doc, f.docID, f.tracker)

	assert.ErrorIs(t, err, domain.ErrProgressNotReset)
	assert.Equal(t, 1, f.repo.deletes)
	assert.Equal(t, domain.IngestionProgress{Total: 1, Done: 1, Status: domain.IngestionStatusDone}, f.tracker.Snapshot())
	assert.Equal(t, int32(1), doc.closeCount.Load())
}

func TestIngestionPipeline_Run_BatchSizeOneIsSequential(t *testing.T) {
	f := newPipelineFixture(service.PipelineConfig{BatchSize: 1})
	doc := f.document(4)
	doc.renderDelay = 5 * time.Millisecond

	_, err := f.pipeline.Run(context.Background(), doc, f.docID, f.tracker)

	require.NoError(t, err)
	assert.Equal(t, int32(1), doc.maxActive.Load())
}

func TestAssetKey(t *testing.T) {
	id := uuid.MustParse("3f2b8c1e-9d4a-4e6b-8f1a-2c3d4e5f6a7b")

	assert.Equal(t, "3f2b8c1e-9d4a-4e6b-8f1a-2c3d4e5f6a7b/page-12.jpg",
		service.AssetKey(id, domain.AssetRolePage, 12, "jpg"))
	assert.Equal(t, "3f2b8c1e-9d4a-4e6b-8f1a-2c3d4e5f6a7b/thumb-1.jpg",
		service.AssetKey(id, domain.AssetRoleThumbnail, 1, "jpg"))
}
