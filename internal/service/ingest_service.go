package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"libris/internal/domain"
	"libris/internal/port"
)

// SubmitInput is the DTO for queueing a document for ingestion.
type SubmitInput struct {
	DocumentID uuid.UUID
	FileName   string
	Size       int64
	Body       io.Reader
}

// IngestService defines the document ingestion contract.
type IngestService interface {
	// Submit validates an upload and queues it for asynchronous ingestion.
	Submit(ctx context.Context, input SubmitInput) (*domain.IngestionJob, error)
	// Ingest runs one ingestion synchronously and returns the page count.
	Ingest(ctx context.Context, documentID uuid.UUID, data []byte) (int, error)
	Progress(ctx context.Context, documentID uuid.UUID) (*domain.IngestionProgress, error)
	// Watch streams progress updates for documentID until stop is called.
	Watch(documentID uuid.UUID) (updates <-chan domain.IngestionProgress, stop func())
	Reset(ctx context.Context, documentID uuid.UUID) error
	Cancel(documentID uuid.UUID) error
	ListPages(ctx context.Context, documentID uuid.UUID) ([]domain.PageAsset, error)
}

// documentRun tracks the ingestion state of one document within this process.
type documentRun struct {
	tracker *ProgressTracker
	cancel  context.CancelFunc // set while a run is active
	queued  bool
	dropped bool // cancelled while still queued
}

func (r *documentRun) busy() bool {
	return r.cancel != nil || r.queued
}

type ingestService struct {
	opener       port.DocumentOpener
	inspector    port.DocumentInspector
	pipeline     *IngestionPipeline
	assets       port.PageAssetRepository
	progress     port.ProgressStore
	queue        *IngestQueue
	maxFileBytes int64

	mu   sync.Mutex
	runs map[uuid.UUID]*documentRun
	// finished lists documents whose last run ended, oldest first. Runs past
	// maxFinished are evicted; their progress is then served from the store.
	finished    []uuid.UUID
	maxFinished int
}

const defaultRetainedRuns = 1024

// NewIngestService creates a new IngestService implementation.
func NewIngestService(
	opener port.DocumentOpener,
	inspector port.DocumentInspector,
	pipeline *IngestionPipeline,
	assets port.PageAssetRepository,
	progress port.ProgressStore,
	queue *IngestQueue,
	maxFileSizeMB int64,
) IngestService {
	return &ingestService{
		opener:       opener,
		inspector:    inspector,
		pipeline:     pipeline,
		assets:       assets,
		progress:     progress,
		queue:        queue,
		maxFileBytes: maxFileSizeMB * 1024 * 1024,
		runs:         make(map[uuid.UUID]*documentRun),
		maxFinished:  defaultRetainedRuns,
	}
}

// runLocked returns the run state for documentID, creating it if needed. Caller holds mu.
func (s *ingestService) runLocked(documentID uuid.UUID) *documentRun {
	run, ok := s.runs[documentID]
	if !ok {
		run = &documentRun{tracker: NewProgressTracker()}
		s.runs[documentID] = run
	}
	return run
}

func (s *ingestService) Submit(ctx context.Context, input SubmitInput) (*domain.IngestionJob, error) {
	if input.DocumentID == uuid.Nil {
		return nil, domain.ErrInvalidDocumentID
	}
	if input.Size > s.maxFileBytes {
		return nil, domain.ErrFileTooLarge
	}

	data, err := io.ReadAll(io.LimitReader(input.Body, s.maxFileBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading upload: %w", err)
	}
	if int64(len(data)) > s.maxFileBytes {
		return nil, domain.ErrFileTooLarge
	}

	// Magic-byte content type detection
	head := data
	if len(head) > 512 {
		head = head[:512]
	}
	if _, ok := domain.AllowedContentTypes[http.DetectContentType(head)]; !ok {
		return nil, domain.ErrUnsupportedFileType
	}

	info, err := s.inspector.Inspect(ctx, data)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	run := s.runLocked(input.DocumentID)
	if run.busy() {
		return nil, domain.ErrIngestionInProgress
	}
	if err := run.tracker.Reset(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if err := s.queue.Enqueue(IngestJob{
		DocumentID: input.DocumentID,
		FileName:   input.FileName,
		Data:       data,
		QueuedAt:   now,
	}); err != nil {
		return nil, err
	}
	run.queued = true
	run.dropped = false

	log.Info().
		Str("document_id", input.DocumentID.String()).
		Int("pages", info.PageCount).
		Int64("size_bytes", info.SizeBytes).
		Msg("ingestService.Submit: queued")

	return &domain.IngestionJob{
		DocumentID: input.DocumentID,
		FileName:   input.FileName,
		SizeBytes:  info.SizeBytes,
		PageCount:  info.PageCount,
		Progress:   run.tracker.Snapshot(),
		QueuedAt:   now,
	}, nil
}

func (s *ingestService) Ingest(ctx context.Context, documentID uuid.UUID, data []byte) (int, error) {
	if documentID == uuid.Nil {
		return 0, domain.ErrInvalidDocumentID
	}

	s.mu.Lock()
	run := s.runLocked(documentID)
	if run.cancel != nil {
		s.mu.Unlock()
		return 0, domain.ErrIngestionInProgress
	}
	// Each run starts from idle so an early failure replaces the previous result.
	if err := run.tracker.Reset(); err != nil {
		s.mu.Unlock()
		return 0, err
	}
	dropped := run.dropped
	run.dropped = false
	run.queued = false
	runCtx, cancel := context.WithCancel(ctx)
	run.cancel = cancel
	tracker := run.tracker
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		run.cancel = nil
		s.retireLocked(documentID)
		s.mu.Unlock()
		cancel()
	}()

	stopPublishing := s.publishProgress(documentID, tracker)
	defer stopPublishing()

	if dropped {
		tracker.Fail(domain.ErrCancelled.Error())
		return 0, domain.ErrCancelled
	}

	doc, err := s.opener.Open(runCtx, data)
	if err != nil {
		tracker.Fail(err.Error())
		return 0, err
	}

	return s.pipeline.Run(runCtx, doc, documentID, tracker)
}

// retireLocked marks documentID's run as finished and evicts the oldest
// finished runs beyond the retention limit. Runs that are busy again or still
// watched are skipped. Caller holds mu.
func (s *ingestService) retireLocked(documentID uuid.UUID) {
	if i := slices.Index(s.finished, documentID); i >= 0 {
		s.finished = slices.Delete(s.finished, i, i+1)
	}
	s.finished = append(s.finished, documentID)

	for len(s.finished) > s.maxFinished {
		oldest := s.finished[0]
		s.finished = s.finished[1:]
		if run, ok := s.runs[oldest]; ok && !run.busy() && run.tracker.Watchers() == 0 {
			delete(s.runs, oldest)
		}
	}
}

// publishProgress mirrors tracker updates to the shared progress store until
// the returned function is called. Stopping waits for the last buffered update
// to be written.
func (s *ingestService) publishProgress(documentID uuid.UUID, tracker *ProgressTracker) func() {
	updates, unsubscribe := tracker.Subscribe()
	done := make(chan struct{})

	go func() {
		defer close(done)
		for snap := range updates {
			saveCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := s.progress.Save(saveCtx, documentID, snap); err != nil {
				log.Warn().Err(err).
					Str("document_id", documentID.String()).
					Msg("ingestService.publishProgress: saving progress failed")
			}
			cancel()
		}
	}()

	return func() {
		unsubscribe()
		<-done
	}
}

func (s *ingestService) Progress(ctx context.Context, documentID uuid.UUID) (*domain.IngestionProgress, error) {
	if documentID == uuid.Nil {
		return nil, domain.ErrInvalidDocumentID
	}

	s.mu.Lock()
	run, ok := s.runs[documentID]
	s.mu.Unlock()
	if ok {
		snap := run.tracker.Snapshot()
		return &snap, nil
	}

	progress, err := s.progress.Get(ctx, documentID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("loading shared progress: %w", err)
	}
	return progress, nil
}

func (s *ingestService) Watch(documentID uuid.UUID) (<-chan domain.IngestionProgress, func()) {
	s.mu.Lock()
	run := s.runLocked(documentID)
	s.mu.Unlock()
	return run.tracker.Subscribe()
}

func (s *ingestService) Reset(ctx context.Context, documentID uuid.UUID) error {
	if documentID == uuid.Nil {
		return domain.ErrInvalidDocumentID
	}

	s.mu.Lock()
	run, ok := s.runs[documentID]
	if ok {
		if run.busy() {
			s.mu.Unlock()
			return domain.ErrIngestionInProgress
		}
		if err := run.tracker.Reset(); err != nil {
			s.mu.Unlock()
			return err
		}
	}
	s.mu.Unlock()

	if err := s.progress.Delete(ctx, documentID); err != nil {
		return fmt.Errorf("clearing shared progress: %w", err)
	}
	return nil
}

func (s *ingestService) Cancel(documentID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	run, ok := s.runs[documentID]
	if !ok || !run.busy() {
		return domain.ErrNotFound
	}
	if run.cancel != nil {
		run.cancel()
	} else {
		run.dropped = true
	}
	log.Info().Str("document_id", documentID.String()).Msg("ingestService.Cancel: cancellation requested")
	return nil
}

func (s *ingestService) ListPages(ctx context.Context, documentID uuid.UUID) ([]domain.PageAsset, error) {
	if documentID == uuid.Nil {
		return nil, domain.ErrInvalidDocumentID
	}
	return s.assets.ListByDocument(ctx, documentID)
}
