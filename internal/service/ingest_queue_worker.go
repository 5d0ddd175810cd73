package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"libris/internal/domain"
)

// IngestJob is a document waiting to be ingested.
type IngestJob struct {
	DocumentID uuid.UUID
	FileName   string
	Data       []byte
	QueuedAt   time.Time
}

// IngestQueue is a bounded in-memory queue of ingestion jobs.
type IngestQueue struct {
	jobs chan IngestJob
}

// NewIngestQueue creates a queue holding at most size jobs.
func NewIngestQueue(size int) *IngestQueue {
	if size < 1 {
		size = 1
	}
	return &IngestQueue{jobs: make(chan IngestJob, size)}
}

// Enqueue adds job without blocking. It returns domain.ErrQueueFull when the queue is at capacity.
func (q *IngestQueue) Enqueue(job IngestJob) error {
	select {
	case q.jobs <- job:
		return nil
	default:
		return domain.ErrQueueFull
	}
}

// Len returns the number of jobs waiting.
func (q *IngestQueue) Len() int {
	return len(q.jobs)
}

// IngestQueueConfig holds settings for the ingest queue worker.
type IngestQueueConfig struct {
	Concurrency int
	JobTimeout  time.Duration
}

// IngestQueueWorker drains the ingest queue, running up to Concurrency
// documents at a time.
type IngestQueueWorker struct {
	queue  *IngestQueue
	ingest IngestService
	cfg    IngestQueueConfig
	wg     sync.WaitGroup
}

// NewIngestQueueWorker creates a new IngestQueueWorker.
func NewIngestQueueWorker(queue *IngestQueue, ingest IngestService, cfg IngestQueueConfig) *IngestQueueWorker {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = 30 * time.Minute
	}
	return &IngestQueueWorker{
		queue:  queue,
		ingest: ingest,
		cfg:    cfg,
	}
}

// Start runs the dispatch loop until ctx is canceled. It blocks until all
// in-flight ingestions have finished. Jobs still queued at shutdown are dropped.
func (w *IngestQueueWorker) Start(ctx context.Context) {
	sem := make(chan struct{}, w.cfg.Concurrency)

	log.Info().
		Int("concurrency", w.cfg.Concurrency).
		Dur("job_timeout", w.cfg.JobTimeout).
		Msg("ingestQueueWorker: started")

	for {
		select {
		case <-ctx.Done():
			w.shutdown()
			return
		case sem <- struct{}{}: // acquire
		}

		select {
		case <-ctx.Done():
			<-sem
			w.shutdown()
			return
		case job := <-w.queue.jobs:
			w.wg.Add(1)
			go func() {
				defer w.wg.Done()
				defer func() { <-sem }() // release
				w.dispatch(job)
			}()
		}
	}
}

func (w *IngestQueueWorker) dispatch(job IngestJob) {
	// Use a fresh context independent of the worker context
	// so in-flight ingestions complete even during shutdown.
	jobCtx, cancel := context.WithTimeout(context.Background(), w.cfg.JobTimeout)
	defer cancel()

	logger := log.With().
		Str("document_id", job.DocumentID.String()).
		Str("file_name", job.FileName).
		Logger()
	logger.Info().Dur("queued_for", time.Since(job.QueuedAt)).Msg("ingestQueueWorker: dispatching document")

	pages, err := w.ingest.Ingest(jobCtx, job.DocumentID, job.Data)
	if err != nil {
		logger.Error().Err(err).Msg("ingestQueueWorker: ingestion failed")
		return
	}
	logger.Info().Int("pages", pages).Msg("ingestQueueWorker: ingestion complete")
}

func (w *IngestQueueWorker) shutdown() {
	log.Info().Int("dropped", w.queue.Len()).Msg("ingestQueueWorker: shutting down, waiting for in-flight ingestions...")
	w.wg.Wait()
	log.Info().Msg("ingestQueueWorker: shutdown complete")
}
