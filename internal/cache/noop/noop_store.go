package noop

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"libris/internal/domain"
	"libris/internal/port"
)

type noopStore struct{}

// NewNoopStore creates a ProgressStore that keeps nothing. It is used when no
// shared store is configured and progress is only served by the local process.
func NewNoopStore() port.ProgressStore {
	return &noopStore{}
}

func (s *noopStore) Save(_ context.Context, documentID uuid.UUID, progress domain.IngestionProgress) error {
	log.Trace().
		Str("document_id", documentID.String()).
		Str("status", string(progress.Status)).
		Int("done", progress.Done).
		Int("total", progress.Total).
		Msg("noopStore.Save: progress not shared")
	return nil
}

func (s *noopStore) Get(_ context.Context, _ uuid.UUID) (*domain.IngestionProgress, error) {
	return nil, domain.ErrNotFound
}

func (s *noopStore) Delete(_ context.Context, _ uuid.UUID) error {
	return nil
}
