package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"libris/internal/config"
	"libris/internal/domain"
	"libris/internal/port"
)

const progressKeySpace = "ingest:progress:"

type progressStore struct {
	client goredis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewClient connects to Redis and verifies the connection with a ping.
func NewClient(ctx context.Context, cfg *config.RedisConfig) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

// NewProgressStore creates a Redis-backed ProgressStore. Snapshots expire after ttl
// so abandoned documents do not accumulate.
func NewProgressStore(client goredis.UniversalClient, prefix string, ttl time.Duration) port.ProgressStore {
	return &progressStore{client: client, prefix: prefix, ttl: ttl}
}

func (s *progressStore) key(documentID uuid.UUID) string {
	return s.prefix + progressKeySpace + documentID.String()
}

func (s *progressStore) Save(ctx context.Context, documentID uuid.UUID, progress domain.IngestionProgress) error {
	payload, err := json.Marshal(progress)
	if err != nil {
		return fmt.Errorf("progressStore.Save marshal: %w", err)
	}
	if err := s.client.Set(ctx, s.key(documentID), payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("progressStore.Save: %w", err)
	}
	return nil
}

func (s *progressStore) Get(ctx context.Context, documentID uuid.UUID) (*domain.IngestionProgress, error) {
	payload, err := s.client.Get(ctx, s.key(documentID)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("progressStore.Get: %w", err)
	}

	var progress domain.IngestionProgress
	if err := json.Unmarshal(payload, &progress); err != nil {
		return nil, fmt.Errorf("progressStore.Get unmarshal: %w", err)
	}
	return &progress, nil
}

func (s *progressStore) Delete(ctx context.Context, documentID uuid.UUID) error {
	if err := s.client.Del(ctx, s.key(documentID)).Err(); err != nil {
		return fmt.Errorf("progressStore.Delete: %w", err)
	}
	return nil
}
