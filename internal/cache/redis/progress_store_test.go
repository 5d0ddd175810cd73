package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"libris/internal/domain"
)

func TestProgressStore_Key(t *testing.T) {
	client := goredis.NewClient(&goredis.Options{Addr: "localhost:0"})
	defer func() { _ = client.Close() }()

	s := NewProgressStore(client, "libris:", time.Hour).(*progressStore)
	id := uuid.MustParse("7d3f1c9e-8a41-4f6e-9c55-0b7a2e1d4c10")
	assert.Equal(t, "libris:ingest:progress:7d3f1c9e-8a41-4f6e-9c55-0b7a2e1d4c10", s.key(id))
}

// Runs against a live server when LIBRIS_TEST_REDIS_ADDR is set.
func TestProgressStore_RoundTrip(t *testing.T) {
	addr := os.Getenv("LIBRIS_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("LIBRIS_TEST_REDIS_ADDR not set")
	}

	client := goredis.NewClient(&goredis.Options{Addr: addr})
	defer func() { _ = client.Close() }()

	ctx := context.Background()
	s := NewProgressStore(client, "libris-test:", time.Minute)
	id := uuid.New()

	_, err := s.Get(ctx, id)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	want := domain.IngestionProgress{Total: 4, Done: 2, Status: domain.IngestionStatusRendering}
	require.NoError(t, s.Save(ctx, id, want))

	got, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, want, *got)

	ttl, err := client.TTL(ctx, s.(*progressStore).key(id)).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	require.NoError(t, s.Delete(ctx, id))
	_, err = s.Get(ctx, id)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
