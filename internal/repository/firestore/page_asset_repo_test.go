package firestore

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocKey_SortsByPage(t *testing.T) {
	id := uuid.MustParse("7d3f1c9e-8a41-4f6e-9c55-0b7a2e1d4c10")

	assert.Equal(t, "7d3f1c9e-8a41-4f6e-9c55-0b7a2e1d4c10_000007", docKey(id, 7))
	assert.Less(t, docKey(id, 9), docKey(id, 10))
}

func TestPageAssetDoc_ToDomain(t *testing.T) {
	id := uuid.New()
	docID := uuid.New()
	thumb := "https://cdn.test/thumb-1.jpg"
	created := time.Date(2025, 3, 4, 10, 0, 0, 0, time.UTC)

	asset, err := pageAssetDoc{
		ID:           id.String(),
		DocumentID:   docID.String(),
		PageNumber:   1,
		ImageURL:     "https://cdn.test/page-1.jpg",
		ThumbnailURL: &thumb,
		CreatedAt:    created,
	}.toDomain()
	require.NoError(t, err)

	assert.Equal(t, id, asset.ID)
	assert.Equal(t, docID, asset.DocumentID)
	assert.Equal(t, 1, asset.PageNumber)
	assert.Equal(t, &thumb, asset.ThumbnailURL)
	assert.Equal(t, created, asset.CreatedAt)
}

func TestPageAssetDoc_ToDomain_BadID(t *testing.T) {
	_, err := pageAssetDoc{ID: "nope", DocumentID: uuid.NewString()}.toDomain()
	assert.Error(t, err)
}
