package render_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"libris/internal/domain"
	"libris/internal/render"
)

func TestFitzOpener_RenderPage(t *testing.T) {
	doc, err := render.NewFitzOpener().Open(context.Background(), blankPDF(2))
	require.NoError(t, err)
	defer doc.Close()

	assert.Equal(t, 2, doc.PageCount())

	page, err := doc.Page(1)
	require.NoError(t, err)

	img, err := page.Render(context.Background(), 0.5)
	require.NoError(t, err)
	assert.InDelta(t, 100, img.Bounds().Dx(), 1)
	assert.InDelta(t, 50, img.Bounds().Dy(), 1)
}

func TestFitzOpener_OpenInvalid(t *testing.T) {
	doc, err := render.NewFitzOpener().Open(context.Background(), []byte("not a pdf"))

	assert.ErrorIs(t, err, domain.ErrInvalidDocument)
	assert.Nil(t, doc)
}

func TestFitzDocument_PageOutOfRange(t *testing.T) {
	doc, err := render.NewFitzOpener().Open(context.Background(), blankPDF(1))
	require.NoError(t, err)
	defer doc.Close()

	for _, index := range []int{-1, 1} {
		_, err := doc.Page(index)
		assert.ErrorIs(t, err, domain.ErrPageOutOfRange)
	}
}

func TestFitzPage_InvalidScale(t *testing.T) {
	doc, err := render.NewFitzOpener().Open(context.Background(), blankPDF(1))
	require.NoError(t, err)
	defer doc.Close()

	page, err := doc.Page(0)
	require.NoError(t, err)

	_, err = page.Render(context.Background(), 0)
	assert.Error(t, err)
}

func TestFitzDocument_AccessAfterClose(t *testing.T) {
	doc, err := render.NewFitzOpener().Open(context.Background(), blankPDF(1))
	require.NoError(t, err)
	page, err := doc.Page(0)
	require.NoError(t, err)

	require.NoError(t, doc.Close())
	require.NoError(t, doc.Close())

	_, err = doc.Page(0)
	assert.ErrorIs(t, err, domain.ErrDocumentClosed)

	_, err = page.Render(context.Background(), 1)
	assert.ErrorIs(t, err, domain.ErrDocumentClosed)
}

func TestFitzDocument_CloseWaitsForRenders(t *testing.T) {
	doc, err := render.NewFitzOpener().Open(context.Background(), blankPDF(4))
	require.NoError(t, err)

	errs := make(chan error, doc.PageCount())
	for i := range doc.PageCount() {
		page, err := doc.Page(i)
		require.NoError(t, err)
		go func() {
			_, err := page.Render(context.Background(), 2)
			errs <- err
		}()
	}

	require.NoError(t, doc.Close())

	// Each render either finished before Close or was refused after it.
	for range doc.PageCount() {
		if err := <-errs; err != nil {
			assert.ErrorIs(t, err, domain.ErrDocumentClosed)
		}
	}
}
