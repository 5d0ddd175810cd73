package handler

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"libris/internal/export"
	"libris/internal/service"
)

// PageHandler serves the page assets of ingested documents.
type PageHandler struct {
	ingestService service.IngestService
}

// NewPageHandler creates a new PageHandler.
func NewPageHandler(ingestService service.IngestService) *PageHandler {
	return &PageHandler{ingestService: ingestService}
}

// List handles GET /api/v1/documents/:id/pages
// @Summary List page assets
// @Description List the rendered pages of a document in page order
// @Tags pages
// @Produce json
// @Param id path string true "Document ID (UUID)"
// @Success 200 {object} Response{data=[]domain.PageAsset} "Page assets"
// @Failure 400 {object} ErrorResponseBody "Invalid ID"
// @Failure 401 {object} ErrorResponseBody "Unauthorized"
// @Security BearerAuth
// @Router /documents/{id}/pages [get]
func (h *PageHandler) List(c *gin.Context) {
	documentID, ok := parseDocumentID(c)
	if !ok {
		return
	}

	pages, err := h.ingestService.ListPages(c.Request.Context(), documentID)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondOK(c, pages)
}

// Export handles GET /api/v1/documents/:id/pages/export?format=csv|xlsx
// @Summary Export page manifest
// @Tags pages
// @Produce text/csv
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param id path string true "Document ID (UUID)"
// @Param format query string false "Export format" Enums(csv, xlsx) default(csv)
// @Success 200 {file} file "Page manifest"
// @Failure 400 {object} ErrorResponseBody "Invalid ID or format"
// @Failure 401 {object} ErrorResponseBody "Unauthorized"
// @Security BearerAuth
// @Router /documents/{id}/pages/export [get]
func (h *PageHandler) Export(c *gin.Context) {
	documentID, ok := parseDocumentID(c)
	if !ok {
		return
	}

	format, err := export.ParseFormat(c.Query("format"))
	if err != nil {
		HandleError(c, err)
		return
	}

	pages, err := h.ingestService.ListPages(c.Request.Context(), documentID)
	if err != nil {
		HandleError(c, err)
		return
	}

	// Render fully before writing headers so failures still get a JSON error.
	var buf bytes.Buffer
	if err := export.Write(&buf, format, pages); err != nil {
		HandleError(c, fmt.Errorf("pageHandler.Export: %w", err))
		return
	}

	filename := export.BuildFilename(documentID, format, time.Now())
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, export.ContentType(format), buf.Bytes())
}
