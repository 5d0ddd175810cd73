package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"libris/internal/middleware"
	"libris/internal/service"
)

// IngestionHandler handles document ingestion endpoints.
type IngestionHandler struct {
	ingestService service.IngestService
}

// NewIngestionHandler creates a new IngestionHandler.
func NewIngestionHandler(ingestService service.IngestService) *IngestionHandler {
	return &IngestionHandler{ingestService: ingestService}
}

// Submit handles POST /api/v1/documents/:id/ingest
// @Summary Queue a document for ingestion
// @Description Upload a PDF and queue it to be rendered into page images
// @Tags ingestion
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Document ID (UUID)"
// @Param file formData file true "PDF file"
// @Success 202 {object} Response{data=domain.IngestionJob} "Ingestion queued"
// @Failure 400 {object} ErrorResponseBody "Invalid ID, missing file or unsupported type"
// @Failure 401 {object} ErrorResponseBody "Unauthorized"
// @Failure 409 {object} ErrorResponseBody "Ingestion already in progress"
// @Failure 413 {object} ErrorResponseBody "File too large"
// @Failure 422 {object} ErrorResponseBody "Document could not be read"
// @Failure 503 {object} ErrorResponseBody "Ingestion queue is full"
// @Security BearerAuth
// @Router /documents/{id}/ingest [post]
func (h *IngestionHandler) Submit(c *gin.Context) {
	documentID, ok := parseDocumentID(c)
	if !ok {
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "MISSING_FILE", "file field is required")
		return
	}
	defer func() { _ = file.Close() }()

	job, err := h.ingestService.Submit(c.Request.Context(), service.SubmitInput{
		DocumentID: documentID,
		FileName:   header.Filename,
		Size:       header.Size,
		Body:       file,
	})
	if err != nil {
		HandleError(c, err)
		return
	}

	if userID, err := middleware.GetUserID(c); err == nil {
		log.Info().
			Str("document_id", documentID.String()).
			Str("user_id", userID.String()).
			Msg("ingestionHandler.Submit: accepted")
	}

	RespondAccepted(c, job)
}

// Progress handles GET /api/v1/documents/:id/ingest/progress
// @Summary Get ingestion progress
// @Tags ingestion
// @Produce json
// @Param id path string true "Document ID (UUID)"
// @Success 200 {object} Response{data=domain.IngestionProgress} "Current progress"
// @Failure 400 {object} ErrorResponseBody "Invalid ID"
// @Failure 401 {object} ErrorResponseBody "Unauthorized"
// @Failure 404 {object} ErrorResponseBody "No ingestion known for document"
// @Security BearerAuth
// @Router /documents/{id}/ingest/progress [get]
func (h *IngestionHandler) Progress(c *gin.Context) {
	documentID, ok := parseDocumentID(c)
	if !ok {
		return
	}

	progress, err := h.ingestService.Progress(c.Request.Context(), documentID)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondOK(c, progress)
}

// Cancel handles DELETE /api/v1/documents/:id/ingest
// @Summary Cancel an ingestion
// @Description Stop a running ingestion at the next batch boundary, or drop a queued one
// @Tags ingestion
// @Produce json
// @Param id path string true "Document ID (UUID)"
// @Success 202 {object} Response{data=MessageData} "Cancellation requested"
// @Failure 400 {object} ErrorResponseBody "Invalid ID"
// @Failure 401 {object} ErrorResponseBody "Unauthorized"
// @Failure 404 {object} ErrorResponseBody "No ingestion pending"
// @Security BearerAuth
// @Router /documents/{id}/ingest [delete]
func (h *IngestionHandler) Cancel(c *gin.Context) {
	documentID, ok := parseDocumentID(c)
	if !ok {
		return
	}

	if err := h.ingestService.Cancel(documentID); err != nil {
		HandleError(c, err)
		return
	}

	RespondAccepted(c, gin.H{"message": "cancellation requested"})
}

// Reset handles POST /api/v1/documents/:id/ingest/reset
// @Summary Reset ingestion progress
// @Tags ingestion
// @Produce json
// @Param id path string true "Document ID (UUID)"
// @Success 200 {object} Response{data=MessageData} "Progress reset"
// @Failure 400 {object} ErrorResponseBody "Invalid ID"
// @Failure 401 {object} ErrorResponseBody "Unauthorized"
// @Failure 409 {object} ErrorResponseBody "Ingestion in progress"
// @Security BearerAuth
// @Router /documents/{id}/ingest/reset [post]
func (h *IngestionHandler) Reset(c *gin.Context) {
	documentID, ok := parseDocumentID(c)
	if !ok {
		return
	}

	if err := h.ingestService.Reset(c.Request.Context(), documentID); err != nil {
		HandleError(c, err)
		return
	}

	RespondOK(c, gin.H{"message": "progress reset"})
}
