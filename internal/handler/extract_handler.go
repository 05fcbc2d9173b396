package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"hoadon/internal/domain"
	"hoadon/internal/service"
)

// ExtractHandler handles document extraction endpoints.
type ExtractHandler struct {
	svc          service.ExtractionService
	maxUploadLen int64
}

// NewExtractHandler creates a new ExtractHandler. maxUploadLen bounds the
// multipart body read; precise size validation happens downstream.
func NewExtractHandler(svc service.ExtractionService, maxUploadLen int64) *ExtractHandler {
	return &ExtractHandler{svc: svc, maxUploadLen: maxUploadLen}
}

// TextExtractionRequest is the body of POST /api/v1/extract/text.
type TextExtractionRequest struct {
	Text              string `json:"text" binding:"required"`
	DocumentType      string `json:"document_type"`
	AdditionalContext string `json:"additional_context"`
}

// Upload handles POST /api/v1/extract/upload.
// Accepts a multipart file plus optional document_type and
// additional_context form fields, runs extraction synchronously, and
// returns the recorded job.
func (h *ExtractHandler) Upload(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "MISSING_FILE", "file field is required")
		return
	}
	defer func() { _ = file.Close() }()

	// One byte past the limit is enough to prove the file is too large.
	raw, err := io.ReadAll(io.LimitReader(file, h.maxUploadLen+1))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "UNREADABLE_FILE", "could not read uploaded file")
		return
	}

	job, err := h.svc.ExtractFile(
		c.Request.Context(),
		raw,
		header.Filename,
		c.PostForm("document_type"),
		c.PostForm("additional_context"),
	)
	if err != nil {
		HandleError(c, err, jobID(job))
		return
	}
	RespondCreated(c, job)
}

func jobID(job *domain.Job) string {
	if job == nil {
		return ""
	}
	return job.ID
}

// Text handles POST /api/v1/extract/text.
func (h *ExtractHandler) Text(c *gin.Context) {
	var req TextExtractionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_BODY", "text field is required")
		return
	}

	job, err := h.svc.ExtractText(c.Request.Context(), req.Text, req.DocumentType, req.AdditionalContext)
	if err != nil {
		HandleError(c, err, jobID(job))
		return
	}
	RespondCreated(c, job)
}
