package handler

import (
	"bytes"
	"net/http"

	"github.com/gin-gonic/gin"

	"hoadon/internal/domain"
	"hoadon/internal/export"
	"hoadon/internal/service"
)

// JobHandler handles job retrieval, review, and export endpoints.
type JobHandler struct {
	svc service.ExtractionService
}

// NewJobHandler creates a new JobHandler.
func NewJobHandler(svc service.ExtractionService) *JobHandler {
	return &JobHandler{svc: svc}
}

// JobUpdateRequest is the body of PUT /api/v1/jobs/:id.
type JobUpdateRequest struct {
	Invoice     domain.Invoice `json:"invoice" binding:"required"`
	ReviewNotes string         `json:"review_notes"`
}

// Get handles GET /api/v1/jobs/:id.
func (h *JobHandler) Get(c *gin.Context) {
	job, err := h.svc.GetJob(c.Param("id"))
	if err != nil {
		HandleError(c, err, "")
		return
	}
	RespondOK(c, job)
}

// Update handles PUT /api/v1/jobs/:id. The reviewed invoice replaces the
// extracted one and totals are re-reconciled.
func (h *JobHandler) Update(c *gin.Context) {
	var req JobUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_BODY", "invoice field is required")
		return
	}

	job, err := h.svc.UpdateJob(c.Param("id"), req.Invoice, req.ReviewNotes)
	if err != nil {
		HandleError(c, err, "")
		return
	}
	RespondOK(c, job)
}

// Export handles GET /api/v1/jobs/:id/export?format=xlsx|csv|json.
func (h *JobHandler) Export(c *gin.Context) {
	job, err := h.svc.GetJob(c.Param("id"))
	if err != nil {
		HandleError(c, err, "")
		return
	}
	if job.Status != domain.JobStatusCompleted || job.Result == nil {
		RespondError(c, http.StatusConflict, "JOB_NOT_COMPLETED", "only completed jobs can be exported")
		return
	}

	format := c.DefaultQuery("format", "json")
	switch format {
	case "json":
		c.Header("Content-Disposition", "attachment; filename="+export.BuildFilename(job.ID, "json"))
		c.JSON(http.StatusOK, job.Result)

	case "csv":
		var buf bytes.Buffer
		if err := export.WriteCSV(&buf, job); err != nil {
			RespondError(c, http.StatusInternalServerError, "EXPORT_FAILED", err.Error())
			return
		}
		c.Header("Content-Disposition", "attachment; filename="+export.BuildFilename(job.ID, "csv"))
		c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())

	case "xlsx":
		var buf bytes.Buffer
		if err := export.WriteExcel(&buf, job); err != nil {
			RespondError(c, http.StatusInternalServerError, "EXPORT_FAILED", err.Error())
			return
		}
		c.Header("Content-Disposition", "attachment; filename="+export.BuildFilename(job.ID, "xlsx"))
		c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())

	default:
		RespondError(c, http.StatusBadRequest, "INVALID_FORMAT", "format must be one of: xlsx, csv, json")
	}
}
