package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hoadon/internal/domain"
	"hoadon/internal/handler"
	"hoadon/internal/router"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// stubService implements service.ExtractionService with canned responses.
type stubService struct {
	job *domain.Job
	err error
}

func (s *stubService) ExtractFile(ctx context.Context, raw []byte, fileName, docType, additionalContext string) (*domain.Job, error) {
	return s.job, s.err
}

func (s *stubService) ExtractText(ctx context.Context, text, docType, additionalContext string) (*domain.Job, error) {
	return s.job, s.err
}

func (s *stubService) GetJob(id string) (*domain.Job, error) {
	return s.job, s.err
}

func (s *stubService) UpdateJob(id string, inv domain.Invoice, notes string) (*domain.Job, error) {
	return s.job, s.err
}

func completedJob() *domain.Job {
	now := time.Now().UTC()
	return &domain.Job{
		ID:        "job_a1b2c3d4e5f6",
		Status:    domain.JobStatusCompleted,
		CreatedAt: now,
		CompletedAt: &now,
		Result: &domain.ExtractionResult{
			DocumentType: domain.DocumentTypeInvoice,
			Confidence:   domain.ConfidenceHigh,
			Invoice: domain.Invoice{
				LineItems: []domain.LineItem{{LineNumber: 1, Description: "Dich vu", Amount: decimal.NewFromInt(100000)}},
				Subtotal:  decimal.NewFromInt(100000),
				VATTotal:  decimal.NewFromInt(10000),
				Total:     decimal.NewFromInt(110000),
			},
		},
	}
}

func setupRouter(svc *stubService) *gin.Engine {
	extractH := handler.NewExtractHandler(svc, 1<<20)
	jobH := handler.NewJobHandler(svc)
	healthH := handler.NewHealthHandler()
	return router.Setup(extractH, jobH, healthH, nil)
}

func multipartBody(t *testing.T, fieldName, fileName string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile(fieldName, fileName)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func TestUpload_Success(t *testing.T) {
	r := setupRouter(&stubService{job: completedJob()})

	body, contentType := multipartBody(t, "file", "invoice.png", []byte("fake png"))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/extract/upload", body)
	req.Header.Set("Content-Type", contentType)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)

	var resp handler.APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
}

func TestUpload_MissingFile(t *testing.T) {
	r := setupRouter(&stubService{job: completedJob()})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/extract/upload", strings.NewReader(""))
	req.Header.Set("Content-Type", "multipart/form-data; boundary=x")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpload_InvalidInput(t *testing.T) {
	r := setupRouter(&stubService{err: domain.NewInvalidInput("unsupported file extension")})

	body, contentType := multipartBody(t, "file", "invoice.gif", []byte("gif"))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/extract/upload", body)
	req.Header.Set("Content-Type", contentType)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var resp handler.APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, "INVALID_INPUT", resp.Error.Code)
}

func TestText_Success(t *testing.T) {
	r := setupRouter(&stubService{job: completedJob()})

	body := `{"text": "HOA DON GTGT", "document_type": "invoice"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/extract/text", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestText_MissingBody(t *testing.T) {
	r := setupRouter(&stubService{job: completedJob()})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/extract/text", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestText_RateLimited(t *testing.T) {
	failed := completedJob()
	failed.Status = domain.JobStatusFailed
	r := setupRouter(&stubService{
		job: failed,
		err: domain.NewRateLimited("rate limited after 3 attempts", nil),
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/extract/text", strings.NewReader(`{"text": "x"}`))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	var resp handler.APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	assert.True(t, resp.Error.Retryable)
	assert.Equal(t, failed.ID, resp.Error.JobID)
}

func TestGetJob_Success(t *testing.T) {
	r := setupRouter(&stubService{job: completedJob()})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs/job_a1b2c3d4e5f6", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGetJob_NotFound(t *testing.T) {
	r := setupRouter(&stubService{err: domain.ErrJobNotFound})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs/job_missing", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdateJob_ValidationFailed(t *testing.T) {
	r := setupRouter(&stubService{err: domain.NewValidationFailed("totals must not be negative")})

	body := `{"invoice": {"total": "-5", "line_items": []}}`
	req := httptest.NewRequest(http.MethodPut, "/api/v1/jobs/job_a1b2c3d4e5f6", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestExport_JSON(t *testing.T) {
	r := setupRouter(&stubService{job: completedJob()})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs/job_a1b2c3d4e5f6/export?format=json", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), ".json")
}

func TestExport_CSV(t *testing.T) {
	r := setupRouter(&stubService{job: completedJob()})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs/job_a1b2c3d4e5f6/export?format=csv", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/csv")
}

func TestExport_InvalidFormat(t *testing.T) {
	r := setupRouter(&stubService{job: completedJob()})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs/job_a1b2c3d4e5f6/export?format=pdf", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExport_IncompleteJob(t *testing.T) {
	processing := &domain.Job{ID: "job_x", Status: domain.JobStatusProcessing, CreatedAt: time.Now()}
	r := setupRouter(&stubService{job: processing})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs/job_x/export?format=csv", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestHealthEndpoints(t *testing.T) {
	r := setupRouter(&stubService{job: completedJob()})

	for _, path := range []string{"/healthz", "/readyz"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code, path)
	}
}
