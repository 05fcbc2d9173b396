package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"hoadon/internal/domain"
)

// APIResponse is the standard envelope for all API responses.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
}

// APIError holds error details in the response.
type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable,omitempty"`
	JobID     string `json:"job_id,omitempty"`
}

// RespondOK sends a 200 success response.
func RespondOK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: data})
}

// RespondCreated sends a 201 success response.
func RespondCreated(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, APIResponse{Success: true, Data: data})
}

// RespondError sends an error response with the given status code.
func RespondError(c *gin.Context, status int, code, msg string) {
	c.JSON(status, APIResponse{
		Success: false,
		Error:   &APIError{Code: code, Message: msg},
	})
}

// MapExtractionError translates pipeline errors to HTTP status codes.
func MapExtractionError(err error) (status int, code string) {
	if errors.Is(err, domain.ErrJobNotFound) {
		return http.StatusNotFound, "JOB_NOT_FOUND"
	}

	exErr, ok := domain.AsExtractionError(err)
	if !ok {
		return http.StatusInternalServerError, "INTERNAL"
	}
	switch exErr.Kind {
	case domain.ErrKindInvalidInput:
		return http.StatusBadRequest, "INVALID_INPUT"
	case domain.ErrKindRateLimited:
		return http.StatusTooManyRequests, "UPSTREAM_RATE_LIMITED"
	case domain.ErrKindUpstreamUnavailable:
		return http.StatusBadGateway, "UPSTREAM_UNAVAILABLE"
	case domain.ErrKindMalformedOutput:
		return http.StatusBadGateway, "MALFORMED_MODEL_OUTPUT"
	case domain.ErrKindValidationFailed:
		return http.StatusUnprocessableEntity, "VALIDATION_FAILED"
	case domain.ErrKindCancelled:
		return http.StatusRequestTimeout, "CANCELLED"
	default:
		return http.StatusInternalServerError, "INTERNAL"
	}
}

// HandleError maps an error to a response. jobID, when non-empty, tells the
// caller which job recorded the failure.
func HandleError(c *gin.Context, err error, jobID string) {
	status, code := MapExtractionError(err)
	if status == http.StatusInternalServerError {
		log.Printf("handler: unexpected error: %v", err)
	}

	apiErr := &APIError{Code: code, Message: err.Error(), JobID: jobID}
	if exErr, ok := domain.AsExtractionError(err); ok {
		apiErr.Message = exErr.Detail
		apiErr.Retryable = exErr.Retryable
	}
	c.JSON(status, APIResponse{Success: false, Error: apiErr})
}
