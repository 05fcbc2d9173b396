package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"hoadon/internal/domain"
	"hoadon/internal/events"
	"hoadon/internal/extract"
	"hoadon/internal/normalize"
	"hoadon/internal/parse"
)

// ExtractionService defines the document extraction contract.
type ExtractionService interface {
	ExtractFile(ctx context.Context, raw []byte, fileName, docType, additionalContext string) (*domain.Job, error)
	ExtractText(ctx context.Context, text, docType, additionalContext string) (*domain.Job, error)
	GetJob(id string) (*domain.Job, error)
	UpdateJob(id string, inv domain.Invoice, notes string) (*domain.Job, error)
}

type extractionService struct {
	normalizer   *normalize.Normalizer
	orchestrator *extract.Orchestrator
	jobs         *JobRegistry
	sink         events.Sink
}

// NewExtractionService creates an ExtractionService implementation. sink may
// be nil to disable stage events.
func NewExtractionService(n *normalize.Normalizer, o *extract.Orchestrator, jobs *JobRegistry, sink events.Sink) ExtractionService {
	if sink == nil {
		sink = events.NopSink{}
	}
	return &extractionService{normalizer: n, orchestrator: o, jobs: jobs, sink: sink}
}

// ExtractFile validates an uploaded file and runs it through the pipeline.
// Input validation failures return before a job exists; once a job is
// created, its outcome is recorded whether extraction succeeds or fails.
func (s *extractionService) ExtractFile(ctx context.Context, raw []byte, fileName, docType, additionalContext string) (*domain.Job, error) {
	requestID := uuid.New()
	input, err := s.normalize(requestID, func() (domain.DocumentInput, error) {
		return s.normalizer.NormalizeFile(raw, fileName)
	})
	if err != nil {
		return nil, err
	}
	return s.run(ctx, requestID, input, docType, additionalContext)
}

// ExtractText validates a raw-text submission and runs it through the pipeline.
func (s *extractionService) ExtractText(ctx context.Context, text, docType, additionalContext string) (*domain.Job, error) {
	requestID := uuid.New()
	input, err := s.normalize(requestID, func() (domain.DocumentInput, error) {
		return s.normalizer.NormalizeText(text)
	})
	if err != nil {
		return nil, err
	}
	return s.run(ctx, requestID, input, docType, additionalContext)
}

func (s *extractionService) normalize(requestID uuid.UUID, fn func() (domain.DocumentInput, error)) (domain.DocumentInput, error) {
	start := time.Now()
	input, err := fn()
	event := events.StageEvent{
		Stage:     extract.StageNormalizing,
		RequestID: requestID,
		Outcome:   events.OutcomeOK,
		Latency:   time.Since(start),
	}
	if err != nil {
		event.Outcome = events.OutcomeError
		event.Detail = err.Error()
	}
	s.sink.Emit(event)
	return input, err
}

func (s *extractionService) run(ctx context.Context, requestID uuid.UUID, input domain.DocumentInput, docType, additionalContext string) (*domain.Job, error) {
	dt, ok := domain.ParseDocumentType(docType)
	if !ok {
		return nil, domain.NewInvalidInput(fmt.Sprintf("unknown document type %q", docType))
	}

	job := s.jobs.Create()
	req := domain.ExtractionRequest{
		RequestID:         requestID,
		Input:             input,
		Type:              dt,
		AdditionalContext: additionalContext,
	}

	result, err := s.orchestrator.Extract(ctx, req)
	if err != nil {
		log.Printf("extractionService.run: job %s failed: %v", job.ID, err)
		s.jobs.Fail(job.ID, toJobError(err))
		failed, _ := s.jobs.Get(job.ID)
		return &failed, err
	}

	s.jobs.Complete(job.ID, result)
	completed, _ := s.jobs.Get(job.ID)
	return &completed, nil
}

// GetJob returns the job with the given ID.
func (s *extractionService) GetJob(id string) (*domain.Job, error) {
	job, ok := s.jobs.Get(id)
	if !ok {
		return nil, domain.ErrJobNotFound
	}
	return &job, nil
}

// UpdateJob replaces a completed job's invoice with reviewed data. The
// reviewed invoice is re-reconciled so the stored confidence reflects the
// edit.
func (s *extractionService) UpdateJob(id string, inv domain.Invoice, notes string) (*domain.Job, error) {
	job, ok := s.jobs.Get(id)
	if !ok {
		return nil, domain.ErrJobNotFound
	}
	if job.Status != domain.JobStatusCompleted || job.Result == nil {
		return nil, domain.NewValidationFailed(fmt.Sprintf("job %q is %s, only completed jobs can be edited", id, job.Status))
	}
	if err := validateReviewedInvoice(&inv); err != nil {
		return nil, err
	}

	result := *job.Result
	result.Invoice = inv
	result.Confidence, result.Partial, result.Warnings = parse.Reconcile(&inv)

	updated, ok := s.jobs.Replace(id, &result, notes)
	if !ok {
		return nil, domain.ErrJobNotFound
	}
	return &updated, nil
}

func validateReviewedInvoice(inv *domain.Invoice) error {
	if inv.Total.IsNegative() || inv.Subtotal.IsNegative() || inv.VATTotal.IsNegative() {
		return domain.NewValidationFailed("totals must not be negative")
	}
	for i, item := range inv.LineItems {
		if item.Description == "" {
			return domain.NewValidationFailed(fmt.Sprintf("line_items[%d].description must not be empty", i))
		}
		if item.Amount.IsNegative() || item.Quantity.IsNegative() || item.UnitPrice.IsNegative() {
			return domain.NewValidationFailed(fmt.Sprintf("line_items[%d] amounts must not be negative", i))
		}
	}
	return nil
}

func toJobError(err error) *domain.JobError {
	if exErr, ok := domain.AsExtractionError(err); ok {
		return &domain.JobError{Kind: exErr.Kind, Detail: exErr.Detail, Retryable: exErr.Retryable}
	}
	return &domain.JobError{Kind: domain.ErrKindUpstreamUnavailable, Detail: err.Error()}
}
