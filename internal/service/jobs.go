package service

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"

	"hoadon/internal/domain"
)

// JobRegistry stores extraction jobs in process memory, keyed by job ID.
// It is safe for concurrent use. Jobs are never evicted; the registry lives
// and dies with the process.
type JobRegistry struct {
	mu   sync.RWMutex
	jobs map[string]*domain.Job
}

// NewJobRegistry creates an empty registry.
func NewJobRegistry() *JobRegistry {
	return &JobRegistry{jobs: make(map[string]*domain.Job)}
}

// Create records a new job in processing state and returns it.
func (r *JobRegistry) Create() *domain.Job {
	job := &domain.Job{
		ID:        newJobID(),
		Status:    domain.JobStatusProcessing,
		CreatedAt: time.Now().UTC(),
	}
	r.mu.Lock()
	r.jobs[job.ID] = job
	r.mu.Unlock()
	return job
}

// Get returns a copy of the job, or false if it does not exist.
func (r *JobRegistry) Get(id string) (domain.Job, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	job, ok := r.jobs[id]
	if !ok {
		return domain.Job{}, false
	}
	return *job, true
}

// Complete marks the job as completed with its result.
func (r *JobRegistry) Complete(id string, result *domain.ExtractionResult) {
	now := time.Now().UTC()
	r.mu.Lock()
	defer r.mu.Unlock()
	if job, ok := r.jobs[id]; ok {
		job.Status = domain.JobStatusCompleted
		job.Result = result
		job.Error = nil
		job.CompletedAt = &now
	}
}

// Fail marks the job as failed with the error that stopped it.
func (r *JobRegistry) Fail(id string, jobErr *domain.JobError) {
	now := time.Now().UTC()
	r.mu.Lock()
	defer r.mu.Unlock()
	if job, ok := r.jobs[id]; ok {
		job.Status = domain.JobStatusFailed
		job.Error = jobErr
		job.CompletedAt = &now
	}
}

// Replace swaps a completed job's result and review notes with reviewed data.
func (r *JobRegistry) Replace(id string, result *domain.ExtractionResult, notes string) (domain.Job, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return domain.Job{}, false
	}
	job.Result = result
	job.ReviewNotes = notes
	return *job, true
}

func newJobID() string {
	b := make([]byte, 6)
	if _, err := rand.Read(b); err != nil {
		panic(err) // crypto/rand failure means a broken platform
	}
	return "job_" + hex.EncodeToString(b)
}
