package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/DukeRupert/turfplot/internal/domain"
	"github.com/DukeRupert/turfplot/internal/repository"
)

// Job types. These must match JobHandler.Type().
const (
	JobTypeExportReport = "export_report"
)

// Priority constants for job scheduling
const (
	PriorityLow    = 0
	PriorityNormal = 10
	PriorityHigh   = 20
)

// ExportReportPayload is the payload for background report exports.
type ExportReportPayload struct {
	Format      domain.ReportFormat   `json:"format"`
	Criteria    domain.ReportCriteria `json:"criteria"`
	Title       string                `json:"title,omitempty"`
	RequestedBy uuid.UUID             `json:"requested_by"`
	StorageKey  string                `json:"storage_key"`
	RequestedAt time.Time             `json:"requested_at"`
}

// EnqueueOption is a functional option for customizing job enqueue parameters.
type EnqueueOption func(*repository.EnqueueJobParams)

// WithPriority sets the job priority.
func WithPriority(priority int32) EnqueueOption {
	return func(p *repository.EnqueueJobParams) {
		p.Priority = priority
	}
}

// WithMaxAttempts sets the maximum number of attempts.
func WithMaxAttempts(attempts int32) EnqueueOption {
	return func(p *repository.EnqueueJobParams) {
		p.MaxAttempts = attempts
	}
}

// WithDelay schedules the job to run after a delay.
func WithDelay(delay time.Duration) EnqueueOption {
	return func(p *repository.EnqueueJobParams) {
		p.ScheduledAt = time.Now().Add(delay)
	}
}

// Enqueuer is the subset of repository.Queries needed to enqueue jobs.
type Enqueuer interface {
	EnqueueJob(ctx context.Context, arg repository.EnqueueJobParams) (repository.Job, error)
}

// buildParams marshals payload and applies options over the defaults.
func buildParams(jobType string, payload any, opts ...EnqueueOption) (repository.EnqueueJobParams, error) {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return repository.EnqueueJobParams{}, fmt.Errorf("marshal payload: %w", err)
	}

	params := repository.EnqueueJobParams{
		JobType:     jobType,
		Payload:     payloadJSON,
		Priority:    PriorityNormal,
		MaxAttempts: 3,
		ScheduledAt: time.Now(),
	}
	for _, opt := range opts {
		opt(&params)
	}
	return params, nil
}

// EnqueueJob marshals payload and inserts a pending job.
func EnqueueJob(
	ctx context.Context,
	q Enqueuer,
	jobType string,
	payload any,
	opts ...EnqueueOption,
) (repository.Job, error) {
	params, err := buildParams(jobType, payload, opts...)
	if err != nil {
		return repository.Job{}, err
	}

	job, err := q.EnqueueJob(ctx, params)
	if err != nil {
		return repository.Job{}, fmt.Errorf("enqueue job: %w", err)
	}
	return job, nil
}

// EnqueueExportReport enqueues a background report export.
func EnqueueExportReport(
	ctx context.Context,
	q Enqueuer,
	payload ExportReportPayload,
	opts ...EnqueueOption,
) (repository.Job, error) {
	if !payload.Format.IsValid() {
		return repository.Job{}, fmt.Errorf("invalid report format: %q", payload.Format)
	}
	if payload.StorageKey == "" {
		return repository.Job{}, fmt.Errorf("storage key required")
	}
	return EnqueueJob(ctx, q, JobTypeExportReport, payload, opts...)
}
