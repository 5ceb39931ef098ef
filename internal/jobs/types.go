// Package jobs runs slow outward deliveries, such as emailing a report or
// exporting a summary to Notion, off the request path.
package jobs

import (
	"context"
	"errors"
	"time"
)

// ErrJobNotFound is returned for an unknown job ID.
var ErrJobNotFound = errors.New("job not found")

// ErrQueueClosed is returned when publishing to a stopped queue.
var ErrQueueClosed = errors.New("queue is closed")

// JobType represents the kind of delivery to run.
type JobType string

const (
	// JobTypeSendReport renders a summary and sends it to the notification sink.
	JobTypeSendReport JobType = "send_report"
	// JobTypeExportNotion writes a summary to the Notion budget database.
	JobTypeExportNotion JobType = "export_notion"
)

// JobStatus represents the current status of a job.
type JobStatus string

const (
	// JobStatusPending indicates the job is waiting to be processed.
	JobStatusPending JobStatus = "pending"
	// JobStatusRunning indicates the job is currently being processed.
	JobStatusRunning JobStatus = "running"
	// JobStatusCompleted indicates the job completed successfully.
	JobStatusCompleted JobStatus = "completed"
	// JobStatusFailed indicates the job failed and will not be retried.
	JobStatusFailed JobStatus = "failed"
	// JobStatusRetrying indicates the job failed and is waiting for another attempt.
	JobStatusRetrying JobStatus = "retrying"
)

// DeliveryJob is one queued delivery of a budget summary.
type DeliveryJob struct {
	JobID string  `json:"job_id"`
	Type  JobType `json:"type"`

	// Start and End bound the summary window as YYYY-MM-DD; empty is open.
	Start string `json:"start,omitempty"`
	End   string `json:"end,omitempty"`

	// DryRun only applies to Notion exports.
	DryRun bool `json:"dry_run,omitempty"`

	Status      JobStatus  `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Error       string     `json:"error,omitempty"`
	RetryCount  int        `json:"retry_count"`

	// MaxRetries is zero for operator-triggered deliveries, which fail
	// straight back to the operator.
	MaxRetries int `json:"max_retries"`
}

// Publisher enqueues jobs.
type Publisher interface {
	// Publish enqueues a delivery. A missing JobID is generated.
	Publish(ctx context.Context, job *DeliveryJob) error

	// Close closes the publisher and releases resources.
	Close() error
}

// Consumer runs queued jobs.
type Consumer interface {
	// Start begins consuming jobs from the queue.
	// The handler function is called for each job received.
	Start(ctx context.Context, handler JobHandler) error

	// Stop stops consuming jobs and waits for in-flight jobs to complete.
	Stop(ctx context.Context) error
}

// JobHandler runs one job. A returned error schedules a retry until
// MaxRetries is reached.
type JobHandler func(ctx context.Context, job *DeliveryJob) error

// JobStore keeps job state for status queries.
type JobStore interface {
	// SaveJob saves or updates a job's state.
	SaveJob(ctx context.Context, job *DeliveryJob) error

	// GetJob retrieves a job by ID.
	GetJob(ctx context.Context, jobID string) (*DeliveryJob, error)

	// ListJobs returns jobs oldest first, filtered.
	ListJobs(ctx context.Context, filter JobFilter) ([]*DeliveryJob, error)
}

// JobFilter defines filtering criteria for listing jobs.
type JobFilter struct {
	Type   JobType
	Status JobStatus
	Limit  int
	Offset int
}
