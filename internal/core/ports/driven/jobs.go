package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/artsync/internal/core/domain"
)

// JobScheduler is the job-scheduling substrate.
// Every job carries a tag; cancelling by tag removes all jobs with it.
type JobScheduler interface {
	// EnqueueOneOff schedules a job to run as soon as possible.
	EnqueueOneOff(ctx context.Context, tag string, payload map[string]string) error

	// EnqueuePeriodic schedules a recurring job, replacing any job with the same tag.
	EnqueuePeriodic(ctx context.Context, tag string, interval time.Duration, constraints domain.JobConstraints) error

	// EnqueueOnContentChange schedules a one-shot job that runs the next
	// time contentURI changes.
	EnqueueOnContentChange(ctx context.Context, tag, contentURI string, payload map[string]string) error

	// CancelByTag removes every pending job with the tag. A one-shot job
	// that is running when cancelled still has a Retry result honoured.
	CancelByTag(ctx context.Context, tag string) error
}

// JobStore persists scheduler state for crash recovery.
// It stores pending jobs and execution history.
type JobStore interface {
	// ListJobs returns all pending jobs.
	ListJobs(ctx context.Context) ([]domain.Job, error)

	// SaveJob persists a job's state.
	// Creates or updates the job based on ID.
	SaveJob(ctx context.Context, job *domain.Job) error

	// DeleteJob removes a job from storage.
	DeleteJob(ctx context.Context, jobID string) error

	// DeleteJobsByTag removes all jobs with the tag.
	DeleteJobsByTag(ctx context.Context, tag string) error

	// RecordResult logs a job execution result.
	RecordResult(ctx context.Context, result *domain.JobResult) error

	// GetHistory returns recent results for a tag.
	// Results are ordered by start time descending (most recent first).
	GetHistory(ctx context.Context, tag string, limit int) ([]domain.JobResult, error)

	// PruneHistory removes old job results beyond the retention limit.
	// Keeps the most recent 'keep' results per tag.
	PruneHistory(ctx context.Context, keep int) error
}
