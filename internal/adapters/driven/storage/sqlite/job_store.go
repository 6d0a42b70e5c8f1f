package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/custodia-labs/artsync/internal/core/domain"
	"github.com/custodia-labs/artsync/internal/core/ports/driven"
)

// Verify interface implementation.
var _ driven.JobStore = (*jobStore)(nil)

// jobStore implements driven.JobStore using SQLite.
type jobStore struct {
	store *Store
}

// ListJobs returns all pending jobs ordered by creation time.
func (s *jobStore) ListJobs(ctx context.Context) ([]domain.Job, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, tag, kind, payload, interval_ms, content_uri, wifi_only,
		       next_run, attempts, created_at
		FROM jobs
		ORDER BY created_at ASC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("querying jobs: %w", err)
	}
	defer rows.Close()

	var jobs []domain.Job
	for rows.Next() {
		var job domain.Job
		var kind string
		var payload, contentURI, nextRun, createdAt sql.NullString
		var intervalMS int64
		var wifiOnly int

		if err := rows.Scan(&job.ID, &job.Tag, &kind, &payload, &intervalMS, &contentURI,
			&wifiOnly, &nextRun, &job.Attempts, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning job: %w", err)
		}

		job.Kind = domain.JobKind(kind)
		job.Interval = time.Duration(intervalMS) * time.Millisecond
		job.ContentURI = contentURI.String
		job.Constraints.WifiOnly = wifiOnly == 1
		job.NextRun = parseNullableTime(nextRun)
		job.CreatedAt = parseNullableTime(createdAt)

		if payload.Valid && payload.String != "" {
			if err := json.Unmarshal([]byte(payload.String), &job.Payload); err != nil {
				return nil, fmt.Errorf("decoding payload of job %s: %w", job.ID, err)
			}
		}

		jobs = append(jobs, job)
	}

	return jobs, rows.Err()
}

// SaveJob creates or updates a job.
func (s *jobStore) SaveJob(ctx context.Context, job *domain.Job) error {
	if job == nil || job.ID == "" {
		return domain.ErrInvalidInput
	}

	var payload any
	if len(job.Payload) > 0 {
		data, err := json.Marshal(job.Payload)
		if err != nil {
			return fmt.Errorf("encoding payload: %w", err)
		}
		payload = string(data)
	}

	createdAt := job.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO jobs (id, tag, kind, payload, interval_ms, content_uri, wifi_only,
		                  next_run, attempts, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			tag = excluded.tag,
			kind = excluded.kind,
			payload = excluded.payload,
			interval_ms = excluded.interval_ms,
			content_uri = excluded.content_uri,
			wifi_only = excluded.wifi_only,
			next_run = excluded.next_run,
			attempts = excluded.attempts
	`, job.ID, job.Tag, string(job.Kind), payload, job.Interval.Milliseconds(),
		nullString(job.ContentURI), boolToInt(job.Constraints.WifiOnly),
		formatNullableTime(job.NextRun), job.Attempts, formatNullableTime(createdAt))
	if err != nil {
		return fmt.Errorf("saving job: %w", err)
	}
	return nil
}

// DeleteJob removes a job. Deleting a missing job is not an error.
func (s *jobStore) DeleteJob(ctx context.Context, jobID string) error {
	if _, err := s.store.db.ExecContext(ctx, `DELETE FROM jobs WHERE id = ?`, jobID); err != nil {
		return fmt.Errorf("deleting job: %w", err)
	}
	return nil
}

// DeleteJobsByTag removes all jobs with the tag.
func (s *jobStore) DeleteJobsByTag(ctx context.Context, tag string) error {
	if _, err := s.store.db.ExecContext(ctx, `DELETE FROM jobs WHERE tag = ?`, tag); err != nil {
		return fmt.Errorf("deleting jobs by tag: %w", err)
	}
	return nil
}

// RecordResult logs a job execution result.
func (s *jobStore) RecordResult(ctx context.Context, result *domain.JobResult) error {
	if result == nil {
		return domain.ErrInvalidInput
	}
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO job_results (job_id, tag, started_at, ended_at, result)
		VALUES (?, ?, ?, ?, ?)
	`, result.JobID, result.Tag, formatNullableTime(result.StartedAt),
		formatNullableTime(result.EndedAt), result.Result.String())
	if err != nil {
		return fmt.Errorf("recording result: %w", err)
	}
	return nil
}

// GetHistory returns recent results for a tag, most recent first.
// A limit of zero or less returns every result.
func (s *jobStore) GetHistory(ctx context.Context, tag string, limit int) ([]domain.JobResult, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT job_id, tag, started_at, ended_at, result
		FROM job_results
		WHERE tag = ?
		ORDER BY started_at DESC, id DESC
		LIMIT ?
	`, tag, limit)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	var results []domain.JobResult
	for rows.Next() {
		var r domain.JobResult
		var startedAt, endedAt sql.NullString
		var result string
		if err := rows.Scan(&r.JobID, &r.Tag, &startedAt, &endedAt, &result); err != nil {
			return nil, fmt.Errorf("scanning result: %w", err)
		}
		r.StartedAt = parseNullableTime(startedAt)
		r.EndedAt = parseNullableTime(endedAt)
		r.Result = parseResult(result)
		results = append(results, r)
	}
	return results, rows.Err()
}

// PruneHistory keeps the most recent results per tag.
func (s *jobStore) PruneHistory(ctx context.Context, keep int) error {
	if keep <= 0 {
		return nil
	}
	_, err := s.store.db.ExecContext(ctx, `
		DELETE FROM job_results WHERE id IN (
			SELECT id FROM (
				SELECT id, ROW_NUMBER() OVER (
					PARTITION BY tag ORDER BY started_at DESC, id DESC
				) AS rn
				FROM job_results
			) WHERE rn > ?
		)
	`, keep)
	if err != nil {
		return fmt.Errorf("pruning history: %w", err)
	}
	return nil
}

func parseResult(s string) domain.ReconcileResult {
	switch s {
	case "success":
		return domain.ResultSuccess
	case "retry":
		return domain.ResultRetry
	default:
		return domain.ResultFail
	}
}
