package memory

import (
	"context"
	"maps"
	"sort"
	"sync"

	"github.com/custodia-labs/artsync/internal/core/domain"
	"github.com/custodia-labs/artsync/internal/core/ports/driven"
)

// Ensure JobStore implements the interface.
var _ driven.JobStore = (*JobStore)(nil)

// JobStore is an in-memory implementation of driven.JobStore.
type JobStore struct {
	mu      sync.RWMutex
	jobs    map[string]domain.Job
	results map[string][]domain.JobResult
}

// NewJobStore creates an empty job store.
func NewJobStore() *JobStore {
	return &JobStore{
		jobs:    make(map[string]domain.Job),
		results: make(map[string][]domain.JobResult),
	}
}

// ListJobs returns all pending jobs ordered by creation time.
func (s *JobStore) ListJobs(_ context.Context) ([]domain.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	jobs := make([]domain.Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		j.Payload = maps.Clone(j.Payload)
		jobs = append(jobs, j)
	}
	sort.Slice(jobs, func(i, k int) bool { return jobs[i].CreatedAt.Before(jobs[k].CreatedAt) })
	return jobs, nil
}

// SaveJob creates or updates a job.
func (s *JobStore) SaveJob(_ context.Context, job *domain.Job) error {
	if job == nil || job.ID == "" {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	j := *job
	j.Payload = maps.Clone(job.Payload)
	s.jobs[job.ID] = j
	return nil
}

// DeleteJob removes a job. Deleting a missing job is not an error.
func (s *JobStore) DeleteJob(_ context.Context, jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.jobs, jobID)
	return nil
}

// DeleteJobsByTag removes all jobs with the tag.
func (s *JobStore) DeleteJobsByTag(_ context.Context, tag string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, j := range s.jobs {
		if j.Tag == tag {
			delete(s.jobs, id)
		}
	}
	return nil
}

// RecordResult logs a job execution result.
func (s *JobStore) RecordResult(_ context.Context, result *domain.JobResult) error {
	if result == nil {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[result.Tag] = append(s.results[result.Tag], *result)
	return nil
}

// GetHistory returns recent results for a tag, most recent first.
func (s *JobStore) GetHistory(_ context.Context, tag string, limit int) ([]domain.JobResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	src := s.results[tag]
	out := make([]domain.JobResult, 0, len(src))
	for i := len(src) - 1; i >= 0; i-- {
		if limit > 0 && len(out) >= limit {
			break
		}
		out = append(out, src[i])
	}
	return out, nil
}

// PruneHistory keeps the most recent results per tag.
func (s *JobStore) PruneHistory(_ context.Context, keep int) error {
	if keep <= 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for tag, results := range s.results {
		if len(results) > keep {
			s.results[tag] = append([]domain.JobResult(nil), results[len(results)-keep:]...)
		}
	}
	return nil
}
