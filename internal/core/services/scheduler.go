package services

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/artsync/internal/core/domain"
	"github.com/custodia-labs/artsync/internal/core/ports/driven"
	"github.com/custodia-labs/artsync/internal/logger"
)

// Ensure Scheduler implements the interface.
var _ driven.JobScheduler = (*Scheduler)(nil)

// maxSleepCap bounds how long the loop sleeps, so jobs written to the store
// by another process are picked up.
const maxSleepCap = 60 * time.Second

// JobHandler runs a job and reports its outcome.
type JobHandler func(ctx context.Context, job domain.Job) domain.ReconcileResult

// Scheduler runs tagged jobs in the background.
//
// The job store is the source of truth. While stopped, every operation only
// writes the store, so a one-shot command can schedule work for the daemon.
// While running, the scheduler mirrors the store in a min-heap and fires due
// jobs on their registered handler.
type Scheduler struct {
	config   domain.SchedulerConfig
	store    driven.JobStore
	notifier driven.ChangeNotifier
	network  driven.NetworkMonitor
	now      func() time.Time

	handlersMu sync.RWMutex
	handlers   map[string]JobHandler

	mu          sync.Mutex
	running     bool
	stopCh      chan struct{}
	wake        chan struct{}
	wg          sync.WaitGroup
	runCtx      context.Context
	queue       jobHeap
	jobs        map[string]*domain.Job
	inflight    map[string]bool
	watches     map[string]func()
	lastRefresh time.Time
}

// NewScheduler creates a stopped scheduler. notifier and network may be nil;
// without a notifier content-change jobs never fire, and without a network
// monitor WifiOnly constraints always pass.
func NewScheduler(
	config domain.SchedulerConfig,
	store driven.JobStore,
	notifier driven.ChangeNotifier,
	network driven.NetworkMonitor,
) *Scheduler {
	return &Scheduler{
		config:   config,
		store:    store,
		notifier: notifier,
		network:  network,
		now:      time.Now,
		handlers: make(map[string]JobHandler),
	}
}

// Handle registers the handler for a tag.
func (s *Scheduler) Handle(tag string, handler JobHandler) {
	s.handlersMu.Lock()
	defer s.handlersMu.Unlock()
	s.handlers[tag] = handler
}

// Start restores persisted jobs and runs the scheduler loop.
// This method blocks until Stop is called or ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.wake = make(chan struct{}, 1)
	s.runCtx = ctx
	s.queue = nil
	s.jobs = make(map[string]*domain.Job)
	s.inflight = make(map[string]bool)
	s.watches = make(map[string]func())
	if err := s.refreshLocked(ctx); err != nil {
		logger.Warn("scheduler: failed to restore jobs: %v", err)
	}
	logger.Debug("Scheduler started with %d jobs", len(s.jobs))
	s.mu.Unlock()

	return s.run(ctx)
}

// Stop shuts down the loop and waits for running jobs to complete.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stopCh)
	for id, stop := range s.watches {
		stop()
		delete(s.watches, id)
	}
	s.mu.Unlock()

	s.wg.Wait()
}

// EnqueueOneOff schedules a job to run as soon as possible. A queued job with
// the same tag and payload absorbs the request.
func (s *Scheduler) EnqueueOneOff(ctx context.Context, tag string, payload map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.listLocked(ctx)
	if err != nil {
		return err
	}
	for i := range existing {
		job := &existing[i]
		if job.Tag == tag && job.Kind == domain.JobOneOff && job.Attempts == 0 &&
			!s.inflight[job.ID] && maps.Equal(job.Payload, payload) {
			return nil
		}
	}

	now := s.now()
	return s.addLocked(ctx, &domain.Job{
		ID:        uuid.New().String(),
		Tag:       tag,
		Kind:      domain.JobOneOff,
		Payload:   copyPayload(payload),
		NextRun:   now,
		CreatedAt: now,
	})
}

// EnqueuePeriodic schedules a recurring job, replacing any job with the same
// tag. An identical periodic job is kept so its next run does not slip.
func (s *Scheduler) EnqueuePeriodic(
	ctx context.Context,
	tag string,
	interval time.Duration,
	constraints domain.JobConstraints,
) error {
	if interval <= 0 {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.listLocked(ctx)
	if err != nil {
		return err
	}
	for _, job := range existing {
		if job.Tag == tag && job.Kind == domain.JobPeriodic &&
			job.Interval == interval && job.Constraints == constraints {
			return nil
		}
	}
	if err := s.cancelLocked(ctx, tag); err != nil {
		return err
	}

	now := s.now()
	logger.Debug("Scheduling %s every %s", tag, interval)
	return s.addLocked(ctx, &domain.Job{
		ID:          uuid.New().String(),
		Tag:         tag,
		Kind:        domain.JobPeriodic,
		Interval:    interval,
		Constraints: constraints,
		NextRun:     now.Add(interval),
		CreatedAt:   now,
	})
}

// EnqueueOnContentChange schedules a one-shot job that runs the next time
// contentURI changes.
func (s *Scheduler) EnqueueOnContentChange(
	ctx context.Context,
	tag, contentURI string,
	payload map[string]string,
) error {
	if contentURI == "" {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.addLocked(ctx, &domain.Job{
		ID:         uuid.New().String(),
		Tag:        tag,
		Kind:       domain.JobContentChange,
		Payload:    copyPayload(payload),
		ContentURI: contentURI,
		CreatedAt:  s.now(),
	})
}

// CancelByTag removes every pending job with the tag.
func (s *Scheduler) CancelByTag(ctx context.Context, tag string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelLocked(ctx, tag)
}

// Jobs returns the pending jobs.
func (s *Scheduler) Jobs(ctx context.Context) ([]domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listLocked(ctx)
}

func (s *Scheduler) listLocked(ctx context.Context) ([]domain.Job, error) {
	if s.running {
		jobs := make([]domain.Job, 0, len(s.jobs))
		for _, job := range s.jobs {
			jobs = append(jobs, *job)
		}
		return jobs, nil
	}
	return s.store.ListJobs(ctx)
}

func (s *Scheduler) addLocked(ctx context.Context, job *domain.Job) error {
	if err := s.store.SaveJob(ctx, job); err != nil {
		return err
	}
	if s.running {
		s.trackLocked(job)
		s.signal()
	}
	return nil
}

func (s *Scheduler) cancelLocked(ctx context.Context, tag string) error {
	if err := s.store.DeleteJobsByTag(ctx, tag); err != nil {
		return err
	}
	if !s.running {
		return nil
	}
	for id, job := range s.jobs {
		if job.Tag == tag {
			s.untrackLocked(id)
		}
	}
	return nil
}

// trackLocked adds a job to the in-memory mirror.
func (s *Scheduler) trackLocked(job *domain.Job) {
	s.jobs[job.ID] = job
	if job.Kind == domain.JobContentChange && job.NextRun.IsZero() {
		s.watchLocked(job)
		return
	}
	s.queue.push(job)
}

func (s *Scheduler) untrackLocked(id string) {
	delete(s.jobs, id)
	if stop, ok := s.watches[id]; ok {
		stop()
		delete(s.watches, id)
	}
	s.queue.removeFunc(func(j *domain.Job) bool { return j.ID == id })
}

func (s *Scheduler) watchLocked(job *domain.Job) {
	if s.notifier == nil {
		return
	}
	id := job.ID
	stop, err := s.notifier.Watch(s.runCtx, job.ContentURI, func() {
		go s.fireContentChange(id)
	})
	if err != nil {
		logger.Warn("scheduler: watching %s for %s: %v", job.ContentURI, job.Tag, err)
		return
	}
	s.watches[id] = stop
}

// fireContentChange runs a content-change job once and removes it.
func (s *Scheduler) fireContentChange(id string) {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	job, ok := s.jobs[id]
	if !ok || s.inflight[id] {
		s.mu.Unlock()
		return
	}
	if stop, ok := s.watches[id]; ok {
		stop()
		delete(s.watches, id)
	}
	logger.Debug("Content changed on %s; running %s", job.ContentURI, job.Tag)
	s.dispatchLocked(job)
	s.mu.Unlock()
}

// refreshLocked syncs the in-memory mirror with the store.
func (s *Scheduler) refreshLocked(ctx context.Context) error {
	s.lastRefresh = s.now()
	stored, err := s.store.ListJobs(ctx)
	if err != nil {
		return err
	}
	seen := make(map[string]bool, len(stored))
	for i := range stored {
		job := stored[i]
		seen[job.ID] = true
		if _, ok := s.jobs[job.ID]; ok {
			continue
		}
		s.trackLocked(&job)
	}
	for id := range s.jobs {
		if !seen[id] && !s.inflight[id] {
			s.untrackLocked(id)
		}
	}
	return nil
}

func (s *Scheduler) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// run is the main scheduler loop.
func (s *Scheduler) run(ctx context.Context) error {
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.Stop()
			return ctx.Err()
		case <-s.stopCh:
			return nil
		case <-s.wake:
		case <-timer.C:
		}

		timer.Reset(s.tick(ctx))
	}
}

// tick fires due jobs and returns how long to sleep.
func (s *Scheduler) tick(ctx context.Context) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return maxSleepCap
	}

	now := s.now()
	if now.Sub(s.lastRefresh) >= maxSleepCap {
		if err := s.refreshLocked(ctx); err != nil {
			logger.Warn("scheduler: failed to refresh jobs: %v", err)
		}
	}

	for {
		next := s.queue.peek()
		if next == nil || next.NextRun.After(now) {
			break
		}
		job := s.queue.pop()
		if _, ok := s.jobs[job.ID]; !ok {
			continue
		}
		if job.Constraints.WifiOnly && s.network != nil && !s.network.OnUnmetered() {
			logger.Debug("Deferring %s until an unmetered network is available", job.Tag)
			recheck := s.config.ConstraintRecheck
			if recheck <= 0 {
				recheck = maxSleepCap
			}
			job.NextRun = now.Add(recheck)
			s.queue.push(job)
			continue
		}
		s.dispatchLocked(job)
	}

	sleep := maxSleepCap
	if next := s.queue.peek(); next != nil {
		if d := next.NextRun.Sub(now); d < sleep {
			sleep = d
		}
	}
	if sleep < 0 {
		sleep = 0
	}
	return sleep
}

// dispatchLocked runs a job in its own goroutine.
func (s *Scheduler) dispatchLocked(job *domain.Job) {
	s.handlersMu.RLock()
	handler, ok := s.handlers[job.Tag]
	s.handlersMu.RUnlock()
	if !ok {
		logger.Warn("scheduler: no handler for tag %s; dropping job %s", job.Tag, job.ID)
		s.untrackLocked(job.ID)
		if err := s.store.DeleteJob(s.runCtx, job.ID); err != nil {
			logger.Warn("scheduler: failed to delete job %s: %v", job.ID, err)
		}
		return
	}

	s.inflight[job.ID] = true
	ctx := s.runCtx
	snapshot := *job
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		result := &domain.JobResult{
			JobID:     snapshot.ID,
			Tag:       snapshot.Tag,
			StartedAt: s.now(),
		}
		result.Result = handler(ctx, snapshot)
		result.EndedAt = s.now()
		logger.Debug("Job %s (%s) finished: %s", snapshot.Tag, snapshot.ID, result.Result)

		s.complete(ctx, job, result)
	}()
}

// complete applies a job's result: reschedule, back off, or drop.
func (s *Scheduler) complete(ctx context.Context, job *domain.Job, result *domain.JobResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.inflight, job.ID)
	if _, ok := s.jobs[job.ID]; !ok {
		// Cancelled while running. A handler may re-register its own tag, so
		// a Retry of a one-shot run is still honoured; periodic jobs have a
		// replacement or were cancelled for good.
		if result.Result == domain.ResultRetry && job.Kind != domain.JobPeriodic {
			if s.running {
				s.jobs[job.ID] = job
			}
			s.retryLocked(ctx, job, result.EndedAt)
		}
		s.recordLocked(ctx, result)
		return
	}

	switch {
	case result.Result == domain.ResultRetry:
		s.retryLocked(ctx, job, result.EndedAt)
	case job.Kind == domain.JobPeriodic:
		job.Attempts = 0
		job.NextRun = result.EndedAt.Add(job.Interval)
		s.requeueLocked(ctx, job)
	default:
		s.untrackLocked(job.ID)
		if err := s.store.DeleteJob(ctx, job.ID); err != nil {
			logger.Warn("scheduler: failed to delete job %s: %v", job.ID, err)
		}
	}

	s.recordLocked(ctx, result)
}

// retryLocked reschedules job as a one-off after its backoff.
func (s *Scheduler) retryLocked(ctx context.Context, job *domain.Job, endedAt time.Time) {
	job.Attempts++
	if job.Kind == domain.JobContentChange {
		job.Kind = domain.JobOneOff
	}
	job.NextRun = endedAt.Add(s.config.Backoff(job.Attempts))
	logger.Debug("Retrying %s in %s", job.Tag, job.NextRun.Sub(endedAt))
	s.requeueLocked(ctx, job)
}

func (s *Scheduler) requeueLocked(ctx context.Context, job *domain.Job) {
	if err := s.store.SaveJob(ctx, job); err != nil {
		logger.Warn("scheduler: failed to save job %s: %v", job.ID, err)
	}
	if !s.running {
		return
	}
	s.queue.push(job)
	s.signal()
}

func (s *Scheduler) recordLocked(ctx context.Context, result *domain.JobResult) {
	if err := s.store.RecordResult(ctx, result); err != nil {
		logger.Warn("scheduler: failed to record result for %s: %v", result.Tag, err)
	}
	if err := s.store.PruneHistory(ctx, s.config.HistoryLimit); err != nil {
		logger.Warn("scheduler: failed to prune history: %v", err)
	}
}

func copyPayload(payload map[string]string) map[string]string {
	if payload == nil {
		return nil
	}
	return maps.Clone(payload)
}
