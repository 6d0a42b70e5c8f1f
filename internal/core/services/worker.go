package services

import (
	"context"
	"sync"

	"github.com/custodia-labs/artsync/internal/core/domain"
)

// SyncWorker runs sync work one task at a time on a dedicated goroutine.
// Reconciliations and artwork loads submitted from any goroutine are
// serialised, so a "changed" and a "selected" reconciliation never race.
type SyncWorker struct {
	tasks chan workerTask

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

type workerTask struct {
	ctx  context.Context
	fn   func(ctx context.Context) domain.ReconcileResult
	done chan domain.ReconcileResult
}

// NewSyncWorker creates a stopped worker.
func NewSyncWorker() *SyncWorker {
	return &SyncWorker{tasks: make(chan workerTask)}
}

// Start launches the worker goroutine. Calling Start twice is a no-op.
func (w *SyncWorker) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.wg.Add(1)
	go w.run(w.stopCh)
}

// Stop waits for the in-flight task, if any, and stops the worker.
func (w *SyncWorker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	close(w.stopCh)
	w.mu.Unlock()

	w.wg.Wait()
}

// Do submits fn and waits for its result.
// Returns ResultRetry if the worker is stopped or ctx ends first.
func (w *SyncWorker) Do(ctx context.Context, fn func(ctx context.Context) domain.ReconcileResult) domain.ReconcileResult {
	w.mu.Lock()
	running, stopCh := w.running, w.stopCh
	w.mu.Unlock()
	if !running {
		return domain.ResultRetry
	}

	task := workerTask{ctx: ctx, fn: fn, done: make(chan domain.ReconcileResult, 1)}
	select {
	case w.tasks <- task:
	case <-stopCh:
		return domain.ResultRetry
	case <-ctx.Done():
		return domain.ResultRetry
	}

	select {
	case result := <-task.done:
		return result
	case <-ctx.Done():
		return domain.ResultRetry
	}
}

func (w *SyncWorker) run(stopCh chan struct{}) {
	defer w.wg.Done()
	for {
		select {
		case <-stopCh:
			return
		case task := <-w.tasks:
			if task.ctx.Err() != nil {
				task.done <- domain.ResultRetry
				continue
			}
			task.done <- task.fn(task.ctx)
		}
	}
}
