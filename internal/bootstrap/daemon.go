package bootstrap

import (
	"context"
	"errors"
	"time"

	"github.com/custodia-labs/artsync/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/artsync/internal/core/domain"
	"github.com/custodia-labs/artsync/internal/core/services"
	"github.com/custodia-labs/artsync/internal/logger"
)

// Daemon runs the scheduler, the sync worker and the store poller.
type Daemon struct {
	scheduler    *services.Scheduler
	worker       *services.SyncWorker
	store        *sqlite.Store
	listeners    *services.PersistentListeners
	manager      *services.ProviderManager
	pollInterval time.Duration
}

// Run blocks until ctx is cancelled or the scheduler fails.
func (d *Daemon) Run(ctx context.Context, observe bool) error {
	d.worker.Start()
	defer d.worker.Stop()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	schedErr := make(chan error, 1)
	go func() { schedErr <- d.scheduler.Start(ctx) }()
	polled := make(chan struct{})
	go func() {
		defer close(polled)
		d.store.Poll(ctx, d.pollInterval)
	}()
	swept := make(chan struct{})
	go func() {
		defer close(swept)
		d.sweepListeners(ctx)
	}()

	if err := d.listeners.Restore(ctx); err != nil {
		logger.Warn("restoring persistent listener: %v", err)
	}

	if observe {
		handle := d.manager.Observe(func(p *domain.Provider) {
			if p == nil {
				logger.Info("No provider selected")
				return
			}
			logger.Info("Current provider: %s (%s)", p.ID, p.ContentURI)
		})
		defer d.manager.Release(handle)
	}

	var err error
	select {
	case <-ctx.Done():
		err = <-schedErr
	case err = <-schedErr:
	}
	d.scheduler.Stop()
	cancel()
	<-polled
	<-swept

	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// sweepListeners drops persistent listeners armed by one-shot commands while
// this daemon observes the provider.
func (d *Daemon) sweepListeners(ctx context.Context) {
	ticker := time.NewTicker(d.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := d.listeners.CancelForeign(ctx); err != nil {
				logger.Warn("sweeping persistent listeners: %v", err)
			}
		}
	}
}
