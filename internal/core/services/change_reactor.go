package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/artsync/internal/core/domain"
	"github.com/custodia-labs/artsync/internal/core/ports/driven"
	"github.com/custodia-labs/artsync/internal/core/ports/driving"
	"github.com/custodia-labs/artsync/internal/logger"
)

// Ensure ChangeReactor implements the interface.
var _ driving.ChangeReactor = (*ChangeReactor)(nil)

// ChangeReactor sets up recurring artwork loads for the current provider and
// kicks off an immediate load when the current artwork is invalid or a load
// is overdue.
type ChangeReactor struct {
	store     driven.ProviderStore
	connector driven.ProviderConnector
	jobs      driven.JobScheduler
	validator driven.ImageValidator
	settings  driving.SettingsService
	listeners driving.PersistentListeners
	worker    *SyncWorker
	now       func() time.Time
}

// NewChangeReactor creates a change reactor.
// listeners and worker may be nil; without a worker React runs inline.
func NewChangeReactor(
	store driven.ProviderStore,
	connector driven.ProviderConnector,
	jobs driven.JobScheduler,
	validator driven.ImageValidator,
	settings driving.SettingsService,
	listeners driving.PersistentListeners,
	worker *SyncWorker,
) *ChangeReactor {
	return &ChangeReactor{
		store:     store,
		connector: connector,
		jobs:      jobs,
		validator: validator,
		settings:  settings,
		listeners: listeners,
		worker:    worker,
		now:       time.Now,
	}
}

// SetClock overrides the time source. Used by tests.
func (r *ChangeReactor) SetClock(now func() time.Time) {
	r.now = now
}

// React runs one reconciliation on the sync worker.
func (r *ChangeReactor) React(ctx context.Context, req domain.ReconcileRequest) domain.ReconcileResult {
	if r.worker == nil {
		return r.react(ctx, req)
	}
	return r.worker.Do(ctx, func(ctx context.Context) domain.ReconcileResult {
		return r.react(ctx, req)
	})
}

// HandleJob adapts React to a scheduler job.
func (r *ChangeReactor) HandleJob(ctx context.Context, job domain.Job) domain.ReconcileResult {
	req := domain.ReconcileRequest{
		Trigger:    domain.ReconcileTrigger(job.Payload[domain.PayloadTrigger]),
		ContentURI: job.Payload[domain.PayloadContentURI],
	}
	if job.Tag == domain.TagPersistentChanged {
		req.Trigger = domain.TriggerPersistentChange
		if req.ContentURI == "" {
			req.ContentURI = job.ContentURI
		}
	}
	return r.React(ctx, req)
}

func (r *ChangeReactor) react(ctx context.Context, req domain.ReconcileRequest) domain.ReconcileResult {
	// Re-arm first so changes made by this reconciliation are not missed.
	if req.Trigger == domain.TriggerPersistentChange && req.ContentURI != "" && r.listeners != nil {
		if err := r.listeners.Rearm(ctx, req.ContentURI); err != nil {
			logger.Warn("re-arming persistent listener on %s: %v", req.ContentURI, err)
		}
	}

	provider, err := r.store.GetCurrentProvider(ctx)
	if err != nil {
		logger.Warn("provider change (%s): reading current provider: %v", req.Trigger, err)
		return domain.ResultRetry
	}
	if provider == nil {
		logger.Debug("provider change (%s): no current provider", req.Trigger)
		return domain.ResultFail
	}
	logger.Debug("Provider change (%s) for %s", req.Trigger, provider.ID)

	result, err := r.reconcile(ctx, provider)
	if err != nil {
		if domain.IsTransportFault(err) {
			logger.Info("Provider %s crashed while retrieving artwork: %v", provider.ID, err)
		} else {
			logger.Warn("provider change (%s) for %s: %v", req.Trigger, provider.ID, err)
		}
		return domain.ResultRetry
	}
	return result
}

// reconcile applies the staleness policy to an open provider. Any error
// returned downgrades the reconciliation to a retry.
//
//nolint:gocyclo // Sequential reconciliation steps
func (r *ChangeReactor) reconcile(ctx context.Context, provider *domain.Provider) (domain.ReconcileResult, error) {
	client, err := r.connector.Connect(ctx, provider.ContentURI)
	if err != nil {
		return domain.ResultRetry, fmt.Errorf("connect: %w", err)
	}
	defer client.Close()

	info, err := client.GetLoadInfo(ctx)
	if err != nil {
		return domain.ResultRetry, fmt.Errorf("get load info: %w", err)
	}
	if info == nil {
		logger.Debug("Provider %s has no load info yet", provider.ID)
		return domain.ResultRetry, nil
	}

	cursor, err := client.Query(ctx)
	if err != nil {
		return domain.ResultRetry, fmt.Errorf("query artwork: %w", err)
	}
	defer cursor.Close()

	settings := r.settings.Get()
	currentValid, err := r.isCurrentArtworkValid(ctx, client, provider)
	if err != nil {
		return domain.ResultRetry, err
	}

	intent := domain.DecideIntent(settings, *info, currentValid, r.now())
	if intent.LoadNow {
		logger.Debug("Scheduling an immediate load")
		if err := r.jobs.EnqueueOneOff(ctx, domain.TagLoadNext, nil); err != nil {
			return domain.ResultRetry, fmt.Errorf("enqueue immediate load: %w", err)
		}
	}
	if intent.PeriodicInterval > 0 {
		constraints := domain.JobConstraints{WifiOnly: intent.WifiOnly}
		if err := r.jobs.EnqueuePeriodic(ctx, domain.TagLoadPeriodic, intent.PeriodicInterval, constraints); err != nil {
			return domain.ResultRetry, fmt.Errorf("enqueue periodic load: %w", err)
		}
	} else if err := r.jobs.CancelByTag(ctx, domain.TagLoadPeriodic); err != nil {
		return domain.ResultRetry, fmt.Errorf("cancel periodic load: %w", err)
	}

	validCount, err := r.countValidArtwork(ctx, client, cursor)
	if err != nil {
		return domain.ResultRetry, err
	}
	provider.SupportsNextArtwork = domain.SupportsNextArtwork(validCount)
	logger.Debug("Found at least %d artwork for %s", validCount, provider.ID)
	if err := r.store.UpdateProvider(ctx, *provider); err != nil {
		return domain.ResultRetry, fmt.Errorf("update provider: %w", err)
	}

	if domain.ShouldRequestLoad(validCount, intent) {
		logger.Debug("Requesting a load from %s", provider.ID)
		if err := client.RequestLoad(ctx); err != nil {
			return domain.ResultRetry, fmt.Errorf("request load: %w", err)
		}
	}
	return domain.ResultSuccess, nil
}

// isCurrentArtworkValid reports whether the artwork currently shown for the
// provider still exists and decodes. Only transport faults are returned.
func (r *ChangeReactor) isCurrentArtworkValid(
	ctx context.Context,
	client driven.ProviderClient,
	provider *domain.Provider,
) (bool, error) {
	current, err := r.store.GetCurrentArtworkForProvider(ctx, provider.ID)
	if err != nil {
		return false, fmt.Errorf("get current artwork: %w", err)
	}
	if current == nil {
		return false, nil
	}
	artwork, err := client.QueryArtwork(ctx, current.ID)
	if err != nil {
		if domain.IsTransportFault(err) {
			return false, fmt.Errorf("query current artwork: %w", err)
		}
		return false, nil
	}
	if artwork == nil {
		return false, nil
	}
	return r.isValidArtwork(ctx, client, *artwork)
}

// countValidArtwork walks the cursor until ValidArtworkScanLimit valid
// artworks are found.
func (r *ChangeReactor) countValidArtwork(
	ctx context.Context,
	client driven.ProviderClient,
	cursor driven.ArtworkCursor,
) (int, error) {
	valid := 0
	for valid < domain.ValidArtworkScanLimit && cursor.Next(ctx) {
		ok, err := r.isValidArtwork(ctx, client, cursor.Artwork())
		if err != nil {
			return valid, err
		}
		if ok {
			valid++
		}
	}
	if err := cursor.Err(); err != nil {
		return valid, fmt.Errorf("iterate artwork: %w", err)
	}
	return valid, nil
}

// isValidArtwork opens the artwork stream and checks it decodes.
// A decode failure or a non-transport stream error means "not valid".
func (r *ChangeReactor) isValidArtwork(
	ctx context.Context,
	client driven.ProviderClient,
	artwork domain.Artwork,
) (bool, error) {
	stream, err := client.OpenStream(ctx, artwork.ID)
	if err != nil {
		if domain.IsTransportFault(err) {
			return false, fmt.Errorf("open artwork %s: %w", artwork.ID, err)
		}
		logger.Warn("Unable to preload artwork %s: %v", artwork.ID, err)
		return false, nil
	}
	defer stream.Close()

	if err := r.validator.Validate(stream); err != nil {
		if errors.Is(err, domain.ErrInvalidImage) {
			logger.Debug("Artwork %s is not a valid image", artwork.ID)
		} else {
			logger.Warn("Unable to read artwork %s: %v", artwork.ID, err)
		}
		return false, nil
	}
	return true, nil
}
