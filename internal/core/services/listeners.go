package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/custodia-labs/artsync/internal/core/domain"
	"github.com/custodia-labs/artsync/internal/core/ports/driven"
	"github.com/custodia-labs/artsync/internal/core/ports/driving"
	"github.com/custodia-labs/artsync/internal/logger"
)

// Ensure PersistentListeners implements the interface.
var _ driving.PersistentListeners = (*PersistentListeners)(nil)

// PersistentListeners keeps at most one content-change job registered on the
// current provider's locator while requesters exist and nobody in the
// process is observing. States are Unregistered (registered == "") and
// Registered(registered).
type PersistentListeners struct {
	settings driving.SettingsService
	store    driven.ProviderStore
	jobs     driven.JobScheduler

	mu             sync.Mutex
	observerActive bool
	registered     string
	pendingUnsub   func()
}

// NewPersistentListeners creates the listener state machine in the
// Unregistered state.
func NewPersistentListeners(
	settings driving.SettingsService,
	store driven.ProviderStore,
	jobs driven.JobScheduler,
) *PersistentListeners {
	return &PersistentListeners{
		settings: settings,
		store:    store,
		jobs:     jobs,
	}
}

// Restore re-derives the registration from the persisted requester set,
// used at process start.
func (l *PersistentListeners) Restore(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.settings.PersistentListeners()) == 0 || l.observerActive {
		return l.unregisterLocked(ctx)
	}
	return l.startListeningLocked(ctx)
}

// AddRequester adds a named requester.
func (l *PersistentListeners) AddRequester(ctx context.Context, name string) error {
	if name == "" {
		return domain.ErrInvalidInput
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	names := l.settings.PersistentListeners()
	wasEmpty := len(names) == 0
	if err := l.settings.SetPersistentListeners(append(names, name)); err != nil {
		return fmt.Errorf("save persistent listeners: %w", err)
	}
	if wasEmpty && !l.observerActive {
		return l.startListeningLocked(ctx)
	}
	return nil
}

// RemoveRequester removes a named requester.
func (l *PersistentListeners) RemoveRequester(ctx context.Context, name string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	names := l.settings.PersistentListeners()
	kept := names[:0]
	for _, n := range names {
		if n != name {
			kept = append(kept, n)
		}
	}
	if err := l.settings.SetPersistentListeners(kept); err != nil {
		return fmt.Errorf("save persistent listeners: %w", err)
	}
	if len(kept) == 0 {
		return l.unregisterLocked(ctx)
	}
	return nil
}

// Requesters returns the current requester names, sorted.
func (l *PersistentListeners) Requesters() []string {
	return l.settings.PersistentListeners()
}

// ObserverStateChanged suppresses the listener while an in-process observer
// exists and reinstates it when the last one leaves.
func (l *PersistentListeners) ObserverStateChanged(ctx context.Context, active bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.observerActive = active
	if len(l.settings.PersistentListeners()) == 0 {
		return nil
	}
	if active {
		return l.unregisterLocked(ctx)
	}
	return l.startListeningLocked(ctx)
}

// Rearm re-registers the one-shot listener on contentURI after it fired.
// A stale firing after the requesters were removed, or while an observer is
// active, does not resurrect the listener.
func (l *PersistentListeners) Rearm(ctx context.Context, contentURI string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.settings.PersistentListeners()) == 0 || l.observerActive {
		logger.Debug("Not re-arming persistent listener on %s", contentURI)
		return nil
	}
	return l.scheduleLocked(ctx, contentURI)
}

// CancelForeign removes a listener another process registered in the shared
// job store while an observer in this process is active.
func (l *PersistentListeners) CancelForeign(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.observerActive {
		return nil
	}
	if err := l.jobs.CancelByTag(ctx, domain.TagPersistentChanged); err != nil {
		return fmt.Errorf("cancel persistent listener: %w", err)
	}
	return nil
}

// Registered returns the locator the listener is registered on.
func (l *PersistentListeners) Registered() (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.registered, l.registered != ""
}

// startListeningLocked registers on the current provider's locator, waiting
// for a provider to appear if there is none yet.
func (l *PersistentListeners) startListeningLocked(ctx context.Context) error {
	provider, err := l.store.GetCurrentProvider(ctx)
	if err != nil {
		return fmt.Errorf("get current provider: %w", err)
	}
	if provider != nil {
		return l.scheduleLocked(ctx, provider.ContentURI)
	}
	if l.pendingUnsub != nil {
		return nil
	}

	logger.Debug("No provider yet; persistent listener waits for one")
	var unsub func()
	var once sync.Once
	unsub = l.store.SubscribeCurrentProvider(func(p *domain.Provider) {
		if p == nil {
			return
		}
		// Runs on the store's mutating goroutine; hand off so the store
		// callback never waits on l.mu.
		go once.Do(func() { l.onProviderAppeared(ctx, p.ContentURI) })
	})
	l.pendingUnsub = unsub
	return nil
}

func (l *PersistentListeners) onProviderAppeared(ctx context.Context, contentURI string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.pendingUnsub != nil {
		l.pendingUnsub()
		l.pendingUnsub = nil
	}
	if len(l.settings.PersistentListeners()) == 0 || l.observerActive {
		return
	}
	if err := l.scheduleLocked(context.WithoutCancel(ctx), contentURI); err != nil {
		logger.Warn("registering persistent listener on %s: %v", contentURI, err)
	}
}

// scheduleLocked cancels any existing registration before creating a new one
// so at most one is outstanding.
func (l *PersistentListeners) scheduleLocked(ctx context.Context, contentURI string) error {
	if err := l.jobs.CancelByTag(ctx, domain.TagPersistentChanged); err != nil {
		return fmt.Errorf("cancel persistent listener: %w", err)
	}
	payload := map[string]string{
		domain.PayloadTrigger:    string(domain.TriggerPersistentChange),
		domain.PayloadContentURI: contentURI,
	}
	if err := l.jobs.EnqueueOnContentChange(ctx, domain.TagPersistentChanged, contentURI, payload); err != nil {
		l.registered = ""
		return fmt.Errorf("schedule persistent listener: %w", err)
	}
	l.registered = contentURI
	logger.Debug("Persistent listener registered on %s", contentURI)
	return nil
}

func (l *PersistentListeners) unregisterLocked(ctx context.Context) error {
	if l.pendingUnsub != nil {
		l.pendingUnsub()
		l.pendingUnsub = nil
	}
	if err := l.jobs.CancelByTag(ctx, domain.TagPersistentChanged); err != nil {
		return fmt.Errorf("cancel persistent listener: %w", err)
	}
	if l.registered != "" {
		logger.Debug("Persistent listener unregistered from %s", l.registered)
	}
	l.registered = ""
	return nil
}
