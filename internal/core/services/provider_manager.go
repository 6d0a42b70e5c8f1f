package services

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/artsync/internal/core/domain"
	"github.com/custodia-labs/artsync/internal/core/ports/driven"
	"github.com/custodia-labs/artsync/internal/core/ports/driving"
	"github.com/custodia-labs/artsync/internal/logger"
)

// Ensure ProviderManager implements the interface.
var _ driving.ProviderManager = (*ProviderManager)(nil)

// ProviderManager monitors the current provider. It is constructed once per
// process and shared by everything that needs "is anyone watching".
//
// All observer bookkeeping, stream callbacks and the debounce timer run on a
// single coordination goroutine; other goroutines hand work to it through
// the mailbox.
type ProviderManager struct {
	store     driven.ProviderStore
	notifier  driven.ChangeNotifier
	jobs      driven.JobScheduler
	settings  driving.SettingsService
	listeners driving.PersistentListeners
	debounce  time.Duration

	mailbox *mailbox
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}

	// Snapshot readable from any goroutine.
	snapshot      atomic.Pointer[domain.Provider]
	observerCount atomic.Int32

	// Confined to the coordination goroutine.
	current        *domain.Provider
	observers      map[driving.ObserverHandle]func(*domain.Provider)
	unsubProvider  func()
	unsubArtwork   func()
	stopWatch      func()
	nextArtworkJob *nextArtworkJob
}

// nextArtworkJob is a cancellable delayed "request next artwork".
type nextArtworkJob struct {
	timer     *time.Timer
	cancelled atomic.Bool
}

func (j *nextArtworkJob) cancel() {
	j.cancelled.Store(true)
	j.timer.Stop()
}

// NewProviderManager creates the manager and starts its coordination goroutine.
// Call Close to stop it.
func NewProviderManager(
	store driven.ProviderStore,
	notifier driven.ChangeNotifier,
	jobs driven.JobScheduler,
	settings driving.SettingsService,
	listeners driving.PersistentListeners,
) *ProviderManager {
	ctx, cancel := context.WithCancel(context.Background())
	m := &ProviderManager{
		store:     store,
		notifier:  notifier,
		jobs:      jobs,
		settings:  settings,
		listeners: listeners,
		debounce:  settings.DebounceDelay(),
		mailbox:   newMailbox(),
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
		observers: make(map[driving.ObserverHandle]func(*domain.Provider)),
	}
	go m.run()
	return m
}

// Close tears down any active listening and stops the coordination goroutine.
func (m *ProviderManager) Close() {
	m.call(func() {
		if len(m.observers) > 0 {
			m.observers = make(map[driving.ObserverHandle]func(*domain.Provider))
			m.observerCount.Store(0)
			m.onInactive()
		}
	})
	m.cancel()
	<-m.done
}

// Observe registers interest in the current provider.
func (m *ProviderManager) Observe(fn func(*domain.Provider)) driving.ObserverHandle {
	handle := driving.ObserverHandle(uuid.New().String())
	m.call(func() {
		if fn == nil {
			fn = func(*domain.Provider) {}
		}
		m.observers[handle] = fn
		m.observerCount.Store(int32(len(m.observers)))
		if len(m.observers) == 1 {
			m.onActive()
		}
		if m.current != nil {
			fn(copyProvider(m.current))
		}
	})
	return handle
}

// Release unregisters an observer.
func (m *ProviderManager) Release(handle driving.ObserverHandle) {
	m.call(func() {
		if _, ok := m.observers[handle]; !ok {
			return
		}
		delete(m.observers, handle)
		m.observerCount.Store(int32(len(m.observers)))
		if len(m.observers) == 0 {
			m.onInactive()
		}
	})
}

// CurrentProvider returns the latest known provider, or nil.
func (m *ProviderManager) CurrentProvider() *domain.Provider {
	return copyProvider(m.snapshot.Load())
}

// HasActiveObservers reports whether anyone is observing.
func (m *ProviderManager) HasActiveObservers() bool {
	return m.observerCount.Load() > 0
}

// SetLoadFrequencySeconds persists the load interval and reschedules.
func (m *ProviderManager) SetLoadFrequencySeconds(ctx context.Context, seconds int64) error {
	if err := m.settings.SetLoadFrequencySeconds(seconds); err != nil {
		return err
	}
	if seconds > 0 {
		constraints := domain.JobConstraints{WifiOnly: m.settings.LoadOnWifi()}
		return m.jobs.EnqueuePeriodic(ctx, domain.TagLoadPeriodic, domain.SecondsDuration(seconds), constraints)
	}
	return m.jobs.CancelByTag(ctx, domain.TagLoadPeriodic)
}

// SetLoadOnWifi persists the wifi-only preference and reschedules.
func (m *ProviderManager) SetLoadOnWifi(ctx context.Context, wifiOnly bool) error {
	if err := m.settings.SetLoadOnWifi(wifiOnly); err != nil {
		return err
	}
	seconds := m.settings.LoadFrequencySeconds()
	if seconds > 0 {
		constraints := domain.JobConstraints{WifiOnly: wifiOnly}
		return m.jobs.EnqueuePeriodic(ctx, domain.TagLoadPeriodic, domain.SecondsDuration(seconds), constraints)
	}
	return nil
}

// RequestNextArtwork issues an immediate load request.
func (m *ProviderManager) RequestNextArtwork(ctx context.Context) error {
	return m.jobs.EnqueueOneOff(ctx, domain.TagLoadNext, nil)
}

// run is the coordination goroutine.
func (m *ProviderManager) run() {
	defer close(m.done)
	for {
		select {
		case <-m.ctx.Done():
			return
		case <-m.mailbox.wake:
			for _, fn := range m.mailbox.drain() {
				fn()
			}
		}
	}
}

// post hands fn to the coordination goroutine without waiting.
func (m *ProviderManager) post(fn func()) {
	m.mailbox.put(fn)
}

// call runs fn on the coordination goroutine and waits for it.
func (m *ProviderManager) call(fn func()) {
	done := make(chan struct{})
	m.post(func() {
		defer close(done)
		fn()
	})
	select {
	case <-done:
	case <-m.done:
	}
}

func (m *ProviderManager) onActive() {
	logger.Debug("ProviderManager became active")
	if err := m.listeners.ObserverStateChanged(m.ctx, true); err != nil {
		logger.Warn("suspending persistent listener: %v", err)
	}
	m.unsubProvider = m.store.SubscribeCurrentProvider(func(p *domain.Provider) {
		p = copyProvider(p)
		m.post(func() { m.onProviderChanged(p) })
	})
	m.unsubArtwork = m.store.SubscribeCurrentArtwork(func(a *domain.Artwork) {
		m.post(func() { m.onArtworkChanged(a) })
	})
	m.startArtworkLoad()
}

func (m *ProviderManager) onInactive() {
	if m.nextArtworkJob != nil {
		m.nextArtworkJob.cancel()
		m.nextArtworkJob = nil
	}
	if m.unsubArtwork != nil {
		m.unsubArtwork()
		m.unsubArtwork = nil
	}
	if m.unsubProvider != nil {
		m.unsubProvider()
		m.unsubProvider = nil
	}
	if m.stopWatch != nil {
		m.stopWatch()
		m.stopWatch = nil
	}
	m.current = nil
	if err := m.jobs.CancelByTag(m.ctx, domain.TagLoadPeriodic); err != nil {
		logger.Warn("cancelling periodic load: %v", err)
	}
	if err := m.listeners.ObserverStateChanged(m.ctx, false); err != nil {
		logger.Warn("re-arming persistent listener: %v", err)
	}
	logger.Debug("ProviderManager is now inactive")
}

// startArtworkLoad listens for changes on the current provider's locator and
// kicks a "selected" reconciliation.
func (m *ProviderManager) startArtworkLoad() {
	if m.current == nil || len(m.observers) == 0 {
		return
	}
	logger.Debug("Starting artwork load for %s", m.current.ID)

	if m.stopWatch != nil {
		m.stopWatch()
		m.stopWatch = nil
	}
	uri := m.current.ContentURI
	stop, err := m.notifier.Watch(m.ctx, uri, func() {
		logger.Debug("onChange for %s", uri)
		m.enqueueReconcile(domain.TagProviderChanged, domain.TriggerChanged)
	})
	if err != nil {
		logger.Warn("watching %s: %v", uri, err)
	} else {
		m.stopWatch = stop
	}
	m.enqueueReconcile(domain.TagProviderSelected, domain.TriggerSelected)
}

func (m *ProviderManager) enqueueReconcile(tag string, trigger domain.ReconcileTrigger) {
	payload := map[string]string{domain.PayloadTrigger: string(trigger)}
	if err := m.jobs.EnqueueOneOff(m.ctx, tag, payload); err != nil {
		logger.Warn("enqueue %s reconciliation: %v", trigger, err)
	}
}

func (m *ProviderManager) onProviderChanged(provider *domain.Provider) {
	if len(m.observers) == 0 {
		return
	}
	existing := m.current
	m.current = provider
	m.snapshot.Store(copyProvider(provider))

	for _, fn := range m.observers {
		fn(copyProvider(provider))
	}

	if existing == nil || (provider != nil && provider.ID != existing.ID) {
		if provider != nil {
			logger.Debug("Provider changed to %s", provider.ID)
		}
		m.startArtworkLoad()
	}
}

func (m *ProviderManager) onArtworkChanged(artwork *domain.Artwork) {
	if len(m.observers) == 0 {
		return
	}
	if m.nextArtworkJob != nil {
		m.nextArtworkJob.cancel()
		m.nextArtworkJob = nil
	}
	if artwork != nil {
		return
	}

	// There must always be some artwork; load the next one after a short
	// delay in case the provider is mid-swap.
	job := &nextArtworkJob{}
	job.timer = time.AfterFunc(m.debounce, func() {
		m.post(func() {
			if m.nextArtworkJob != job || job.cancelled.Load() {
				return
			}
			m.nextArtworkJob = nil
			if err := m.RequestNextArtwork(m.ctx); err != nil {
				logger.Warn("requesting next artwork: %v", err)
			}
		})
	})
	m.nextArtworkJob = job
}

func copyProvider(p *domain.Provider) *domain.Provider {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}

// mailbox is an unbounded FIFO of functions. Posting never blocks, so store
// callbacks may post while the coordination goroutine is busy.
type mailbox struct {
	mu    sync.Mutex
	queue []func()
	wake  chan struct{}
}

func newMailbox() *mailbox {
	return &mailbox{wake: make(chan struct{}, 1)}
}

func (b *mailbox) put(fn func()) {
	b.mu.Lock()
	b.queue = append(b.queue, fn)
	b.mu.Unlock()
	select {
	case b.wake <- struct{}{}:
	default:
	}
}

func (b *mailbox) drain() []func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	q := b.queue
	b.queue = nil
	return q
}
