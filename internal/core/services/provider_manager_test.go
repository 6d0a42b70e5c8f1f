package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/artsync/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/artsync/internal/core/domain"
)

const testDebounce = 100 * time.Millisecond

type managerFixture struct {
	store     *memory.ProviderStore
	notifier  *mockNotifier
	jobs      *mockJobScheduler
	settings  *SettingsService
	listeners *PersistentListeners
	manager   *ProviderManager
}

func newManagerFixture(t *testing.T) *managerFixture {
	t.Helper()
	config := memory.NewConfigStore()
	require.NoError(t, config.Set(domain.KeyDebounceMillis, int(testDebounce/time.Millisecond)))
	f := &managerFixture{
		store:    memory.NewProviderStore(),
		notifier: newMockNotifier(),
		jobs:     &mockJobScheduler{},
		settings: NewSettingsService(config),
	}
	f.listeners = NewPersistentListeners(f.settings, f.store, f.jobs)
	f.manager = NewProviderManager(f.store, f.notifier, f.jobs, f.settings, f.listeners)
	t.Cleanup(f.manager.Close)
	return f
}

func (f *managerFixture) selectProvider(t *testing.T, id, uri string) {
	t.Helper()
	require.NoError(t, f.store.SetCurrentProvider(context.Background(), domain.Provider{ID: id, ContentURI: uri}))
	f.flush()
}

func (f *managerFixture) showArtwork(t *testing.T, providerID, id string) {
	t.Helper()
	require.NoError(t, f.store.InsertArtwork(context.Background(), domain.Artwork{ID: id, ProviderID: providerID}))
	f.flush()
}

// flush waits until the coordination goroutine has handled everything
// posted so far.
func (f *managerFixture) flush() {
	f.manager.call(func() {})
}

// recorder collects provider emissions for an observer.
type recorder struct {
	mu  sync.Mutex
	got []*domain.Provider
}

func (r *recorder) observe(p *domain.Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, p)
}

func (r *recorder) all() []*domain.Provider {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*domain.Provider(nil), r.got...)
}

func TestProviderManager_FirstObserverActivates(t *testing.T) {
	f := newManagerFixture(t)
	f.selectProvider(t, "a", "file:///a")
	f.showArtwork(t, "a", "1.jpg")

	assert.False(t, f.manager.HasActiveObservers())
	assert.Empty(t, f.jobs.Calls(), "nothing runs without observers")

	var r recorder
	handle := f.manager.Observe(r.observe)
	f.flush()

	assert.NotEmpty(t, handle)
	assert.True(t, f.manager.HasActiveObservers())
	assert.Equal(t, 1, f.notifier.Active("file:///a"))
	assert.Equal(t, 1, f.jobs.Count("oneoff", domain.TagProviderSelected))

	got := r.all()
	require.NotEmpty(t, got)
	assert.Equal(t, "a", got[len(got)-1].ID)
	require.NotNil(t, f.manager.CurrentProvider())
	assert.Equal(t, "a", f.manager.CurrentProvider().ID)

	for _, c := range f.jobs.Calls() {
		if c.Tag == domain.TagProviderSelected {
			assert.Equal(t, string(domain.TriggerSelected), c.Payload[domain.PayloadTrigger])
		}
	}
}

func TestProviderManager_SecondObserverDoesNotReactivate(t *testing.T) {
	f := newManagerFixture(t)
	f.selectProvider(t, "a", "file:///a")
	f.showArtwork(t, "a", "1.jpg")

	first := f.manager.Observe(nil)
	f.flush()

	var r recorder
	second := f.manager.Observe(r.observe)
	f.flush()

	assert.NotEqual(t, first, second)
	assert.Equal(t, 1, f.jobs.Count("oneoff", domain.TagProviderSelected))
	assert.Equal(t, 1, f.notifier.Active("file:///a"))
	require.Len(t, r.all(), 1, "late observer receives the current provider")

	f.manager.Release(first)
	f.flush()
	assert.True(t, f.manager.HasActiveObservers())
	assert.Equal(t, 1, f.notifier.Active("file:///a"))
}

func TestProviderManager_LastReleaseDeactivates(t *testing.T) {
	f := newManagerFixture(t)
	f.selectProvider(t, "a", "file:///a")
	f.showArtwork(t, "a", "1.jpg")

	handle := f.manager.Observe(nil)
	f.flush()
	f.jobs.Reset()

	f.manager.Release(handle)
	f.manager.Release(handle)
	f.flush()

	assert.False(t, f.manager.HasActiveObservers())
	assert.Zero(t, f.notifier.Active("file:///a"))
	assert.Equal(t, 1, f.jobs.Count("cancel", domain.TagLoadPeriodic))

	// Store changes no longer reach the manager.
	f.selectProvider(t, "b", "file:///b")
	assert.Zero(t, f.jobs.Count("oneoff", domain.TagProviderSelected))
}

func TestProviderManager_ObserverStateDrivesPersistentListener(t *testing.T) {
	f := newManagerFixture(t)
	f.selectProvider(t, "a", "file:///a")
	f.showArtwork(t, "a", "1.jpg")
	ctx := context.Background()

	require.NoError(t, f.listeners.AddRequester(ctx, "lockscreen"))
	uri, ok := f.listeners.Registered()
	require.True(t, ok)
	assert.Equal(t, "file:///a", uri)

	handle := f.manager.Observe(nil)
	f.flush()
	_, ok = f.listeners.Registered()
	assert.False(t, ok, "suppressed while observed")

	f.manager.Release(handle)
	f.flush()
	uri, ok = f.listeners.Registered()
	assert.True(t, ok, "re-armed once unobserved")
	assert.Equal(t, "file:///a", uri)
}

func TestProviderManager_ProviderIdentityChange(t *testing.T) {
	f := newManagerFixture(t)
	f.selectProvider(t, "a", "file:///a")
	f.showArtwork(t, "a", "1.jpg")

	var r recorder
	f.manager.Observe(r.observe)
	f.flush()
	require.NoError(t, f.store.InsertArtwork(context.Background(), domain.Artwork{ID: "2.jpg", ProviderID: "b"}))
	f.flush()

	f.selectProvider(t, "b", "file:///b")

	assert.Equal(t, 2, f.jobs.Count("oneoff", domain.TagProviderSelected))
	assert.Zero(t, f.notifier.Active("file:///a"))
	assert.Equal(t, 1, f.notifier.Active("file:///b"))
	assert.Equal(t, "b", f.manager.CurrentProvider().ID)
	got := r.all()
	assert.Equal(t, "b", got[len(got)-1].ID)
}

func TestProviderManager_SameIdentityUpdateIsPushedWithoutReload(t *testing.T) {
	f := newManagerFixture(t)
	f.selectProvider(t, "a", "file:///a")
	f.showArtwork(t, "a", "1.jpg")

	var r recorder
	f.manager.Observe(r.observe)
	f.flush()
	before := len(r.all())

	require.NoError(t, f.store.UpdateProvider(context.Background(),
		domain.Provider{ID: "a", ContentURI: "file:///a", SupportsNextArtwork: true}))
	f.flush()

	got := r.all()
	require.Len(t, got, before+1)
	assert.True(t, got[len(got)-1].SupportsNextArtwork)
	assert.True(t, f.manager.CurrentProvider().SupportsNextArtwork)
	assert.Equal(t, 1, f.jobs.Count("oneoff", domain.TagProviderSelected))
	assert.Equal(t, 1, f.notifier.Active("file:///a"))
}

func TestProviderManager_NoProviderThenProviderAppears(t *testing.T) {
	f := newManagerFixture(t)

	f.manager.Observe(nil)
	f.flush()
	assert.Zero(t, f.jobs.Count("oneoff", domain.TagProviderSelected))
	assert.Nil(t, f.manager.CurrentProvider())

	f.selectProvider(t, "a", "file:///a")
	assert.Equal(t, 1, f.jobs.Count("oneoff", domain.TagProviderSelected))
	assert.Equal(t, 1, f.notifier.Active("file:///a"))
}

func TestProviderManager_ContentChangeEnqueuesChangedReconcile(t *testing.T) {
	f := newManagerFixture(t)
	f.selectProvider(t, "a", "file:///a")
	f.showArtwork(t, "a", "1.jpg")
	f.manager.Observe(nil)
	f.flush()

	f.notifier.Fire("file:///a")

	require.Equal(t, 1, f.jobs.Count("oneoff", domain.TagProviderChanged))
	for _, c := range f.jobs.Calls() {
		if c.Tag == domain.TagProviderChanged {
			assert.Equal(t, string(domain.TriggerChanged), c.Payload[domain.PayloadTrigger])
		}
	}
}

func TestProviderManager_DebounceSuppressedWhenArtworkReturns(t *testing.T) {
	f := newManagerFixture(t)
	f.selectProvider(t, "a", "file:///a")
	f.showArtwork(t, "a", "1.jpg")
	f.manager.Observe(nil)
	f.flush()

	require.NoError(t, f.store.DeleteArtwork(context.Background(), "a"))
	f.flush()
	time.Sleep(testDebounce / 2)
	f.showArtwork(t, "a", "2.jpg")

	time.Sleep(3 * testDebounce)
	f.flush()
	assert.Zero(t, f.jobs.Count("oneoff", domain.TagLoadNext))
}

func TestProviderManager_DebounceFiresOnceWhenArtworkStaysAbsent(t *testing.T) {
	f := newManagerFixture(t)
	f.selectProvider(t, "a", "file:///a")
	f.showArtwork(t, "a", "1.jpg")
	f.manager.Observe(nil)
	f.flush()

	require.NoError(t, f.store.DeleteArtwork(context.Background(), "a"))
	f.flush()

	assert.Eventually(t, func() bool {
		return f.jobs.Count("oneoff", domain.TagLoadNext) == 1
	}, 2*time.Second, 10*time.Millisecond)

	time.Sleep(3 * testDebounce)
	assert.Equal(t, 1, f.jobs.Count("oneoff", domain.TagLoadNext))
}

func TestProviderManager_ReleaseCancelsPendingDebounce(t *testing.T) {
	f := newManagerFixture(t)
	f.selectProvider(t, "a", "file:///a")
	f.showArtwork(t, "a", "1.jpg")
	handle := f.manager.Observe(nil)
	f.flush()

	require.NoError(t, f.store.DeleteArtwork(context.Background(), "a"))
	f.flush()
	f.manager.Release(handle)

	time.Sleep(3 * testDebounce)
	f.flush()
	assert.Zero(t, f.jobs.Count("oneoff", domain.TagLoadNext))
}

func TestProviderManager_SetLoadFrequencySeconds(t *testing.T) {
	f := newManagerFixture(t)
	ctx := context.Background()
	require.NoError(t, f.manager.SetLoadOnWifi(ctx, true))
	f.jobs.Reset()

	require.NoError(t, f.manager.SetLoadFrequencySeconds(ctx, 1800))
	calls := f.jobs.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "periodic", calls[0].Op)
	assert.Equal(t, 1800*time.Second, calls[0].Interval)
	assert.True(t, calls[0].Constraints.WifiOnly)
	assert.Equal(t, int64(1800), f.settings.LoadFrequencySeconds())

	f.jobs.Reset()
	require.NoError(t, f.manager.SetLoadFrequencySeconds(ctx, 0))
	assert.Equal(t, []jobCall{{Op: "cancel", Tag: domain.TagLoadPeriodic}}, f.jobs.Calls())

	assert.ErrorIs(t, f.manager.SetLoadFrequencySeconds(ctx, -5), domain.ErrInvalidInput)
}

func TestProviderManager_SetLoadFrequencySecondsOutOfRange(t *testing.T) {
	f := newManagerFixture(t)
	ctx := context.Background()
	require.NoError(t, f.manager.SetLoadFrequencySeconds(ctx, 1800))
	f.jobs.Reset()

	err := f.manager.SetLoadFrequencySeconds(ctx, 10_000_000_000)

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Empty(t, f.jobs.Calls())
	assert.Equal(t, int64(1800), f.settings.LoadFrequencySeconds(), "config and jobs stay in step")
}

func TestProviderManager_SetLoadOnWifi(t *testing.T) {
	f := newManagerFixture(t)
	ctx := context.Background()

	require.NoError(t, f.manager.SetLoadOnWifi(ctx, true))
	calls := f.jobs.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, domain.JobConstraints{WifiOnly: true}, calls[0].Constraints)
	assert.Equal(t, time.Duration(domain.DefaultLoadFrequencySeconds)*time.Second, calls[0].Interval)
	assert.True(t, f.settings.LoadOnWifi())

	require.NoError(t, f.settings.SetLoadFrequencySeconds(0))
	f.jobs.Reset()
	require.NoError(t, f.manager.SetLoadOnWifi(ctx, false))
	assert.Empty(t, f.jobs.Calls())
}

func TestProviderManager_RequestNextArtwork(t *testing.T) {
	f := newManagerFixture(t)

	require.NoError(t, f.manager.RequestNextArtwork(context.Background()))

	assert.Equal(t, 1, f.jobs.Count("oneoff", domain.TagLoadNext))
}
