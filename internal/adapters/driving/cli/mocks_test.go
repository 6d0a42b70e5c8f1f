package cli

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/custodia-labs/artsync/internal/core/domain"
	"github.com/custodia-labs/artsync/internal/core/ports/driving"
)

// MockProviderManager implements driving.ProviderManager for CLI tests.
type MockProviderManager struct {
	frequency    *int64
	wifiOnly     *bool
	nextRequests int
	err          error
}

func (m *MockProviderManager) Observe(func(*domain.Provider)) driving.ObserverHandle { return "h" }
func (m *MockProviderManager) Release(driving.ObserverHandle)                        {}
func (m *MockProviderManager) CurrentProvider() *domain.Provider                     { return nil }
func (m *MockProviderManager) HasActiveObservers() bool                              { return false }

func (m *MockProviderManager) SetLoadFrequencySeconds(_ context.Context, seconds int64) error {
	if m.err != nil {
		return m.err
	}
	m.frequency = &seconds
	return nil
}

func (m *MockProviderManager) SetLoadOnWifi(_ context.Context, wifiOnly bool) error {
	if m.err != nil {
		return m.err
	}
	m.wifiOnly = &wifiOnly
	return nil
}

func (m *MockProviderManager) RequestNextArtwork(_ context.Context) error {
	m.nextRequests++
	return m.err
}

// MockProviderService implements driving.ProviderService for CLI tests.
type MockProviderService struct {
	current  *domain.Provider
	selected []string
	err      error
}

func (m *MockProviderService) Select(_ context.Context, id, contentURI string) (*domain.Provider, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.selected = append(m.selected, contentURI)
	if id == "" {
		id = "derived"
	}
	m.current = &domain.Provider{ID: id, ContentURI: contentURI}
	return m.current, nil
}

func (m *MockProviderService) Current(_ context.Context) (*domain.Provider, error) {
	return m.current, m.err
}

// MockListeners implements driving.PersistentListeners for CLI tests.
type MockListeners struct {
	names      []string
	registered string
	err        error
}

func (m *MockListeners) AddRequester(_ context.Context, name string) error {
	if m.err != nil {
		return m.err
	}
	m.names = append(m.names, name)
	m.registered = "file:///srv/art"
	return nil
}

func (m *MockListeners) RemoveRequester(_ context.Context, name string) error {
	if m.err != nil {
		return m.err
	}
	kept := m.names[:0]
	for _, n := range m.names {
		if n != name {
			kept = append(kept, n)
		}
	}
	m.names = kept
	if len(kept) == 0 {
		m.registered = ""
	}
	return nil
}

func (m *MockListeners) Requesters() []string { return m.names }

func (m *MockListeners) ObserverStateChanged(context.Context, bool) error { return nil }

func (m *MockListeners) Rearm(context.Context, string) error { return nil }

func (m *MockListeners) Registered() (string, bool) { return m.registered, m.registered != "" }

// MockSettingsService implements driving.SettingsService for CLI tests.
type MockSettingsService struct {
	settings domain.SyncSettings
}

func (m *MockSettingsService) Get() domain.SyncSettings            { return m.settings }
func (m *MockSettingsService) LoadFrequencySeconds() int64         { return m.settings.LoadFrequencySeconds }
func (m *MockSettingsService) SetLoadFrequencySeconds(int64) error { return nil }
func (m *MockSettingsService) LoadOnWifi() bool                    { return m.settings.LoadOnWifi }
func (m *MockSettingsService) SetLoadOnWifi(bool) error            { return nil }
func (m *MockSettingsService) PersistentListeners() []string       { return m.settings.PersistentListeners }
func (m *MockSettingsService) SetPersistentListeners([]string) error {
	return nil
}
func (m *MockSettingsService) DebounceDelay() time.Duration { return domain.DefaultDebounce }
func (m *MockSettingsService) MaxBackoff() time.Duration    { return 5 * time.Minute }

// MockStatusService implements driving.StatusService for CLI tests.
type MockStatusService struct {
	status *driving.SyncStatus
	err    error
}

func (m *MockStatusService) Status(context.Context) (*driving.SyncStatus, error) {
	return m.status, m.err
}

// MockArtworkLoader implements driving.ArtworkLoader for CLI tests.
type MockArtworkLoader struct {
	result domain.ReconcileResult
	calls  int
}

func (m *MockArtworkLoader) LoadNext(context.Context) domain.ReconcileResult {
	m.calls++
	return m.result
}

// MockDaemon implements Daemon for CLI tests.
type MockDaemon struct {
	observe []bool
	err     error
}

func (m *MockDaemon) Run(_ context.Context, observe bool) error {
	m.observe = append(m.observe, observe)
	return m.err
}

// executeCommand runs the root command with services and returns its output.
func executeCommand(t *testing.T, services *Services, args ...string) (string, error) {
	t.Helper()

	SetServices(services)
	t.Cleanup(func() {
		SetServices(nil)
		resetFlags(rootCmd)
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	})

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)

	err := rootCmd.Execute()
	return buf.String(), err
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}
