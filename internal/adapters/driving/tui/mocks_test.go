package tui

import (
	"context"
	"sync"

	"github.com/custodia-labs/artsync/internal/core/domain"
	"github.com/custodia-labs/artsync/internal/core/ports/driving"
)

// MockProviderManager implements driving.ProviderManager for TUI tests.
type MockProviderManager struct {
	mu           sync.Mutex
	observers    map[driving.ObserverHandle]func(*domain.Provider)
	released     []driving.ObserverHandle
	nextRequests int
	wifiOnly     []bool
	err          error
}

func NewMockProviderManager() *MockProviderManager {
	return &MockProviderManager{observers: make(map[driving.ObserverHandle]func(*domain.Provider))}
}

func (m *MockProviderManager) Observe(fn func(*domain.Provider)) driving.ObserverHandle {
	m.mu.Lock()
	defer m.mu.Unlock()
	handle := driving.ObserverHandle("handle-1")
	m.observers[handle] = fn
	return handle
}

func (m *MockProviderManager) Release(handle driving.ObserverHandle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.observers, handle)
	m.released = append(m.released, handle)
}

func (m *MockProviderManager) Emit(p *domain.Provider) {
	m.mu.Lock()
	fns := make([]func(*domain.Provider), 0, len(m.observers))
	for _, fn := range m.observers {
		fns = append(fns, fn)
	}
	m.mu.Unlock()
	for _, fn := range fns {
		fn(p)
	}
}

func (m *MockProviderManager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.observers)
}

func (m *MockProviderManager) CurrentProvider() *domain.Provider { return nil }

func (m *MockProviderManager) HasActiveObservers() bool { return m.Active() > 0 }

func (m *MockProviderManager) SetLoadFrequencySeconds(_ context.Context, _ int64) error {
	return m.err
}

func (m *MockProviderManager) SetLoadOnWifi(_ context.Context, wifiOnly bool) error {
	m.wifiOnly = append(m.wifiOnly, wifiOnly)
	return m.err
}

func (m *MockProviderManager) RequestNextArtwork(_ context.Context) error {
	m.nextRequests++
	return m.err
}

// MockStatusService implements driving.StatusService for TUI tests.
type MockStatusService struct {
	status *driving.SyncStatus
	err    error
}

func (m *MockStatusService) Status(_ context.Context) (*driving.SyncStatus, error) {
	return m.status, m.err
}
