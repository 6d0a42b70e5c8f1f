package mcp

import (
	"context"

	"github.com/custodia-labs/artsync/internal/core/domain"
	"github.com/custodia-labs/artsync/internal/core/ports/driving"
)

// mockProviderManager is a mock implementation of driving.ProviderManager.
type mockProviderManager struct {
	provider      *domain.Provider
	observed      bool
	nextRequests  int
	frequency     int64
	frequencySets int
	err           error
}

func (m *mockProviderManager) Observe(_ func(*domain.Provider)) driving.ObserverHandle {
	return "handle"
}

func (m *mockProviderManager) Release(_ driving.ObserverHandle) {}

func (m *mockProviderManager) CurrentProvider() *domain.Provider {
	return m.provider
}

func (m *mockProviderManager) HasActiveObservers() bool {
	return m.observed
}

func (m *mockProviderManager) SetLoadFrequencySeconds(_ context.Context, seconds int64) error {
	if m.err != nil {
		return m.err
	}
	m.frequency = seconds
	m.frequencySets++
	return nil
}

func (m *mockProviderManager) SetLoadOnWifi(_ context.Context, _ bool) error {
	return m.err
}

func (m *mockProviderManager) RequestNextArtwork(_ context.Context) error {
	if m.err != nil {
		return m.err
	}
	m.nextRequests++
	return nil
}

// mockStatusService is a mock implementation of driving.StatusService.
type mockStatusService struct {
	status *driving.SyncStatus
	err    error
}

func (m *mockStatusService) Status(_ context.Context) (*driving.SyncStatus, error) {
	return m.status, m.err
}
