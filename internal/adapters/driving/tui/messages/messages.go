// Package messages defines Bubbletea message types for the TUI.
// Messages represent events and commands that flow through the Elm architecture.
package messages

import (
	"github.com/custodia-labs/artsync/internal/core/domain"
	"github.com/custodia-labs/artsync/internal/core/ports/driving"
)

// ProviderChanged is delivered when the observed provider changes.
type ProviderChanged struct {
	Provider *domain.Provider
}

// StatusLoaded carries a fresh status snapshot back to the model.
type StatusLoaded struct {
	Status *driving.SyncStatus
	Err    error
}

// NextRequested reports the outcome of a next-artwork request.
type NextRequested struct {
	Err error
}

// WifiToggled reports the outcome of toggling wifi-only loading.
type WifiToggled struct {
	WifiOnly bool
	Err      error
}

// RefreshTick is sent periodically to reload the status snapshot.
type RefreshTick struct{}
