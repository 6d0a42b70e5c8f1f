// Package tui provides the interactive watch view for artsync.
// It implements a driving adapter following hexagonal architecture principles.
package tui

import (
	"github.com/custodia-labs/artsync/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the TUI.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Manager is observed for the lifetime of the view.
	Manager driving.ProviderManager

	// Status reports the current artwork and pending jobs.
	Status driving.StatusService

	// Settings reads the load schedule.
	Settings driving.SettingsService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Manager == nil {
		return ErrMissingProviderManager
	}
	return nil
}
