package mcp

import (
	"github.com/custodia-labs/artsync/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Manager requests artwork and changes the load schedule.
	Manager driving.ProviderManager

	// Status reports the sync state.
	Status driving.StatusService
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Manager == nil {
		return ErrMissingProviderManager
	}
	// Status is optional; sync_status and the resources degrade without it
	return nil
}
