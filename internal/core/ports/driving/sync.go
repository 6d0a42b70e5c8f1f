package driving

import (
	"context"
	"time"

	"github.com/custodia-labs/artsync/internal/core/domain"
)

// ChangeReactor reconciles the current provider's state after a change.
type ChangeReactor interface {
	// React runs one reconciliation. It never returns an error; every fault
	// is folded into the three-valued result.
	React(ctx context.Context, req domain.ReconcileRequest) domain.ReconcileResult
}

// ArtworkLoader loads new artwork from the current provider.
type ArtworkLoader interface {
	// LoadNext makes the provider's next artwork current.
	LoadNext(ctx context.Context) domain.ReconcileResult
}

// StatusService reports the sync state for display.
type StatusService interface {
	// Status returns a snapshot of the sync state.
	Status(ctx context.Context) (*SyncStatus, error)
}

// SyncStatus is a snapshot of the sync state.
type SyncStatus struct {
	// Provider is the current provider, nil if none is selected.
	Provider *domain.Provider

	// Artwork is the current artwork, nil if none.
	Artwork *domain.Artwork

	// Settings is the persisted sync configuration.
	Settings domain.SyncSettings

	// ListenerRegistered is the content URI the persistent listener is
	// registered on, empty when unregistered.
	ListenerRegistered string

	// Jobs lists pending jobs.
	Jobs []domain.Job

	// LastResults holds the most recent result per tag.
	LastResults map[string]domain.JobResult

	// GeneratedAt is when the snapshot was taken.
	GeneratedAt time.Time
}
