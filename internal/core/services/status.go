package services

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/artsync/internal/core/domain"
	"github.com/custodia-labs/artsync/internal/core/ports/driven"
	"github.com/custodia-labs/artsync/internal/core/ports/driving"
)

// Ensure StatusService implements the interface.
var _ driving.StatusService = (*StatusService)(nil)

var statusTags = []string{
	domain.TagProviderSelected,
	domain.TagProviderChanged,
	domain.TagPersistentChanged,
	domain.TagLoadNext,
	domain.TagLoadPeriodic,
}

// StatusService assembles a sync status snapshot.
type StatusService struct {
	store     driven.ProviderStore
	jobStore  driven.JobStore
	settings  driving.SettingsService
	listeners driving.PersistentListeners
}

// NewStatusService creates a status service.
func NewStatusService(
	store driven.ProviderStore,
	jobStore driven.JobStore,
	settings driving.SettingsService,
	listeners driving.PersistentListeners,
) *StatusService {
	return &StatusService{
		store:     store,
		jobStore:  jobStore,
		settings:  settings,
		listeners: listeners,
	}
}

// Status returns a snapshot of the sync state.
func (s *StatusService) Status(ctx context.Context) (*driving.SyncStatus, error) {
	status := &driving.SyncStatus{
		Settings:    s.settings.Get(),
		LastResults: make(map[string]domain.JobResult),
		GeneratedAt: time.Now(),
	}

	provider, err := s.store.GetCurrentProvider(ctx)
	if err != nil {
		return nil, fmt.Errorf("get current provider: %w", err)
	}
	status.Provider = provider

	if provider != nil {
		artwork, err := s.store.GetCurrentArtworkForProvider(ctx, provider.ID)
		if err != nil {
			return nil, fmt.Errorf("get current artwork: %w", err)
		}
		status.Artwork = artwork
	}

	if uri, ok := s.listeners.Registered(); ok {
		status.ListenerRegistered = uri
	}

	if s.jobStore == nil {
		return status, nil
	}
	jobs, err := s.jobStore.ListJobs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	status.Jobs = jobs
	for _, job := range jobs {
		if job.Tag == domain.TagPersistentChanged && job.Kind == domain.JobContentChange &&
			status.ListenerRegistered == "" {
			status.ListenerRegistered = job.ContentURI
		}
	}

	for _, tag := range statusTags {
		history, err := s.jobStore.GetHistory(ctx, tag, 1)
		if err != nil {
			return nil, fmt.Errorf("get history for %s: %w", tag, err)
		}
		if len(history) > 0 {
			status.LastResults[tag] = history[0]
		}
	}
	return status, nil
}
