package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/artsync/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/artsync/internal/core/domain"
)

func TestStatusService_NoProvider(t *testing.T) {
	settings := newTestSettings()
	store := memory.NewProviderStore()
	listeners := NewPersistentListeners(settings, store, &mockJobScheduler{})
	svc := NewStatusService(store, nil, settings, listeners)

	status, err := svc.Status(context.Background())
	require.NoError(t, err)

	assert.Nil(t, status.Provider)
	assert.Nil(t, status.Artwork)
	assert.Equal(t, domain.DefaultLoadFrequencySeconds, status.Settings.LoadFrequencySeconds)
	assert.Empty(t, status.ListenerRegistered)
	assert.False(t, status.GeneratedAt.IsZero())
}

func TestStatusService_Snapshot(t *testing.T) {
	ctx := context.Background()
	settings := newTestSettings()
	store := memory.NewProviderStore()
	jobStore := memory.NewJobStore()
	listeners := NewPersistentListeners(settings, store, &mockJobScheduler{})

	require.NoError(t, store.SetCurrentProvider(ctx, domain.Provider{ID: "a", ContentURI: "file:///a"}))
	require.NoError(t, store.InsertArtwork(ctx, domain.Artwork{ID: "1.jpg", ProviderID: "a"}))
	require.NoError(t, jobStore.SaveJob(ctx, &domain.Job{
		ID:         "j1",
		Tag:        domain.TagPersistentChanged,
		Kind:       domain.JobContentChange,
		ContentURI: "file:///a",
	}))
	started := time.Now()
	require.NoError(t, jobStore.RecordResult(ctx, &domain.JobResult{JobID: "old", Tag: domain.TagLoadNext, StartedAt: started.Add(-time.Minute), Result: domain.ResultRetry}))
	require.NoError(t, jobStore.RecordResult(ctx, &domain.JobResult{JobID: "new", Tag: domain.TagLoadNext, StartedAt: started, Result: domain.ResultSuccess}))

	svc := NewStatusService(store, jobStore, settings, listeners)
	status, err := svc.Status(ctx)
	require.NoError(t, err)

	require.NotNil(t, status.Provider)
	assert.Equal(t, "a", status.Provider.ID)
	require.NotNil(t, status.Artwork)
	assert.Equal(t, "1.jpg", status.Artwork.ID)
	assert.Len(t, status.Jobs, 1)
	assert.Equal(t, "file:///a", status.ListenerRegistered)
	require.Contains(t, status.LastResults, domain.TagLoadNext)
	assert.Equal(t, "new", status.LastResults[domain.TagLoadNext].JobID)
	assert.NotContains(t, status.LastResults, domain.TagLoadPeriodic)
}
