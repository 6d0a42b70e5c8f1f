package cli

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/artsync/internal/core/domain"
	"github.com/custodia-labs/artsync/internal/core/ports/driving"
)

func TestFormatStatus(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	st := &driving.SyncStatus{
		Provider: &domain.Provider{ID: "gallery", ContentURI: "file:///srv/art", SupportsNextArtwork: true},
		Artwork:  &domain.Artwork{ID: "sunset.jpg"},
		Settings: domain.SyncSettings{
			LoadFrequencySeconds: 3600,
			LoadOnWifi:           true,
			PersistentListeners:  []string{"lockscreen"},
		},
		ListenerRegistered: "file:///srv/art",
		Jobs: []domain.Job{
			{
				Tag:         domain.TagLoadPeriodic,
				Kind:        domain.JobPeriodic,
				NextRun:     now.Add(10 * time.Minute),
				Constraints: domain.JobConstraints{WifiOnly: true},
			},
			{Tag: domain.TagLoadNext, Kind: domain.JobOneOff, NextRun: now.Add(-time.Second), Attempts: 1},
			{Tag: domain.TagPersistentChanged, Kind: domain.JobContentChange, ContentURI: "file:///srv/art"},
		},
		LastResults: map[string]domain.JobResult{
			domain.TagProviderSelected: {Result: domain.ResultSuccess, EndedAt: now.Add(-2 * time.Minute)},
		},
	}

	out := strings.Join(formatStatus(st, now), "\n")

	assert.Contains(t, out, "Provider:         gallery (file:///srv/art)")
	assert.Contains(t, out, "Supports next:    yes")
	assert.Contains(t, out, "Current artwork:  sunset.jpg")
	assert.Contains(t, out, "Load frequency:   1h0m0s")
	assert.Contains(t, out, "Load on wifi:     yes")
	assert.Contains(t, out, "registered on file:///srv/art (requesters: lockscreen)")
	assert.Contains(t, out, "in 10m0s (wifi only)")
	assert.Contains(t, out, "due")
	assert.Contains(t, out, "on change of file:///srv/art")
	assert.Contains(t, out, "success 2m0s ago")

	// Jobs are listed by tag.
	assert.Less(t, strings.Index(out, domain.TagLoadNext), strings.Index(out, domain.TagLoadPeriodic))
}

func TestFormatStatus_Empty(t *testing.T) {
	out := strings.Join(formatStatus(&driving.SyncStatus{}, time.Now()), "\n")

	assert.Contains(t, out, "(none selected)")
	assert.Contains(t, out, "Current artwork:  (none)")
	assert.Contains(t, out, "Load frequency:   disabled")
	assert.Contains(t, out, "unregistered")
	assert.NotContains(t, out, "Last results")
}

func TestStatusCmd(t *testing.T) {
	status := &MockStatusService{status: &driving.SyncStatus{
		Provider:    &domain.Provider{ID: "gallery", ContentURI: "file:///srv/art"},
		GeneratedAt: time.Now(),
	}}

	out, err := executeCommand(t, &Services{Status: status}, "status")

	require.NoError(t, err)
	assert.Contains(t, out, "gallery (file:///srv/art)")
}

func TestStatusCmd_Error(t *testing.T) {
	status := &MockStatusService{err: errors.New("database is locked")}

	_, err := executeCommand(t, &Services{Status: status}, "status")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "database is locked")
}

func TestTerminalWidth_NotATerminal(t *testing.T) {
	assert.Zero(t, terminalWidth(new(bytes.Buffer)))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abcdef", truncate("abcdef", 0))
	assert.Equal(t, "abcdef", truncate("abcdef", 6))
	assert.Equal(t, "ab...", truncate("abcdef", 5))
}
