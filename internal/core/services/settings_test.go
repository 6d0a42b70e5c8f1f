package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/artsync/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/artsync/internal/core/domain"
)

func TestSettingsService_Defaults(t *testing.T) {
	s := newTestSettings()

	got := s.Get()
	assert.Equal(t, domain.DefaultLoadFrequencySeconds, got.LoadFrequencySeconds)
	assert.Equal(t, domain.DefaultLoadOnWifi, got.LoadOnWifi)
	assert.Empty(t, got.PersistentListeners)
	assert.Equal(t, domain.DefaultDebounce, s.DebounceDelay())
	assert.Equal(t, 5*time.Minute, s.MaxBackoff())
}

func TestSettingsService_LoadFrequency(t *testing.T) {
	s := newTestSettings()

	require.NoError(t, s.SetLoadFrequencySeconds(900))
	assert.Equal(t, int64(900), s.LoadFrequencySeconds())

	require.NoError(t, s.SetLoadFrequencySeconds(0))
	assert.Equal(t, int64(0), s.LoadFrequencySeconds(), "zero is stored, not replaced by the default")

	assert.ErrorIs(t, s.SetLoadFrequencySeconds(-1), domain.ErrInvalidInput)
	assert.Equal(t, int64(0), s.LoadFrequencySeconds())

	assert.ErrorIs(t, s.SetLoadFrequencySeconds(domain.MaxLoadFrequencySeconds+1), domain.ErrInvalidInput)
	assert.Equal(t, int64(0), s.LoadFrequencySeconds(), "rejected values are not persisted")

	require.NoError(t, s.SetLoadFrequencySeconds(domain.MaxLoadFrequencySeconds))
	assert.Positive(t, s.Get().LoadFrequency())
}

func TestSettingsService_LoadOnWifi(t *testing.T) {
	s := newTestSettings()

	require.NoError(t, s.SetLoadOnWifi(true))
	assert.True(t, s.LoadOnWifi())
	assert.True(t, s.Get().LoadOnWifi)
}

func TestSettingsService_PersistentListenersNormalised(t *testing.T) {
	s := newTestSettings()

	require.NoError(t, s.SetPersistentListeners([]string{"widget", "", "lockscreen", "widget"}))

	assert.Equal(t, []string{"lockscreen", "widget"}, s.PersistentListeners())
}

func TestSettingsService_OverridesFromConfig(t *testing.T) {
	config := memory.NewConfigStore()
	require.NoError(t, config.Set(domain.KeyDebounceMillis, 250))
	require.NoError(t, config.Set(domain.KeyMaxBackoffSeconds, int64(60)))
	s := NewSettingsService(config)

	assert.Equal(t, 250*time.Millisecond, s.DebounceDelay())
	assert.Equal(t, time.Minute, s.MaxBackoff())
}
