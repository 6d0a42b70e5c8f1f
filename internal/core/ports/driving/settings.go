package driving

import (
	"time"

	"github.com/custodia-labs/artsync/internal/core/domain"
)

// SettingsService reads and writes persisted sync configuration.
type SettingsService interface {
	// Get returns a snapshot of the sync settings with defaults applied.
	Get() domain.SyncSettings

	// LoadFrequencySeconds returns the periodic load interval in seconds.
	LoadFrequencySeconds() int64

	// SetLoadFrequencySeconds persists the periodic load interval.
	SetLoadFrequencySeconds(seconds int64) error

	// LoadOnWifi returns whether periodic loads are wifi-only.
	LoadOnWifi() bool

	// SetLoadOnWifi persists the wifi-only preference.
	SetLoadOnWifi(wifiOnly bool) error

	// PersistentListeners returns the persisted requester names.
	PersistentListeners() []string

	// SetPersistentListeners persists the requester names.
	SetPersistentListeners(names []string) error

	// DebounceDelay returns the no-artwork debounce delay.
	DebounceDelay() time.Duration

	// MaxBackoff returns the scheduler's retry backoff cap.
	MaxBackoff() time.Duration
}
