package domain

import (
	"math"
	"time"
)

// Configuration keys for sync settings.
const (
	KeyLoadFrequencySeconds = "sync.load_frequency_seconds"
	KeyLoadOnWifi           = "sync.load_on_wifi"
	KeyPersistentListeners  = "sync.persistent_listeners"
	KeyDebounceMillis       = "sync.debounce_ms"
	KeyMaxBackoffSeconds    = "scheduler.max_backoff_seconds"
	KeyNetworkMetered       = "network.metered"
)

// Default values for sync settings.
const (
	DefaultLoadFrequencySeconds int64 = 3600
	DefaultLoadOnWifi                 = false
	DefaultDebounce                   = 1000 * time.Millisecond
)

// MaxLoadFrequencySeconds is the largest interval a time.Duration can hold.
const MaxLoadFrequencySeconds int64 = math.MaxInt64 / int64(time.Second)

// SyncSettings is a snapshot of the persisted sync configuration.
type SyncSettings struct {
	// LoadFrequencySeconds is the periodic load interval; 0 disables it.
	LoadFrequencySeconds int64

	// LoadOnWifi restricts periodic loads to unmetered networks.
	LoadOnWifi bool

	// PersistentListeners is the set of named persistent listener requesters.
	PersistentListeners []string
}

// LoadFrequency returns the load frequency as a duration.
func (s SyncSettings) LoadFrequency() time.Duration {
	return SecondsDuration(s.LoadFrequencySeconds)
}

// SecondsDuration converts seconds to a duration, saturating at the largest
// whole-second duration instead of overflowing.
func SecondsDuration(seconds int64) time.Duration {
	if seconds > MaxLoadFrequencySeconds {
		seconds = MaxLoadFrequencySeconds
	}
	return time.Duration(seconds) * time.Second
}
