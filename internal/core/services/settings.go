package services

import (
	"fmt"
	"sort"
	"time"

	"github.com/custodia-labs/artsync/internal/core/domain"
	"github.com/custodia-labs/artsync/internal/core/ports/driven"
	"github.com/custodia-labs/artsync/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// SettingsService manages persisted sync settings.
// Each key is written independently; no cross-key transaction is needed.
type SettingsService struct {
	configStore driven.ConfigStore
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore) *SettingsService {
	return &SettingsService{configStore: configStore}
}

// Get retrieves current sync settings.
func (s *SettingsService) Get() domain.SyncSettings {
	return domain.SyncSettings{
		LoadFrequencySeconds: s.LoadFrequencySeconds(),
		LoadOnWifi:           s.LoadOnWifi(),
		PersistentListeners:  s.PersistentListeners(),
	}
}

// LoadFrequencySeconds returns the periodic load interval in seconds.
func (s *SettingsService) LoadFrequencySeconds() int64 {
	if _, ok := s.configStore.Get(domain.KeyLoadFrequencySeconds); !ok {
		return domain.DefaultLoadFrequencySeconds
	}
	return int64(s.configStore.GetInt(domain.KeyLoadFrequencySeconds))
}

// SetLoadFrequencySeconds persists the periodic load interval.
func (s *SettingsService) SetLoadFrequencySeconds(seconds int64) error {
	if seconds < 0 || seconds > domain.MaxLoadFrequencySeconds {
		return fmt.Errorf("load frequency %d seconds out of range: %w", seconds, domain.ErrInvalidInput)
	}
	return s.configStore.Set(domain.KeyLoadFrequencySeconds, seconds)
}

// LoadOnWifi returns whether periodic loads are wifi-only.
func (s *SettingsService) LoadOnWifi() bool {
	if _, ok := s.configStore.Get(domain.KeyLoadOnWifi); !ok {
		return domain.DefaultLoadOnWifi
	}
	return s.configStore.GetBool(domain.KeyLoadOnWifi)
}

// SetLoadOnWifi persists the wifi-only preference.
func (s *SettingsService) SetLoadOnWifi(wifiOnly bool) error {
	return s.configStore.Set(domain.KeyLoadOnWifi, wifiOnly)
}

// PersistentListeners returns the persisted requester names, sorted and
// without duplicates.
func (s *SettingsService) PersistentListeners() []string {
	return normaliseNames(s.configStore.GetStringSlice(domain.KeyPersistentListeners))
}

// SetPersistentListeners persists the requester names.
func (s *SettingsService) SetPersistentListeners(names []string) error {
	return s.configStore.Set(domain.KeyPersistentListeners, normaliseNames(names))
}

// DebounceDelay returns the no-artwork debounce delay.
func (s *SettingsService) DebounceDelay() time.Duration {
	ms := s.configStore.GetInt(domain.KeyDebounceMillis)
	if ms <= 0 {
		return domain.DefaultDebounce
	}
	return time.Duration(ms) * time.Millisecond
}

// MaxBackoff returns the scheduler's retry backoff cap.
func (s *SettingsService) MaxBackoff() time.Duration {
	secs := s.configStore.GetInt(domain.KeyMaxBackoffSeconds)
	if secs <= 0 {
		return domain.DefaultSchedulerConfig().MaxBackoff
	}
	return time.Duration(secs) * time.Second
}

// normaliseNames returns a sorted copy of names with blanks and duplicates removed.
func normaliseNames(names []string) []string {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		if n != "" {
			set[n] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for n := range set {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
