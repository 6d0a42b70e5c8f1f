package domain

import "time"

// ValidArtworkScanLimit is the number of valid artworks after which the
// artwork scan stops. SupportsNextArtwork only needs to know "more than one".
const ValidArtworkScanLimit = 2

// IsOverdue reports whether a load is overdue: scheduling is enabled and at
// least one full interval has passed since the provider last loaded.
func IsOverdue(frequency time.Duration, lastLoaded, now time.Time) bool {
	if frequency <= 0 {
		return false
	}
	return now.Sub(lastLoaded) >= frequency
}

// DecideIntent derives the scheduling intent for one reconciliation.
func DecideIntent(settings SyncSettings, info LoadInfo, currentValid bool, now time.Time) SchedulingIntent {
	frequency := settings.LoadFrequency()
	intent := SchedulingIntent{
		LoadNow:  IsOverdue(frequency, info.LastLoadedTime, now) || !currentValid,
		WifiOnly: settings.LoadOnWifi,
	}
	if frequency > 0 {
		intent.PeriodicInterval = frequency
	}
	return intent
}

// SupportsNextArtwork reports whether a provider with validCount valid
// artworks can show a next artwork.
func SupportsNextArtwork(validCount int) bool {
	return validCount > 1
}

// ShouldRequestLoad reports whether the provider must be asked directly for
// new content: it has nothing else to show and no load is already in flight.
func ShouldRequestLoad(validCount int, intent SchedulingIntent) bool {
	return validCount < ValidArtworkScanLimit && !intent.LoadNow
}
