package driven

// NetworkMonitor reports the device's connectivity for job constraints.
type NetworkMonitor interface {
	// OnUnmetered reports whether the active connection is unmetered
	// (wifi or wired).
	OnUnmetered() bool
}
