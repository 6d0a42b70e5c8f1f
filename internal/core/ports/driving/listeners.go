package driving

import "context"

// PersistentListeners manages the low-power change listener that keeps
// noticing provider changes while no in-process observer exists.
// The listener is registered iff the requester set is non-empty and no
// observer is active.
type PersistentListeners interface {
	// AddRequester adds a named requester.
	AddRequester(ctx context.Context, name string) error

	// RemoveRequester removes a named requester, unregistering the listener
	// when none remain.
	RemoveRequester(ctx context.Context, name string) error

	// Requesters returns the current requester names, sorted.
	Requesters() []string

	// ObserverStateChanged is called on 0-to-1 (active) and 1-to-0
	// (inactive) observer transitions.
	ObserverStateChanged(ctx context.Context, active bool) error

	// Rearm re-registers the listener after it fired.
	Rearm(ctx context.Context, contentURI string) error

	// Registered returns the locator the listener is registered on.
	Registered() (contentURI string, ok bool)
}
