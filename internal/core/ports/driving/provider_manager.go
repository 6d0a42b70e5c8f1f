package driving

import (
	"context"

	"github.com/custodia-labs/artsync/internal/core/domain"
)

// ObserverHandle identifies a registered observer.
type ObserverHandle string

// ProviderManager tracks the current provider for the whole process.
// It is reference-counted by active observers: the first Observe starts
// listening for provider changes and the last Release stops it.
type ProviderManager interface {
	// Observe registers interest. fn receives the current provider now (if
	// known) and after every change. fn runs on the manager's coordination
	// goroutine and must not call back into the manager synchronously.
	Observe(fn func(*domain.Provider)) ObserverHandle

	// Release unregisters an observer. Unknown handles are ignored.
	Release(handle ObserverHandle)

	// CurrentProvider returns the latest known provider, or nil.
	CurrentProvider() *domain.Provider

	// HasActiveObservers reports whether anyone is observing.
	HasActiveObservers() bool

	// SetLoadFrequencySeconds persists the load interval and reschedules
	// periodic loading, cancelling it when seconds is 0.
	SetLoadFrequencySeconds(ctx context.Context, seconds int64) error

	// SetLoadOnWifi persists the wifi-only preference and reschedules
	// periodic loading when it is enabled.
	SetLoadOnWifi(ctx context.Context, wifiOnly bool) error

	// RequestNextArtwork always issues an immediate load request.
	RequestNextArtwork(ctx context.Context) error
}
