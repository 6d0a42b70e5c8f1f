package driven

import (
	"context"

	"github.com/custodia-labs/artsync/internal/core/domain"
)

// ProviderStore persists the current provider and its artwork.
// Subscriptions emit the current value immediately and again after every
// change. Callbacks run on the mutating goroutine and must not block.
type ProviderStore interface {
	// GetCurrentProvider returns the current provider.
	// Returns nil and no error if there is none.
	GetCurrentProvider(ctx context.Context) (*domain.Provider, error)

	// SetCurrentProvider replaces the current provider record.
	SetCurrentProvider(ctx context.Context, provider domain.Provider) error

	// UpdateProvider updates a stored provider's attributes.
	UpdateProvider(ctx context.Context, provider domain.Provider) error

	// GetCurrentArtworkForProvider returns the artwork currently shown for
	// a provider. Returns nil and no error if there is none.
	GetCurrentArtworkForProvider(ctx context.Context, providerID string) (*domain.Artwork, error)

	// GetCurrentArtwork returns the current artwork of the current provider.
	GetCurrentArtwork(ctx context.Context) (*domain.Artwork, error)

	// InsertArtwork stores artwork and makes it current for its provider.
	InsertArtwork(ctx context.Context, artwork domain.Artwork) error

	// SubscribeCurrentProvider streams the current provider.
	SubscribeCurrentProvider(fn func(*domain.Provider)) (unsubscribe func())

	// SubscribeCurrentArtwork streams the current artwork.
	SubscribeCurrentArtwork(fn func(*domain.Artwork)) (unsubscribe func())
}
