package driving

import (
	"context"

	"github.com/custodia-labs/artsync/internal/core/domain"
)

// ProviderService manages provider selection.
type ProviderService interface {
	// Select makes the provider at contentURI current. An empty id is
	// derived from the locator.
	Select(ctx context.Context, id, contentURI string) (*domain.Provider, error)

	// Current returns the current provider, nil if none.
	Current(ctx context.Context) (*domain.Provider, error)
}
