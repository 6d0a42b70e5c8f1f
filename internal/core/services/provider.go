package services

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/custodia-labs/artsync/internal/core/domain"
	"github.com/custodia-labs/artsync/internal/core/ports/driven"
	"github.com/custodia-labs/artsync/internal/core/ports/driving"
)

// Ensure ProviderService implements the interface.
var _ driving.ProviderService = (*ProviderService)(nil)

// ProviderService manages provider selection.
type ProviderService struct {
	store     driven.ProviderStore
	connector driven.ProviderConnector
	now       func() time.Time
}

// NewProviderService creates a provider service. The connector is used to
// check the locator is reachable before it is selected.
func NewProviderService(store driven.ProviderStore, connector driven.ProviderConnector) *ProviderService {
	return &ProviderService{store: store, connector: connector, now: time.Now}
}

// Select makes the provider at contentURI current.
func (s *ProviderService) Select(ctx context.Context, id, contentURI string) (*domain.Provider, error) {
	if contentURI == "" {
		return nil, domain.ErrInvalidInput
	}
	u, err := url.Parse(contentURI)
	if err != nil || u.Scheme == "" {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedLocator, contentURI)
	}

	client, err := s.connector.Connect(ctx, contentURI)
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", contentURI, err)
	}
	_ = client.Close()

	if id == "" {
		id = deriveProviderID(u)
	}
	provider := domain.Provider{
		ID:         id,
		ContentURI: contentURI,
		SelectedAt: s.now(),
	}
	if err := s.store.SetCurrentProvider(ctx, provider); err != nil {
		return nil, fmt.Errorf("set current provider: %w", err)
	}
	return &provider, nil
}

// Current returns the current provider, nil if none.
func (s *ProviderService) Current(ctx context.Context) (*domain.Provider, error) {
	return s.store.GetCurrentProvider(ctx)
}

// deriveProviderID names a provider after its locator, for example
// "file:wallpapers" or "rpc:localhost:7070".
func deriveProviderID(u *url.URL) string {
	scheme := strings.TrimSuffix(u.Scheme, "+unix")
	name := u.Host
	if p := strings.TrimSuffix(u.Path, "/"); p != "" && name == "" {
		name = path.Base(p)
	}
	return scheme + ":" + name
}
