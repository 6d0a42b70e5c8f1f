package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/artsync/internal/adapters/driven/storage/broadcast"
	"github.com/custodia-labs/artsync/internal/core/domain"
	"github.com/custodia-labs/artsync/internal/core/ports/driven"
)

// Ensure ProviderStore implements the interface.
var _ driven.ProviderStore = (*ProviderStore)(nil)

// ProviderStore is an in-memory implementation of driven.ProviderStore.
type ProviderStore struct {
	mu       sync.Mutex
	provider *domain.Provider
	artwork  map[string]domain.Artwork

	providers *broadcast.Broadcaster[*domain.Provider]
	current   *broadcast.Broadcaster[*domain.Artwork]
}

// NewProviderStore creates an empty provider store.
func NewProviderStore() *ProviderStore {
	return &ProviderStore{
		artwork:   make(map[string]domain.Artwork),
		providers: broadcast.New[*domain.Provider](nil),
		current:   broadcast.New[*domain.Artwork](nil),
	}
}

// GetCurrentProvider returns the current provider, nil if none.
func (s *ProviderStore) GetCurrentProvider(_ context.Context) (*domain.Provider, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneProvider(s.provider), nil
}

// SetCurrentProvider replaces the current provider.
func (s *ProviderStore) SetCurrentProvider(_ context.Context, provider domain.Provider) error {
	if provider.ID == "" {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	s.provider = &provider
	artwork := s.currentArtworkLocked()
	s.mu.Unlock()

	s.providers.Publish(cloneProvider(&provider))
	s.current.Publish(artwork)
	return nil
}

// UpdateProvider updates the current provider's attributes.
func (s *ProviderStore) UpdateProvider(_ context.Context, provider domain.Provider) error {
	s.mu.Lock()
	if s.provider == nil || s.provider.ID != provider.ID {
		s.mu.Unlock()
		return domain.ErrNotFound
	}
	if provider.SelectedAt.IsZero() {
		provider.SelectedAt = s.provider.SelectedAt
	}
	s.provider = &provider
	s.mu.Unlock()

	s.providers.Publish(cloneProvider(&provider))
	return nil
}

// GetCurrentArtworkForProvider returns the provider's current artwork.
func (s *ProviderStore) GetCurrentArtworkForProvider(_ context.Context, providerID string) (*domain.Artwork, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.artwork[providerID]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

// GetCurrentArtwork returns the current provider's current artwork.
func (s *ProviderStore) GetCurrentArtwork(_ context.Context) (*domain.Artwork, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentArtworkLocked(), nil
}

// InsertArtwork makes artwork current for its provider.
func (s *ProviderStore) InsertArtwork(_ context.Context, artwork domain.Artwork) error {
	if artwork.ProviderID == "" || artwork.ID == "" {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	s.artwork[artwork.ProviderID] = artwork
	isCurrent := s.provider != nil && s.provider.ID == artwork.ProviderID
	s.mu.Unlock()

	if isCurrent {
		a := artwork
		s.current.Publish(&a)
	}
	return nil
}

// DeleteArtwork removes a provider's current artwork.
func (s *ProviderStore) DeleteArtwork(_ context.Context, providerID string) error {
	s.mu.Lock()
	if _, ok := s.artwork[providerID]; !ok {
		s.mu.Unlock()
		return domain.ErrNotFound
	}
	delete(s.artwork, providerID)
	isCurrent := s.provider != nil && s.provider.ID == providerID
	s.mu.Unlock()

	if isCurrent {
		s.current.Publish(nil)
	}
	return nil
}

// SubscribeCurrentProvider streams the current provider.
func (s *ProviderStore) SubscribeCurrentProvider(fn func(*domain.Provider)) func() {
	return s.providers.Subscribe(func(p *domain.Provider) { fn(cloneProvider(p)) })
}

// SubscribeCurrentArtwork streams the current artwork.
func (s *ProviderStore) SubscribeCurrentArtwork(fn func(*domain.Artwork)) func() {
	return s.current.Subscribe(fn)
}

func (s *ProviderStore) currentArtworkLocked() *domain.Artwork {
	if s.provider == nil {
		return nil
	}
	a, ok := s.artwork[s.provider.ID]
	if !ok {
		return nil
	}
	return &a
}

func cloneProvider(p *domain.Provider) *domain.Provider {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}
