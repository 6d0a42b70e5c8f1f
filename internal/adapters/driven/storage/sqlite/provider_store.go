package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/custodia-labs/artsync/internal/adapters/driven/storage/broadcast"
	"github.com/custodia-labs/artsync/internal/core/domain"
	"github.com/custodia-labs/artsync/internal/core/ports/driven"
)

// providerStore implements driven.ProviderStore.
type providerStore struct {
	store *Store

	// mu orders writes with their notifications.
	mu        sync.Mutex
	providers *broadcast.Broadcaster[*domain.Provider]
	artwork   *broadcast.Broadcaster[*domain.Artwork]
}

var _ driven.ProviderStore = (*providerStore)(nil)

func newProviderStore(s *Store) (*providerStore, error) {
	ctx := context.Background()
	p := &providerStore{store: s}
	provider, err := p.GetCurrentProvider(ctx)
	if err != nil {
		return nil, err
	}
	artwork, err := p.GetCurrentArtwork(ctx)
	if err != nil {
		return nil, err
	}
	p.providers = broadcast.New(provider)
	p.artwork = broadcast.New(artwork)
	return p, nil
}

const providerColumns = `id, content_uri, supports_next_artwork, selected_at`

// GetCurrentProvider returns the current provider.
// Returns nil and no error if there is none.
func (p *providerStore) GetCurrentProvider(ctx context.Context) (*domain.Provider, error) {
	row := p.store.db.QueryRowContext(ctx,
		`SELECT `+providerColumns+` FROM providers WHERE is_current = 1 LIMIT 1`)
	provider, err := scanProvider(row)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	return provider, err
}

// SetCurrentProvider replaces the current provider record.
func (p *providerStore) SetCurrentProvider(ctx context.Context, provider domain.Provider) error {
	if provider.ID == "" {
		return domain.ErrInvalidInput
	}
	if provider.SelectedAt.IsZero() {
		provider.SelectedAt = time.Now()
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	tx, err := p.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx, `UPDATE providers SET is_current = 0 WHERE is_current = 1`); err != nil {
		return fmt.Errorf("clearing current provider: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO providers (id, content_uri, supports_next_artwork, selected_at, is_current)
		VALUES (?, ?, ?, ?, 1)
		ON CONFLICT(id) DO UPDATE SET
			content_uri = excluded.content_uri,
			supports_next_artwork = excluded.supports_next_artwork,
			selected_at = excluded.selected_at,
			is_current = 1
	`, provider.ID, provider.ContentURI, boolToInt(provider.SupportsNextArtwork),
		formatNullableTime(provider.SelectedAt))
	if err != nil {
		return fmt.Errorf("saving provider: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing provider: %w", err)
	}

	return p.publishLocked(ctx)
}

// UpdateProvider updates a stored provider's attributes.
func (p *providerStore) UpdateProvider(ctx context.Context, provider domain.Provider) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	res, err := p.store.db.ExecContext(ctx, `
		UPDATE providers SET content_uri = ?, supports_next_artwork = ?
		WHERE id = ?
	`, provider.ContentURI, boolToInt(provider.SupportsNextArtwork), provider.ID)
	if err != nil {
		return fmt.Errorf("updating provider: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating provider: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}

	return p.publishLocked(ctx)
}

// GetCurrentArtworkForProvider returns the artwork currently shown for a
// provider. Returns nil and no error if there is none.
func (p *providerStore) GetCurrentArtworkForProvider(ctx context.Context, providerID string) (*domain.Artwork, error) {
	row := p.store.db.QueryRowContext(ctx, `
		SELECT a.provider_id, a.id, a.image_uri, a.title, a.byline, a.attribution, a.date_added
		FROM current_artwork c
		JOIN artwork a ON a.provider_id = c.provider_id AND a.id = c.artwork_id
		WHERE c.provider_id = ?
	`, providerID)
	artwork, err := scanArtwork(row)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	return artwork, err
}

// GetCurrentArtwork returns the current artwork of the current provider.
func (p *providerStore) GetCurrentArtwork(ctx context.Context) (*domain.Artwork, error) {
	row := p.store.db.QueryRowContext(ctx, `
		SELECT a.provider_id, a.id, a.image_uri, a.title, a.byline, a.attribution, a.date_added
		FROM providers p
		JOIN current_artwork c ON c.provider_id = p.id
		JOIN artwork a ON a.provider_id = c.provider_id AND a.id = c.artwork_id
		WHERE p.is_current = 1
	`)
	artwork, err := scanArtwork(row)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	return artwork, err
}

// InsertArtwork stores artwork and makes it current for its provider.
func (p *providerStore) InsertArtwork(ctx context.Context, artwork domain.Artwork) error {
	if artwork.ProviderID == "" || artwork.ID == "" {
		return domain.ErrInvalidInput
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	tx, err := p.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	_, err = tx.ExecContext(ctx, `
		INSERT INTO artwork (provider_id, id, image_uri, title, byline, attribution, date_added)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(provider_id, id) DO UPDATE SET
			image_uri = excluded.image_uri,
			title = excluded.title,
			byline = excluded.byline,
			attribution = excluded.attribution,
			date_added = excluded.date_added
	`, artwork.ProviderID, artwork.ID, nullString(artwork.ImageURI), nullString(artwork.Title),
		nullString(artwork.Byline), nullString(artwork.Attribution), formatNullableTime(artwork.DateAdded))
	if err != nil {
		return fmt.Errorf("saving artwork: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO current_artwork (provider_id, artwork_id, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(provider_id) DO UPDATE SET
			artwork_id = excluded.artwork_id,
			updated_at = excluded.updated_at
	`, artwork.ProviderID, artwork.ID, formatNullableTime(time.Now()))
	if err != nil {
		return fmt.Errorf("setting current artwork: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing artwork: %w", err)
	}

	return p.publishLocked(ctx)
}

// DeleteArtwork clears a provider's current artwork.
func (p *providerStore) DeleteArtwork(ctx context.Context, providerID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	res, err := p.store.db.ExecContext(ctx, `DELETE FROM current_artwork WHERE provider_id = ?`, providerID)
	if err != nil {
		return fmt.Errorf("deleting current artwork: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return p.publishLocked(ctx)
}

// SubscribeCurrentProvider streams the current provider.
func (p *providerStore) SubscribeCurrentProvider(fn func(*domain.Provider)) func() {
	return p.providers.Subscribe(func(provider *domain.Provider) {
		if provider != nil {
			c := *provider
			provider = &c
		}
		fn(provider)
	})
}

// SubscribeCurrentArtwork streams the current artwork.
func (p *providerStore) SubscribeCurrentArtwork(fn func(*domain.Artwork)) func() {
	return p.artwork.Subscribe(fn)
}

// refresh publishes any change made outside this store.
func (p *providerStore) refresh(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.publishLocked(ctx)
}

// publishLocked re-reads the current values and notifies subscribers of
// whichever changed.
func (p *providerStore) publishLocked(ctx context.Context) error {
	provider, err := p.GetCurrentProvider(ctx)
	if err != nil {
		return err
	}
	artwork, err := p.GetCurrentArtwork(ctx)
	if err != nil {
		return err
	}
	if !sameProvider(p.providers.Current(), provider) {
		p.providers.Publish(provider)
	}
	if !sameArtwork(p.artwork.Current(), artwork) {
		p.artwork.Publish(artwork)
	}
	return nil
}

func sameProvider(a, b *domain.Provider) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.ID == b.ID &&
		a.ContentURI == b.ContentURI &&
		a.SupportsNextArtwork == b.SupportsNextArtwork &&
		a.SelectedAt.Equal(b.SelectedAt)
}

func sameArtwork(a, b *domain.Artwork) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.ProviderID == b.ProviderID && a.ID == b.ID
}

// scanProvider scans a single provider row.
func scanProvider(row *sql.Row) (*domain.Provider, error) {
	var provider domain.Provider
	var supportsNext int
	var selectedAt sql.NullString

	if err := row.Scan(&provider.ID, &provider.ContentURI, &supportsNext, &selectedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning provider: %w", err)
	}
	provider.SupportsNextArtwork = supportsNext == 1
	provider.SelectedAt = parseNullableTime(selectedAt)
	return &provider, nil
}

// scanArtwork scans a single artwork row.
func scanArtwork(row *sql.Row) (*domain.Artwork, error) {
	var artwork domain.Artwork
	var imageURI, title, byline, attribution, dateAdded sql.NullString

	if err := row.Scan(&artwork.ProviderID, &artwork.ID, &imageURI, &title,
		&byline, &attribution, &dateAdded); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning artwork: %w", err)
	}
	artwork.ImageURI = imageURI.String
	artwork.Title = title.String
	artwork.Byline = byline.String
	artwork.Attribution = attribution.String
	artwork.DateAdded = parseNullableTime(dateAdded)
	return &artwork, nil
}
