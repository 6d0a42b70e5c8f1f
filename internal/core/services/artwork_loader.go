package services

import (
	"context"
	"fmt"
	"io"

	"github.com/custodia-labs/artsync/internal/core/domain"
	"github.com/custodia-labs/artsync/internal/core/ports/driven"
	"github.com/custodia-labs/artsync/internal/core/ports/driving"
	"github.com/custodia-labs/artsync/internal/logger"
)

// Ensure ArtworkLoader implements the interface.
var _ driving.ArtworkLoader = (*ArtworkLoader)(nil)

// ArtworkLoader advances the current provider to its next artwork.
type ArtworkLoader struct {
	store     driven.ProviderStore
	connector driven.ProviderConnector
	worker    *SyncWorker
}

// NewArtworkLoader creates an artwork loader. worker may be nil.
func NewArtworkLoader(store driven.ProviderStore, connector driven.ProviderConnector, worker *SyncWorker) *ArtworkLoader {
	return &ArtworkLoader{store: store, connector: connector, worker: worker}
}

// LoadNext picks the artwork following the current one in provider order,
// wrapping to the newest, and makes it current.
func (l *ArtworkLoader) LoadNext(ctx context.Context) domain.ReconcileResult {
	if l.worker == nil {
		return l.loadNext(ctx)
	}
	return l.worker.Do(ctx, l.loadNext)
}

// HandleJob adapts LoadNext to a scheduler job.
func (l *ArtworkLoader) HandleJob(ctx context.Context, job domain.Job) domain.ReconcileResult {
	logger.Debug("Loading artwork (%s)", job.Tag)
	return l.LoadNext(ctx)
}

func (l *ArtworkLoader) loadNext(ctx context.Context) domain.ReconcileResult {
	provider, err := l.store.GetCurrentProvider(ctx)
	if err != nil {
		logger.Warn("load artwork: reading current provider: %v", err)
		return domain.ResultRetry
	}
	if provider == nil {
		logger.Debug("load artwork: no current provider")
		return domain.ResultFail
	}

	client, err := l.connector.Connect(ctx, provider.ContentURI)
	if err != nil {
		logger.Info("Provider %s unavailable: %v", provider.ID, err)
		return domain.ResultRetry
	}
	defer client.Close()

	current, err := l.store.GetCurrentArtworkForProvider(ctx, provider.ID)
	if err != nil {
		logger.Warn("load artwork: reading current artwork: %v", err)
		return domain.ResultRetry
	}

	next, err := l.pickNext(ctx, client, current)
	if err != nil {
		logger.Warn("load artwork from %s: %v", provider.ID, err)
		return domain.ResultRetry
	}
	if next == nil {
		logger.Debug("Provider %s has no artwork yet", provider.ID)
		return domain.ResultRetry
	}
	if current != nil && next.ID == current.ID {
		logger.Debug("Provider %s has a single artwork; nothing to advance", provider.ID)
		return domain.ResultSuccess
	}

	if err := preload(ctx, client, next.ID); err != nil {
		logger.Warn("Unable to preload artwork %s: %v", next.ID, err)
		return domain.ResultRetry
	}

	next.ProviderID = provider.ID
	if err := l.store.InsertArtwork(ctx, *next); err != nil {
		logger.Warn("load artwork: storing %s: %v", next.ID, err)
		return domain.ResultRetry
	}
	logger.Info("Loaded artwork %s from %s", next.ID, provider.ID)
	return domain.ResultSuccess
}

// pickNext walks the cursor and returns the artwork after current, the first
// artwork when current is absent or last, or nil when the provider is empty.
func (l *ArtworkLoader) pickNext(
	ctx context.Context,
	client driven.ProviderClient,
	current *domain.Artwork,
) (*domain.Artwork, error) {
	cursor, err := client.Query(ctx)
	if err != nil {
		return nil, fmt.Errorf("query artwork: %w", err)
	}
	defer cursor.Close()

	var first *domain.Artwork
	seenCurrent := false
	for cursor.Next(ctx) {
		a := cursor.Artwork()
		if first == nil {
			first = &a
		}
		if current == nil {
			break
		}
		if seenCurrent {
			return &a, nil
		}
		if a.ID == current.ID {
			seenCurrent = true
		}
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterate artwork: %w", err)
	}
	return first, nil
}

func preload(ctx context.Context, client driven.ProviderClient, artworkID string) error {
	stream, err := client.OpenStream(ctx, artworkID)
	if err != nil {
		return err
	}
	defer stream.Close()
	_, err = io.Copy(io.Discard, stream)
	return err
}
