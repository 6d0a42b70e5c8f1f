package driven

import (
	"context"
	"io"

	"github.com/custodia-labs/artsync/internal/core/domain"
)

// ProviderClient is an open connection to one provider.
//
// Any method may fail with an error wrapping domain.ErrProviderUnavailable
// when the provider is unreachable or crashes mid-call. Other errors are
// application-level and do not indicate a transport fault.
type ProviderClient interface {
	// Query returns a cursor over the provider's artwork, newest first.
	Query(ctx context.Context) (ArtworkCursor, error)

	// QueryArtwork returns a single artwork by provider-scoped ID.
	// Returns nil and no error if the provider no longer has it.
	QueryArtwork(ctx context.Context, artworkID string) (*domain.Artwork, error)

	// OpenStream opens the image bytes of an artwork.
	OpenStream(ctx context.Context, artworkID string) (io.ReadCloser, error)

	// GetLoadInfo returns the provider's load metadata.
	// Returns nil and no error if the provider has none yet.
	GetLoadInfo(ctx context.Context) (*domain.LoadInfo, error)

	// RequestLoad asks the provider to produce new content now.
	RequestLoad(ctx context.Context) error

	// Close releases the connection.
	Close() error
}

// ArtworkCursor iterates over provider artwork rows.
// Rows are fetched lazily so callers can stop early.
type ArtworkCursor interface {
	// Next advances to the next row. Returns false when exhausted or on error.
	Next(ctx context.Context) bool

	// Artwork returns the current row.
	Artwork() domain.Artwork

	// Err returns the error that stopped iteration, if any.
	Err() error

	// Close releases the cursor.
	Close() error
}

// ProviderConnector opens clients for content locators.
type ProviderConnector interface {
	// Connect opens a client for the given content URI.
	// Returns an error wrapping domain.ErrProviderUnavailable when the
	// provider cannot be reached and domain.ErrUnsupportedLocator for
	// unknown schemes.
	Connect(ctx context.Context, contentURI string) (ProviderClient, error)
}

// ChangeNotifier registers change hooks on content locators.
type ChangeNotifier interface {
	// Watch calls onChange whenever the data behind contentURI changes.
	// onChange must not block. The returned stop function unregisters the
	// hook and is safe to call more than once.
	Watch(ctx context.Context, contentURI string, onChange func()) (stop func(), err error)
}
