package domain

import (
	"net/url"
	"time"
)

// Provider is the pluggable source supplying artwork.
type Provider struct {
	// ID is the stable component identifier naming the content source.
	ID string

	// ContentURI is the content locator used to reach the provider,
	// e.g. "file:///srv/art" or "rpc://127.0.0.1:7788".
	ContentURI string

	// SupportsNextArtwork is recomputed on every reconciliation and is true
	// when the provider holds more than one valid artwork.
	SupportsNextArtwork bool

	// SelectedAt is when the provider became the current provider.
	SelectedAt time.Time
}

// Scheme returns the content locator scheme, or "" if it does not parse.
func (p Provider) Scheme() string {
	u, err := url.Parse(p.ContentURI)
	if err != nil {
		return ""
	}
	return u.Scheme
}

// Artwork is a single piece of content belonging to a provider.
type Artwork struct {
	// ID identifies the artwork within its provider.
	ID string

	// ProviderID is the owning provider.
	ProviderID string

	// ImageURI locates the image bytes inside the provider.
	ImageURI string

	// Title, Byline and Attribution are optional display metadata.
	Title       string
	Byline      string
	Attribution string

	// DateAdded is when the provider added the artwork.
	DateAdded time.Time
}

// LoadInfo is the answer to a provider's "get load info" call.
type LoadInfo struct {
	// LastLoadedTime is when the provider last loaded new content.
	// The zero value means the provider has never loaded.
	LastLoadedTime time.Time
}
