package rpc

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/creachadair/jrpc2"

	"github.com/custodia-labs/artsync/internal/core/domain"
)

// Content locator schemes served by this package.
const (
	SchemeTCP  = "rpc"
	SchemeUnix = "rpc+unix"
)

// Method names of the provider protocol.
const (
	MethodQuery       = "artwork.query"
	MethodGet         = "artwork.get"
	MethodOpen        = "artwork.open"
	MethodLoadInfo    = "provider.getLoadInfo"
	MethodRequestLoad = "provider.requestLoad"
	MethodSubscribe   = "provider.subscribe"

	// NotifyChanged is pushed to subscribed connections when provider data changes.
	NotifyChanged = "provider.changed"
)

// Application error codes.
const (
	codeNotFound      = jrpc2.Code(-32001)
	codeInvalidParams = jrpc2.Code(-32602)
	codeUnavailable   = jrpc2.Code(-32003)
)

// defaultPageSize is how many rows one artwork.query call returns.
const defaultPageSize = 50

// ArtworkRow is the wire form of an artwork.
type ArtworkRow struct {
	ID          string    `json:"id"`
	ImageURI    string    `json:"imageUri"`
	Title       string    `json:"title,omitempty"`
	Byline      string    `json:"byline,omitempty"`
	Attribution string    `json:"attribution,omitempty"`
	DateAdded   time.Time `json:"dateAdded,omitzero"`
}

func rowFromArtwork(a domain.Artwork) ArtworkRow {
	return ArtworkRow{
		ID:          a.ID,
		ImageURI:    a.ImageURI,
		Title:       a.Title,
		Byline:      a.Byline,
		Attribution: a.Attribution,
		DateAdded:   a.DateAdded,
	}
}

func (r ArtworkRow) artwork() domain.Artwork {
	return domain.Artwork{
		ID:          r.ID,
		ImageURI:    r.ImageURI,
		Title:       r.Title,
		Byline:      r.Byline,
		Attribution: r.Attribution,
		DateAdded:   r.DateAdded,
	}
}

// QueryParams is the input for artwork.query.
type QueryParams struct {
	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}

// QueryResult is the response for artwork.query.
type QueryResult struct {
	Artwork []ArtworkRow `json:"artwork"`
	More    bool         `json:"more"`
}

// IDParam is the input for methods addressing one artwork.
type IDParam struct {
	ID string `json:"id"`
}

// OpenResult is the response for artwork.open. Data is base64 on the wire.
type OpenResult struct {
	Data []byte `json:"data"`
}

// LoadInfoResult is the response for provider.getLoadInfo.
// A null result means the provider has no load info yet.
type LoadInfoResult struct {
	LastLoadedTime time.Time `json:"lastLoadedTime"`
}

// EmptyResult is a placeholder for methods that return no data.
type EmptyResult struct{}

// parseLocator splits an rpc content URI into a dial network and address.
//
//	rpc://host:port          -> tcp, host:port
//	rpc+unix:///run/art.sock -> unix, /run/art.sock
func parseLocator(contentURI string) (network, address string, err error) {
	u, err := url.Parse(contentURI)
	if err != nil {
		return "", "", fmt.Errorf("%s: %v: %w", contentURI, err, domain.ErrInvalidInput)
	}
	switch strings.ToLower(u.Scheme) {
	case SchemeTCP:
		if u.Host == "" {
			return "", "", fmt.Errorf("%s: missing host: %w", contentURI, domain.ErrInvalidInput)
		}
		return "tcp", u.Host, nil
	case SchemeUnix:
		path := u.Path
		if path == "" {
			path = u.Opaque
		}
		if path == "" {
			return "", "", fmt.Errorf("%s: missing socket path: %w", contentURI, domain.ErrInvalidInput)
		}
		return "unix", path, nil
	default:
		return "", "", fmt.Errorf("%s: %w", contentURI, domain.ErrUnsupportedLocator)
	}
}
