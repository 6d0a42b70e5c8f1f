package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/custodia-labs/artsync/internal/core/domain"
	"github.com/custodia-labs/artsync/internal/core/ports/driven"
)

// Marker files kept in the provider directory.
const (
	// LastLoadedMarker is touched by whatever fills the directory; its
	// modification time is the provider's last load time.
	LastLoadedMarker = ".last-loaded"

	// LoadRequestedMarker is touched when new content is requested.
	LoadRequestedMarker = ".load-requested"
)

// imageExtensions lists the file extensions treated as artwork.
var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
	".bmp":  true,
}

// Ensure Provider implements the interface.
var _ driven.ProviderClient = (*Provider)(nil)

// Provider serves the image files of a single directory as artwork.
// Artwork IDs are file names; the listing is ordered newest first.
type Provider struct {
	rootPath string
	now      func() time.Time
}

// NewProvider creates a provider over rootPath. It does not touch the disk.
func NewProvider(rootPath string) *Provider {
	return &Provider{rootPath: rootPath, now: time.Now}
}

// Root returns the provider directory.
func (p *Provider) Root() string {
	return p.rootPath
}

// Validate checks the directory exists and is readable.
func (p *Provider) Validate() error {
	info, err := os.Stat(p.rootPath)
	if err != nil {
		return fmt.Errorf("root path error: %v: %w", err, domain.ErrProviderUnavailable)
	}
	if !info.IsDir() {
		return fmt.Errorf("root path %s is not a directory: %w", p.rootPath, domain.ErrProviderUnavailable)
	}
	return nil
}

// Query returns the directory's artwork, newest first.
func (p *Provider) Query(_ context.Context) (driven.ArtworkCursor, error) {
	artwork, err := p.list()
	if err != nil {
		return nil, err
	}
	return &cursor{rows: artwork}, nil
}

// QueryArtwork returns a single artwork by file name.
func (p *Provider) QueryArtwork(_ context.Context, artworkID string) (*domain.Artwork, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if !isArtworkName(artworkID) {
		return nil, nil
	}
	info, err := os.Stat(filepath.Join(p.rootPath, artworkID))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", artworkID, err)
	}
	if !info.Mode().IsRegular() {
		return nil, nil
	}
	a := p.toArtwork(artworkID, info)
	return &a, nil
}

// OpenStream opens the image file of an artwork.
func (p *Provider) OpenStream(_ context.Context, artworkID string) (io.ReadCloser, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if !isArtworkName(artworkID) {
		return nil, fmt.Errorf("open %s: %w", artworkID, domain.ErrNotFound)
	}
	f, err := os.Open(filepath.Join(p.rootPath, artworkID))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("open %s: %w", artworkID, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", artworkID, err)
	}
	return f, nil
}

// GetLoadInfo reports the last-loaded marker time, falling back to the
// newest artwork's modification time. A directory that was never loaded and
// holds no artwork reports the zero time, so it is immediately overdue.
func (p *Provider) GetLoadInfo(_ context.Context) (*domain.LoadInfo, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if info, err := os.Stat(filepath.Join(p.rootPath, LastLoadedMarker)); err == nil {
		return &domain.LoadInfo{LastLoadedTime: info.ModTime()}, nil
	}

	artwork, err := p.list()
	if err != nil {
		return nil, err
	}
	if len(artwork) == 0 {
		return &domain.LoadInfo{}, nil
	}
	return &domain.LoadInfo{LastLoadedTime: artwork[0].DateAdded}, nil
}

// RequestLoad touches the load-requested marker.
func (p *Provider) RequestLoad(_ context.Context) error {
	if err := p.Validate(); err != nil {
		return err
	}
	path := filepath.Join(p.rootPath, LoadRequestedMarker)
	now := p.now()
	if err := os.Chtimes(path, now, now); err == nil {
		return nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("requesting load: %w", err)
	}
	return f.Close()
}

// Close is a no-op; the provider holds no open handles.
func (p *Provider) Close() error {
	return nil
}

// list reads the directory and returns its artwork newest first.
// Ties are broken by name so the order is stable.
func (p *Provider) list() ([]domain.Artwork, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(p.rootPath)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %v: %w", p.rootPath, err, domain.ErrProviderUnavailable)
	}

	artwork := make([]domain.Artwork, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() || !isArtworkName(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			// Removed between ReadDir and Info.
			continue
		}
		artwork = append(artwork, p.toArtwork(entry.Name(), info))
	}

	sort.Slice(artwork, func(i, j int) bool {
		if !artwork[i].DateAdded.Equal(artwork[j].DateAdded) {
			return artwork[i].DateAdded.After(artwork[j].DateAdded)
		}
		return artwork[i].ID < artwork[j].ID
	})
	return artwork, nil
}

func (p *Provider) toArtwork(name string, info fs.FileInfo) domain.Artwork {
	path := filepath.Join(p.rootPath, name)
	return domain.Artwork{
		ID:        name,
		ImageURI:  ContentURI(path),
		Title:     strings.TrimSuffix(name, filepath.Ext(name)),
		DateAdded: info.ModTime(),
	}
}

// isArtworkName reports whether name is a visible image file name
// directly inside the provider directory.
func isArtworkName(name string) bool {
	if name == "" || strings.HasPrefix(name, ".") || filepath.Base(name) != name {
		return false
	}
	return imageExtensions[strings.ToLower(filepath.Ext(name))]
}

// cursor iterates over a directory listing taken at query time.
type cursor struct {
	rows []domain.Artwork
	pos  int
	err  error
}

func (c *cursor) Next(ctx context.Context) bool {
	if err := ctx.Err(); err != nil {
		c.err = err
		return false
	}
	if c.pos >= len(c.rows) {
		return false
	}
	c.pos++
	return true
}

func (c *cursor) Artwork() domain.Artwork { return c.rows[c.pos-1] }
func (c *cursor) Err() error              { return c.err }
func (c *cursor) Close() error            { return nil }
