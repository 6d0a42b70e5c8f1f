package filesystem

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/artsync/internal/core/domain"
	"github.com/custodia-labs/artsync/internal/core/ports/driven"
	"github.com/custodia-labs/artsync/internal/logger"
)

// Ensure Connector implements the interfaces.
var (
	_ driven.ProviderConnector = (*Connector)(nil)
	_ driven.ChangeNotifier    = (*Connector)(nil)
)

// Connector opens filesystem providers and watches their directories.
type Connector struct {
	mu       sync.Mutex
	closed   bool
	watchers map[*fsnotify.Watcher]struct{}
}

// New creates a filesystem connector.
func New() *Connector {
	return &Connector{watchers: make(map[*fsnotify.Watcher]struct{})}
}

// Connect opens the provider behind a file:// content URI.
// A missing directory is a transport fault.
func (c *Connector) Connect(_ context.Context, contentURI string) (driven.ProviderClient, error) {
	if err := checkScheme(contentURI); err != nil {
		return nil, err
	}
	p := NewProvider(ResolvePath(contentURI))
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Watch calls onChange whenever artwork or the last-loaded marker in the
// directory changes. The hook stops when ctx is done or stop is called.
func (c *Connector) Watch(ctx context.Context, contentURI string, onChange func()) (func(), error) {
	if err := checkScheme(contentURI); err != nil {
		return nil, err
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, errors.New("connector is closed")
	}
	c.mu.Unlock()

	rootPath := ResolvePath(contentURI)
	if err := NewProvider(rootPath).Validate(); err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	if err := watcher.Add(rootPath); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watching %s: %w", rootPath, err)
	}

	c.mu.Lock()
	c.watchers[watcher] = struct{}{}
	c.mu.Unlock()

	watchCtx, cancel := context.WithCancel(ctx)
	var once sync.Once
	stop := func() {
		once.Do(func() {
			cancel()
			watcher.Close()
			c.mu.Lock()
			delete(c.watchers, watcher)
			c.mu.Unlock()
		})
	}

	go func() {
		defer stop()
		for {
			select {
			case <-watchCtx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if handleFsEvent(event) {
					onChange()
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("filesystem: watch %s: %v", rootPath, err)
			}
		}
	}()

	return stop, nil
}

// Close stops every active watch. Further watches fail.
func (c *Connector) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	watchers := make([]*fsnotify.Watcher, 0, len(c.watchers))
	for w := range c.watchers {
		watchers = append(watchers, w)
	}
	c.watchers = make(map[*fsnotify.Watcher]struct{})
	c.mu.Unlock()

	for _, w := range watchers {
		w.Close()
	}
	return nil
}

// handleFsEvent reports whether an fsnotify event changes provider data.
// Chmod-only events, directories, and dotfiles other than the last-loaded
// marker are ignored. The load-requested marker is written by RequestLoad
// and must not wake a reconciliation.
func handleFsEvent(event fsnotify.Event) bool {
	name := filepath.Base(event.Name)
	if name != LastLoadedMarker && !isArtworkName(name) {
		return false
	}

	switch {
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		return true
	case event.Has(fsnotify.Create), event.Has(fsnotify.Write):
		info, err := os.Stat(event.Name)
		if err != nil {
			// Gone again; a later Remove event follows.
			return false
		}
		return !info.IsDir()
	default:
		return false
	}
}

func checkScheme(contentURI string) error {
	if !strings.HasPrefix(contentURI, Scheme+":") {
		return fmt.Errorf("%s: %w", contentURI, domain.ErrUnsupportedLocator)
	}
	return nil
}
