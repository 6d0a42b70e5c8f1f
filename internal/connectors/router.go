package connectors

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/artsync/internal/connectors/filesystem"
	"github.com/custodia-labs/artsync/internal/connectors/rpc"
	"github.com/custodia-labs/artsync/internal/core/domain"
	"github.com/custodia-labs/artsync/internal/core/ports/driven"
)

// Connector is what a transport registers for its schemes.
type Connector interface {
	driven.ProviderConnector
	driven.ChangeNotifier
}

// Ensure Router implements the interfaces.
var (
	_ driven.ProviderConnector = (*Router)(nil)
	_ driven.ChangeNotifier    = (*Router)(nil)
)

// Router dispatches content locators to connectors by URI scheme.
type Router struct {
	mu         sync.RWMutex
	connectors map[string]Connector
}

// NewRouter creates a router with no connectors.
func NewRouter() *Router {
	return &Router{connectors: make(map[string]Connector)}
}

// NewDefaultRouter creates a router with the built-in connectors.
// rpcCallRate limits calls per second on each rpc connection.
func NewDefaultRouter(rpcCallRate float64) *Router {
	r := NewRouter()
	r.Register(filesystem.Scheme, filesystem.New())
	remote := rpc.New(rpcCallRate)
	r.Register(rpc.SchemeTCP, remote)
	r.Register(rpc.SchemeUnix, remote)
	return r
}

// Register routes a scheme to a connector, replacing any previous one.
func (r *Router) Register(scheme string, c Connector) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.connectors[strings.ToLower(scheme)] = c
}

// Schemes returns the registered schemes, sorted.
func (r *Router) Schemes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	schemes := make([]string, 0, len(r.connectors))
	for s := range r.connectors {
		schemes = append(schemes, s)
	}
	sort.Strings(schemes)
	return schemes
}

// Connect opens a client through the connector for the URI's scheme.
func (r *Router) Connect(ctx context.Context, contentURI string) (driven.ProviderClient, error) {
	c, err := r.lookup(contentURI)
	if err != nil {
		return nil, err
	}
	return c.Connect(ctx, contentURI)
}

// Watch registers a change hook through the connector for the URI's scheme.
func (r *Router) Watch(ctx context.Context, contentURI string, onChange func()) (func(), error) {
	c, err := r.lookup(contentURI)
	if err != nil {
		return nil, err
	}
	return c.Watch(ctx, contentURI, onChange)
}

// Close closes every registered connector that holds resources.
func (r *Router) Close() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[Connector]bool)
	var errs []error
	for _, c := range r.connectors {
		closer, ok := c.(io.Closer)
		if !ok || seen[c] {
			continue
		}
		seen[c] = true
		if err := closer.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (r *Router) lookup(contentURI string) (Connector, error) {
	u, err := url.Parse(contentURI)
	if err != nil || u.Scheme == "" {
		return nil, fmt.Errorf("%q: %w", contentURI, domain.ErrUnsupportedLocator)
	}

	r.mu.RLock()
	c, ok := r.connectors[strings.ToLower(u.Scheme)]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("scheme %q: %w", u.Scheme, domain.ErrUnsupportedLocator)
	}
	return c, nil
}
