package rpc

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/artsync/internal/core/ports/driven"
	"github.com/custodia-labs/artsync/internal/logger"
)

// DefaultCallRate is the default sustained calls per second per connection.
const DefaultCallRate = 20

// Ensure Connector implements the interfaces.
var (
	_ driven.ProviderConnector = (*Connector)(nil)
	_ driven.ChangeNotifier    = (*Connector)(nil)
)

// Connector dials JSON-RPC providers over TCP or unix sockets.
type Connector struct {
	limit rate.Limit
	burst int
}

// New creates a connector whose connections make at most callsPerSecond
// calls per second. Zero or less means unlimited.
func New(callsPerSecond float64) *Connector {
	limit := rate.Inf
	if callsPerSecond > 0 {
		limit = rate.Limit(callsPerSecond)
	}
	return &Connector{limit: limit, burst: 5}
}

func (c *Connector) newLimiter() *rate.Limiter {
	return rate.NewLimiter(c.limit, c.burst)
}

// Connect dials the provider. A dial failure is a transport fault.
func (c *Connector) Connect(ctx context.Context, contentURI string) (driven.ProviderClient, error) {
	return dial(ctx, contentURI, c.newLimiter(), nil)
}

// Watch opens a dedicated connection, subscribes to change pushes, and
// calls onChange for each one. The hook ends when ctx is done, stop is
// called, or the server goes away.
func (c *Connector) Watch(ctx context.Context, contentURI string, onChange func()) (func(), error) {
	client, err := dial(ctx, contentURI, c.newLimiter(), func(method string) {
		if method == NotifyChanged {
			onChange()
		}
	})
	if err != nil {
		return nil, err
	}

	var res EmptyResult
	if err := client.call(ctx, MethodSubscribe, nil, &res); err != nil {
		client.Close()
		return nil, fmt.Errorf("subscribing to %s: %w", contentURI, err)
	}

	watchCtx, cancel := context.WithCancel(ctx)
	var once sync.Once
	stop := func() {
		once.Do(func() {
			cancel()
			if err := client.Close(); err != nil {
				logger.Debug("rpc: closing watch on %s: %v", contentURI, err)
			}
		})
	}
	go func() {
		<-watchCtx.Done()
		stop()
	}()

	return stop, nil
}
