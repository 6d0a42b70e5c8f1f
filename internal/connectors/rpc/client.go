package rpc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/creachadair/jrpc2"
	"github.com/creachadair/jrpc2/channel"
	"golang.org/x/time/rate"

	"github.com/custodia-labs/artsync/internal/core/domain"
	"github.com/custodia-labs/artsync/internal/core/ports/driven"
)

// Ensure Client implements the interface.
var _ driven.ProviderClient = (*Client)(nil)

// Client is a JSON-RPC connection to a remote provider.
// Every call waits on the client's rate limiter first.
type Client struct {
	cli      *jrpc2.Client
	limiter  *rate.Limiter
	pageSize int
}

// dial connects to the provider behind contentURI. onNotify, if not nil,
// receives the method name of every server push.
func dial(ctx context.Context, contentURI string, limiter *rate.Limiter, onNotify func(string)) (*Client, error) {
	network, address, err := parseLocator(contentURI)
	if err != nil {
		return nil, err
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, network, address)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %v: %w", contentURI, err, domain.ErrProviderUnavailable)
	}

	opts := &jrpc2.ClientOptions{}
	if onNotify != nil {
		opts.OnNotify = func(req *jrpc2.Request) {
			onNotify(req.Method())
		}
	}

	return &Client{
		cli:      jrpc2.NewClient(channel.Line(conn, conn), opts),
		limiter:  limiter,
		pageSize: defaultPageSize,
	}, nil
}

// Query returns a cursor that pages through the provider's artwork.
// The first page is fetched eagerly so transport faults surface here.
func (c *Client) Query(ctx context.Context) (driven.ArtworkCursor, error) {
	cur := &pagedCursor{client: c}
	if err := cur.fetch(ctx); err != nil {
		return nil, err
	}
	return cur, nil
}

// QueryArtwork returns a single artwork. Returns nil if the provider no
// longer has it.
func (c *Client) QueryArtwork(ctx context.Context, artworkID string) (*domain.Artwork, error) {
	var row *ArtworkRow
	if err := c.call(ctx, MethodGet, IDParam{ID: artworkID}, &row); err != nil {
		return nil, err
	}
	if row == nil {
		return nil, nil
	}
	a := row.artwork()
	return &a, nil
}

// OpenStream fetches the image bytes of an artwork.
func (c *Client) OpenStream(ctx context.Context, artworkID string) (io.ReadCloser, error) {
	var res OpenResult
	if err := c.call(ctx, MethodOpen, IDParam{ID: artworkID}, &res); err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(res.Data)), nil
}

// GetLoadInfo returns the provider's load metadata, or nil if it has none.
func (c *Client) GetLoadInfo(ctx context.Context) (*domain.LoadInfo, error) {
	var res *LoadInfoResult
	if err := c.call(ctx, MethodLoadInfo, nil, &res); err != nil {
		return nil, err
	}
	if res == nil {
		return nil, nil
	}
	return &domain.LoadInfo{LastLoadedTime: res.LastLoadedTime}, nil
}

// RequestLoad asks the provider to produce new content.
func (c *Client) RequestLoad(ctx context.Context) error {
	var res EmptyResult
	return c.call(ctx, MethodRequestLoad, nil, &res)
}

// Close shuts down the connection.
func (c *Client) Close() error {
	return c.cli.Close()
}

// call performs one rate-limited call and classifies its error.
// Errors carrying one of the protocol's application codes keep their
// meaning; every other failure is a transport fault.
func (c *Client) call(ctx context.Context, method string, params, result any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rpc %s: %v: %w", method, err, domain.ErrProviderUnavailable)
	}

	err := c.cli.CallResult(ctx, method, params, result)
	if err == nil {
		return nil
	}

	var rpcErr *jrpc2.Error
	if errors.As(err, &rpcErr) {
		switch rpcErr.Code {
		case codeNotFound:
			return fmt.Errorf("rpc %s: %s: %w", method, rpcErr.Message, domain.ErrNotFound)
		case codeInvalidParams:
			return fmt.Errorf("rpc %s: %s: %w", method, rpcErr.Message, domain.ErrInvalidInput)
		}
	}
	return fmt.Errorf("rpc %s: %v: %w", method, err, domain.ErrProviderUnavailable)
}

// pagedCursor fetches artwork.query pages on demand.
type pagedCursor struct {
	client *Client
	page   []ArtworkRow
	pos    int
	offset int
	more   bool
	cur    domain.Artwork
	err    error
}

func (c *pagedCursor) fetch(ctx context.Context) error {
	var res QueryResult
	params := QueryParams{Offset: c.offset, Limit: c.client.pageSize}
	if err := c.client.call(ctx, MethodQuery, params, &res); err != nil {
		return err
	}
	c.page = res.Artwork
	c.pos = 0
	c.offset += len(res.Artwork)
	c.more = res.More && len(res.Artwork) > 0
	return nil
}

func (c *pagedCursor) Next(ctx context.Context) bool {
	for {
		if c.pos < len(c.page) {
			c.cur = c.page[c.pos].artwork()
			c.pos++
			return true
		}
		if c.err != nil || !c.more {
			return false
		}
		if err := c.fetch(ctx); err != nil {
			c.err = err
			return false
		}
	}
}

func (c *pagedCursor) Artwork() domain.Artwork { return c.cur }
func (c *pagedCursor) Err() error              { return c.err }
func (c *pagedCursor) Close() error            { return nil }
