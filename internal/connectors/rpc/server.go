package rpc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"

	"github.com/creachadair/jrpc2"
	"github.com/creachadair/jrpc2/channel"
	"github.com/creachadair/jrpc2/handler"

	"github.com/custodia-labs/artsync/internal/core/domain"
	"github.com/custodia-labs/artsync/internal/core/ports/driven"
	"github.com/custodia-labs/artsync/internal/logger"
)

// maxOpenBytes caps the size of an image served by artwork.open.
const maxOpenBytes = 64 << 20

// Server exposes a provider over JSON-RPC. Each accepted connection gets
// its own jrpc2 server; connections that call provider.subscribe receive
// provider.changed pushes.
type Server struct {
	provider driven.ProviderClient
	notifier *Notifier
	methods  handler.Map
}

// NewServer creates a server for provider.
func NewServer(provider driven.ProviderClient) *Server {
	s := &Server{
		provider: provider,
		notifier: NewNotifier(),
	}
	s.methods = handler.Map{
		MethodQuery:       handler.New(s.artworkQuery),
		MethodGet:         handler.New(s.artworkGet),
		MethodOpen:        handler.New(s.artworkOpen),
		MethodLoadInfo:    handler.New(s.providerGetLoadInfo),
		MethodRequestLoad: handler.New(s.providerRequestLoad),
		MethodSubscribe:   handler.New(s.providerSubscribe),
	}
	return s
}

// Listen opens a listener for an rpc content URI. A stale unix socket
// file is removed first.
func Listen(contentURI string) (net.Listener, error) {
	network, address, err := parseLocator(contentURI)
	if err != nil {
		return nil, err
	}
	if network == "unix" {
		if err := os.Remove(address); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("removing stale socket: %w", err)
		}
	}
	return net.Listen(network, address)
}

// Serve accepts connections until ctx is done, then closes ln.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("accepting connection: %w", err)
		}
		go s.ServeConn(ctx, conn)
	}
}

// ServeConn serves one connection until it closes or ctx is done.
func (s *Server) ServeConn(ctx context.Context, conn io.ReadWriteCloser) {
	srv := jrpc2.NewServer(s.methods, &jrpc2.ServerOptions{AllowPush: true})
	srv.Start(channel.Line(conn, conn))

	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			srv.Stop()
		case <-done:
		}
	}()

	if err := srv.Wait(); err != nil {
		logger.Debug("rpc: connection ended: %v", err)
	}
	close(done)
	s.notifier.Unregister(srv)
}

// NotifyChanged pushes provider.changed to every subscribed connection.
func (s *Server) NotifyChanged() {
	s.notifier.Broadcast(NotifyChanged, nil)
}

// Subscribers returns the number of subscribed connections.
func (s *Server) Subscribers() int {
	return s.notifier.Count()
}

func (s *Server) artworkQuery(ctx context.Context, p *QueryParams) (*QueryResult, error) {
	if p.Offset < 0 || p.Limit < 0 {
		return nil, &jrpc2.Error{Code: codeInvalidParams, Message: "offset and limit must not be negative"}
	}
	limit := p.Limit
	if limit == 0 {
		limit = defaultPageSize
	}

	cur, err := s.provider.Query(ctx)
	if err != nil {
		return nil, toRPCError(err)
	}
	defer cur.Close()

	res := &QueryResult{Artwork: []ArtworkRow{}}
	for i := 0; cur.Next(ctx); i++ {
		if i < p.Offset {
			continue
		}
		if len(res.Artwork) == limit {
			res.More = true
			break
		}
		res.Artwork = append(res.Artwork, rowFromArtwork(cur.Artwork()))
	}
	if err := cur.Err(); err != nil {
		return nil, toRPCError(err)
	}
	return res, nil
}

func (s *Server) artworkGet(ctx context.Context, p *IDParam) (*ArtworkRow, error) {
	if p.ID == "" {
		return nil, &jrpc2.Error{Code: codeInvalidParams, Message: "missing required param: id"}
	}
	a, err := s.provider.QueryArtwork(ctx, p.ID)
	if err != nil {
		return nil, toRPCError(err)
	}
	if a == nil {
		return nil, nil
	}
	row := rowFromArtwork(*a)
	return &row, nil
}

func (s *Server) artworkOpen(ctx context.Context, p *IDParam) (*OpenResult, error) {
	if p.ID == "" {
		return nil, &jrpc2.Error{Code: codeInvalidParams, Message: "missing required param: id"}
	}
	rc, err := s.provider.OpenStream(ctx, p.ID)
	if err != nil {
		return nil, toRPCError(err)
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, maxOpenBytes))
	if err != nil {
		return nil, toRPCError(err)
	}
	return &OpenResult{Data: data}, nil
}

func (s *Server) providerGetLoadInfo(ctx context.Context) (*LoadInfoResult, error) {
	info, err := s.provider.GetLoadInfo(ctx)
	if err != nil {
		return nil, toRPCError(err)
	}
	if info == nil {
		return nil, nil
	}
	return &LoadInfoResult{LastLoadedTime: info.LastLoadedTime}, nil
}

func (s *Server) providerRequestLoad(ctx context.Context) (*EmptyResult, error) {
	if err := s.provider.RequestLoad(ctx); err != nil {
		return nil, toRPCError(err)
	}
	return &EmptyResult{}, nil
}

func (s *Server) providerSubscribe(ctx context.Context) (*EmptyResult, error) {
	srv := jrpc2.ServerFromContext(ctx)
	if srv == nil {
		return nil, &jrpc2.Error{Code: codeUnavailable, Message: "no server in context"}
	}
	s.notifier.Register(srv)
	return &EmptyResult{}, nil
}

// toRPCError maps provider errors onto protocol error codes.
func toRPCError(err error) error {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return &jrpc2.Error{Code: codeNotFound, Message: err.Error()}
	case errors.Is(err, domain.ErrInvalidInput):
		return &jrpc2.Error{Code: codeInvalidParams, Message: err.Error()}
	case errors.Is(err, domain.ErrProviderUnavailable):
		return &jrpc2.Error{Code: codeUnavailable, Message: err.Error()}
	default:
		return err
	}
}
