package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/custodia-labs/artsync/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/artsync/internal/core/domain"
	"github.com/custodia-labs/artsync/internal/core/ports/driven"
)

// --- Mock implementations shared by the services tests ---

const validImage = "valid-image"

// mockValidator accepts only streams whose content is validImage.
type mockValidator struct {
	mu    sync.Mutex
	calls int
}

func (v *mockValidator) Validate(r io.Reader) error {
	v.mu.Lock()
	v.calls++
	v.mu.Unlock()
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	if string(data) != validImage {
		return domain.ErrInvalidImage
	}
	return nil
}

func (v *mockValidator) Calls() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.calls
}

// mockProviderClient serves a fixed artwork listing.
type mockProviderClient struct {
	mu sync.Mutex

	artwork  []domain.Artwork
	content  map[string]string
	loadInfo *domain.LoadInfo

	loadInfoErr error
	queryErr    error
	streamErr   map[string]error

	opened       []string
	requestLoads int
	closed       bool
}

func newMockProviderClient(lastLoaded time.Time) *mockProviderClient {
	return &mockProviderClient{
		content:   make(map[string]string),
		loadInfo:  &domain.LoadInfo{LastLoadedTime: lastLoaded},
		streamErr: make(map[string]error),
	}
}

// addArtwork appends artwork whose stream decodes when valid is true.
func (c *mockProviderClient) addArtwork(id string, valid bool) domain.Artwork {
	a := domain.Artwork{ID: id, ImageURI: "mock://" + id, Title: id}
	c.artwork = append(c.artwork, a)
	if valid {
		c.content[id] = validImage
	} else {
		c.content[id] = "garbage"
	}
	return a
}

func (c *mockProviderClient) Query(_ context.Context) (driven.ArtworkCursor, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.queryErr != nil {
		return nil, c.queryErr
	}
	return &sliceCursor{rows: append([]domain.Artwork(nil), c.artwork...)}, nil
}

func (c *mockProviderClient) QueryArtwork(_ context.Context, artworkID string) (*domain.Artwork, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, a := range c.artwork {
		if a.ID == artworkID {
			return &a, nil
		}
	}
	return nil, nil
}

func (c *mockProviderClient) OpenStream(_ context.Context, artworkID string) (io.ReadCloser, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.opened = append(c.opened, artworkID)
	if err := c.streamErr[artworkID]; err != nil {
		return nil, err
	}
	data, ok := c.content[artworkID]
	if !ok {
		return nil, fmt.Errorf("open %s: %w", artworkID, domain.ErrNotFound)
	}
	return io.NopCloser(bytes.NewBufferString(data)), nil
}

func (c *mockProviderClient) GetLoadInfo(_ context.Context) (*domain.LoadInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loadInfoErr != nil {
		return nil, c.loadInfoErr
	}
	if c.loadInfo == nil {
		return nil, nil
	}
	info := *c.loadInfo
	return &info, nil
}

func (c *mockProviderClient) RequestLoad(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requestLoads++
	return nil
}

func (c *mockProviderClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *mockProviderClient) RequestLoads() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.requestLoads
}

func (c *mockProviderClient) Opened() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.opened...)
}

// sliceCursor iterates over an in-memory slice.
type sliceCursor struct {
	rows []domain.Artwork
	pos  int
	err  error
}

func (c *sliceCursor) Next(_ context.Context) bool {
	if c.pos >= len(c.rows) {
		return false
	}
	c.pos++
	return true
}

func (c *sliceCursor) Artwork() domain.Artwork { return c.rows[c.pos-1] }
func (c *sliceCursor) Err() error              { return c.err }
func (c *sliceCursor) Close() error            { return nil }

// mockConnector hands out clients by content URI.
type mockConnector struct {
	mu         sync.Mutex
	clients    map[string]*mockProviderClient
	connectErr error
	connects   int
}

func newMockConnector() *mockConnector {
	return &mockConnector{clients: make(map[string]*mockProviderClient)}
}

func (c *mockConnector) Connects() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connects
}

func (c *mockConnector) Connect(_ context.Context, contentURI string) (driven.ProviderClient, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connects++
	if c.connectErr != nil {
		return nil, c.connectErr
	}
	client, ok := c.clients[contentURI]
	if !ok {
		return nil, fmt.Errorf("connect %s: %w", contentURI, domain.ErrProviderUnavailable)
	}
	return client, nil
}

// jobCall records one call on mockJobScheduler.
type jobCall struct {
	Op          string
	Tag         string
	Payload     map[string]string
	Interval    time.Duration
	Constraints domain.JobConstraints
	ContentURI  string
}

// mockJobScheduler records every scheduling call.
type mockJobScheduler struct {
	mu    sync.Mutex
	calls []jobCall
	err   error
}

func (j *mockJobScheduler) record(c jobCall) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.calls = append(j.calls, c)
	return j.err
}

func (j *mockJobScheduler) EnqueueOneOff(_ context.Context, tag string, payload map[string]string) error {
	return j.record(jobCall{Op: "oneoff", Tag: tag, Payload: payload})
}

func (j *mockJobScheduler) EnqueuePeriodic(
	_ context.Context,
	tag string,
	interval time.Duration,
	constraints domain.JobConstraints,
) error {
	return j.record(jobCall{Op: "periodic", Tag: tag, Interval: interval, Constraints: constraints})
}

func (j *mockJobScheduler) EnqueueOnContentChange(
	_ context.Context,
	tag, contentURI string,
	payload map[string]string,
) error {
	return j.record(jobCall{Op: "content", Tag: tag, ContentURI: contentURI, Payload: payload})
}

func (j *mockJobScheduler) CancelByTag(_ context.Context, tag string) error {
	return j.record(jobCall{Op: "cancel", Tag: tag})
}

func (j *mockJobScheduler) Calls() []jobCall {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]jobCall(nil), j.calls...)
}

// Count returns how many calls match op and tag.
func (j *mockJobScheduler) Count(op, tag string) int {
	n := 0
	for _, c := range j.Calls() {
		if c.Op == op && c.Tag == tag {
			n++
		}
	}
	return n
}

func (j *mockJobScheduler) Reset() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.calls = nil
}

// mockNotifier records watches and lets tests fire changes.
type mockNotifier struct {
	mu      sync.Mutex
	watches map[string][]func()
	stopped int
	err     error
}

func newMockNotifier() *mockNotifier {
	return &mockNotifier{watches: make(map[string][]func())}
}

func (n *mockNotifier) Watch(_ context.Context, contentURI string, onChange func()) (func(), error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return nil, n.err
	}
	n.watches[contentURI] = append(n.watches[contentURI], onChange)
	idx := len(n.watches[contentURI]) - 1
	var once sync.Once
	return func() {
		once.Do(func() {
			n.mu.Lock()
			defer n.mu.Unlock()
			n.watches[contentURI][idx] = nil
			n.stopped++
		})
	}, nil
}

// Fire invokes every live hook on contentURI.
func (n *mockNotifier) Fire(contentURI string) {
	n.mu.Lock()
	hooks := append([]func(){}, n.watches[contentURI]...)
	n.mu.Unlock()
	for _, fn := range hooks {
		if fn != nil {
			fn()
		}
	}
}

// Active returns the number of live hooks on contentURI.
func (n *mockNotifier) Active(contentURI string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	count := 0
	for _, fn := range n.watches[contentURI] {
		if fn != nil {
			count++
		}
	}
	return count
}

// failingProviderStore wraps the memory store with injectable errors.
type failingProviderStore struct {
	*memory.ProviderStore
	getErr    error
	updateErr error
}

func (s *failingProviderStore) GetCurrentProvider(ctx context.Context) (*domain.Provider, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	return s.ProviderStore.GetCurrentProvider(ctx)
}

func (s *failingProviderStore) UpdateProvider(ctx context.Context, p domain.Provider) error {
	if s.updateErr != nil {
		return s.updateErr
	}
	return s.ProviderStore.UpdateProvider(ctx, p)
}

// mockNetwork reports a fixed connectivity state.
type mockNetwork struct {
	mu        sync.Mutex
	unmetered bool
}

func (n *mockNetwork) OnUnmetered() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.unmetered
}

func (n *mockNetwork) Set(unmetered bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.unmetered = unmetered
}

// newTestSettings returns settings over an in-memory config store.
func newTestSettings() *SettingsService {
	return NewSettingsService(memory.NewConfigStore())
}
