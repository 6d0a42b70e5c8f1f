package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/artsync/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/artsync/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/artsync/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/artsync/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/artsync/internal/core/domain"
	"github.com/custodia-labs/artsync/internal/core/ports/driving"
)

// refreshInterval is how often the status snapshot is reloaded.
const refreshInterval = 5 * time.Second

// App is the watch view following the Elm architecture.
// It implements tea.Model for use with Bubbletea.
//
// The view is an in-process observer: Init acquires an observer handle on
// the provider manager and Close releases it.
type App struct {
	ports  *Ports
	ctx    context.Context
	styles *styles.Styles
	keymap *keymap.KeyMap

	bar     *status.Bar
	spinner spinner.Model
	help    help.Model

	// updates carries provider changes from the manager's goroutine into
	// the program. It holds at most the latest provider.
	updates   chan *domain.Provider
	released  chan struct{}
	handle    driving.ObserverHandle
	observing bool

	provider   *domain.Provider
	status     *driving.SyncStatus
	requesting bool
	showHelp   bool
	err        error

	width  int
	height int
	ready  bool
}

// Ensure App implements tea.Model.
var _ tea.Model = (*App)(nil)

// NewApp creates a new watch view with the given ports.
func NewApp(ports *Ports) (*App, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}

	s := styles.DefaultStyles()
	km := keymap.DefaultKeyMap()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = s.Help

	return &App{
		ports:    ports,
		ctx:      context.Background(),
		styles:   s,
		keymap:   km,
		bar:      status.NewBar(s, km),
		spinner:  sp,
		help:     help.New(),
		updates:  make(chan *domain.Provider, 1),
		released: make(chan struct{}),
	}, nil
}

// WithContext sets the context for the app.
func (a *App) WithContext(ctx context.Context) *App {
	a.ctx = ctx
	return a
}

// Init implements tea.Model. It starts observing the provider manager.
func (a *App) Init() tea.Cmd {
	a.observe()
	return tea.Batch(
		tea.SetWindowTitle("artsync - watch"),
		a.waitForProvider(),
		a.loadStatus(),
		a.spinner.Tick,
		refreshTick(),
	)
}

// Close releases the observer handle. It is safe to call more than once.
func (a *App) Close() {
	if !a.observing {
		return
	}
	a.observing = false
	a.ports.Manager.Release(a.handle)
	close(a.released)
}

func (a *App) observe() {
	if a.observing {
		return
	}
	a.observing = true
	a.handle = a.ports.Manager.Observe(a.deliver)
}

// deliver runs on the manager's goroutine and must not block.
func (a *App) deliver(provider *domain.Provider) {
	for {
		select {
		case a.updates <- provider:
			return
		default:
		}
		select {
		case <-a.updates:
		default:
		}
	}
}

func (a *App) waitForProvider() tea.Cmd {
	return func() tea.Msg {
		select {
		case p := <-a.updates:
			return messages.ProviderChanged{Provider: p}
		case <-a.released:
			return nil
		case <-a.ctx.Done():
			return nil
		}
	}
}

func (a *App) loadStatus() tea.Cmd {
	if a.ports.Status == nil {
		return nil
	}
	return func() tea.Msg {
		st, err := a.ports.Status.Status(a.ctx)
		return messages.StatusLoaded{Status: st, Err: err}
	}
}

func (a *App) requestNext() tea.Cmd {
	return func() tea.Msg {
		return messages.NextRequested{Err: a.ports.Manager.RequestNextArtwork(a.ctx)}
	}
}

func (a *App) toggleWifi() tea.Cmd {
	wifiOnly := !a.loadOnWifi()
	return func() tea.Msg {
		err := a.ports.Manager.SetLoadOnWifi(a.ctx, wifiOnly)
		return messages.WifiToggled{WifiOnly: wifiOnly, Err: err}
	}
}

func (a *App) loadOnWifi() bool {
	if a.ports.Settings != nil {
		return a.ports.Settings.LoadOnWifi()
	}
	if a.status != nil {
		return a.status.Settings.LoadOnWifi
	}
	return domain.DefaultLoadOnWifi
}

func refreshTick() tea.Cmd {
	return tea.Tick(refreshInterval, func(time.Time) tea.Msg {
		return messages.RefreshTick{}
	})
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.SetDimensions(msg.Width, msg.Height)
		return a, nil

	case tea.KeyMsg:
		return a.handleKey(msg)

	case messages.ProviderChanged:
		a.provider = msg.Provider
		return a, tea.Batch(a.waitForProvider(), a.loadStatus())

	case messages.StatusLoaded:
		if msg.Err != nil {
			a.setError(msg.Err)
			return a, nil
		}
		a.status = msg.Status
		return a, nil

	case messages.NextRequested:
		a.requesting = false
		if msg.Err != nil {
			a.setError(msg.Err)
			return a, nil
		}
		a.bar.SetState(status.StateWatching)
		a.bar.SetMessage("Next artwork requested")
		return a, a.loadStatus()

	case messages.WifiToggled:
		if msg.Err != nil {
			a.setError(msg.Err)
			return a, nil
		}
		a.bar.SetState(status.StateWatching)
		if msg.WifiOnly {
			a.bar.SetMessage("Periodic loads restricted to wifi")
		} else {
			a.bar.SetMessage("Periodic loads on any network")
		}
		return a, a.loadStatus()

	case messages.RefreshTick:
		return a, tea.Batch(a.loadStatus(), refreshTick())

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		a.bar.SetSpinner(a.spinner.View())
		return a, cmd
	}

	return a, nil
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, a.keymap.Quit):
		a.Close()
		return a, tea.Quit

	case key.Matches(msg, a.keymap.Help):
		a.showHelp = !a.showHelp
		if a.showHelp {
			a.bar.SetState(status.StateHelp)
		} else {
			a.bar.Clear()
		}
		return a, nil

	case key.Matches(msg, a.keymap.Next):
		if a.requesting {
			return a, nil
		}
		a.requesting = true
		a.err = nil
		a.bar.SetState(status.StateRequesting)
		return a, a.requestNext()

	case key.Matches(msg, a.keymap.Refresh):
		return a, a.loadStatus()

	case key.Matches(msg, a.keymap.Wifi):
		return a, a.toggleWifi()
	}
	return a, nil
}

func (a *App) setError(err error) {
	a.err = err
	a.bar.SetState(status.StateError)
	a.bar.SetMessage(err.Error())
}

// View implements tea.Model.
func (a *App) View() string {
	var b strings.Builder

	b.WriteString(a.styles.Title.Render("artsync"))
	b.WriteString(a.styles.Muted.Render("  watching the current provider"))
	b.WriteString("\n\n")

	b.WriteString(a.styles.Panel.Render(a.viewProvider()))
	b.WriteString("\n")
	b.WriteString(a.styles.Panel.Render(a.viewArtwork()))
	b.WriteString("\n")
	b.WriteString(a.styles.Panel.Render(a.viewSchedule()))
	b.WriteString("\n")

	if a.showHelp {
		b.WriteString("\n")
		b.WriteString(a.help.FullHelpView(a.keymap.FullHelp()))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(a.bar.View())
	return b.String()
}

func (a *App) row(label, value string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, a.styles.Label.Render(label), a.styles.Value.Render(value))
}

func (a *App) viewProvider() string {
	if a.provider == nil {
		return a.styles.Muted.Render("No provider selected")
	}
	supports := "no"
	if a.provider.SupportsNextArtwork {
		supports = "yes"
	}
	rows := []string{
		a.row("Provider", a.provider.ID),
		a.row("Locator", a.provider.ContentURI),
		a.row("Supports next", supports),
	}
	if !a.provider.SelectedAt.IsZero() {
		rows = append(rows, a.row("Selected", a.provider.SelectedAt.Local().Format(time.DateTime)))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func (a *App) viewArtwork() string {
	if a.status == nil || a.status.Artwork == nil {
		return a.styles.Muted.Render("No artwork loaded")
	}
	art := a.status.Artwork
	title := art.Title
	if title == "" {
		title = art.ID
	}
	rows := []string{a.row("Artwork", title)}
	if art.Byline != "" {
		rows = append(rows, a.row("Byline", art.Byline))
	}
	if art.Attribution != "" {
		rows = append(rows, a.row("Attribution", art.Attribution))
	}
	if !art.DateAdded.IsZero() {
		rows = append(rows, a.row("Added", art.DateAdded.Local().Format(time.DateTime)))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func (a *App) viewSchedule() string {
	if a.status == nil {
		return a.styles.Muted.Render("Loading status...")
	}
	settings := a.status.Settings
	frequency := "disabled"
	if settings.LoadFrequencySeconds > 0 {
		frequency = settings.LoadFrequency().String()
	}
	wifi := "any network"
	if settings.LoadOnWifi {
		wifi = "wifi only"
	}
	listener := "unregistered"
	if a.status.ListenerRegistered != "" {
		listener = a.status.ListenerRegistered
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		a.row("Load every", frequency),
		a.row("Network", wifi),
		a.row("Pending jobs", fmt.Sprintf("%d", len(a.status.Jobs))),
		a.row("Listener", listener),
	)
}

// Provider returns the last provider delivered by the manager.
func (a *App) Provider() *domain.Provider {
	return a.provider
}

// Status returns the last loaded status snapshot.
func (a *App) Status() *driving.SyncStatus {
	return a.status
}

// Observing reports whether the app holds an observer handle.
func (a *App) Observing() bool {
	return a.observing
}

// Requesting reports whether a next-artwork request is in flight.
func (a *App) Requesting() bool {
	return a.requesting
}

// Err returns the last error that occurred.
func (a *App) Err() error {
	return a.err
}

// Ready returns whether the app has received its first window size.
func (a *App) Ready() bool {
	return a.ready
}

// SetDimensions sets the terminal dimensions.
func (a *App) SetDimensions(width, height int) {
	a.width = width
	a.height = height
	a.ready = true
	a.bar.SetWidth(width)
	a.help.Width = width
}
