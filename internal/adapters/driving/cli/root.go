// Package cli implements the artsync command line.
package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/artsync/internal/core/ports/driving"
	"github.com/custodia-labs/artsync/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

// skipBootstrap marks commands that run without the core services.
const skipBootstrap = "skip-bootstrap"

// Options are the root flags handed to the bootstrap function.
type Options struct {
	ConfigDir string
	DataDir   string
}

// Daemon runs the background scheduler until ctx is cancelled.
type Daemon interface {
	// Run starts the scheduler and its stores. When observe is set the
	// daemon also holds an observer on the provider manager.
	Run(ctx context.Context, observe bool) error
}

// Services holds the core services used by the commands.
type Services struct {
	Manager   driving.ProviderManager
	Providers driving.ProviderService
	Listeners driving.PersistentListeners
	Settings  driving.SettingsService
	Status    driving.StatusService
	Loader    driving.ArtworkLoader
	Daemon    Daemon

	// Close releases the services. May be nil.
	Close func() error
}

// BootstrapFunc builds the services for the given options.
type BootstrapFunc func(opts Options) (*Services, error)

var (
	managerService   driving.ProviderManager
	providerService  driving.ProviderService
	listenersService driving.PersistentListeners
	settingsService  driving.SettingsService
	statusService    driving.StatusService
	artworkLoader    driving.ArtworkLoader
	daemon           Daemon

	bootstrapFn   BootstrapFunc
	closeServices func() error
)

var (
	verbose   bool
	configDir string
	dataDir   string
	logFile   string
)

var rootCmd = &cobra.Command{
	Use:   "artsync",
	Short: "Keep artwork in sync with its provider",
	Long: `artsync tracks the current artwork provider and keeps its artwork fresh.

It reacts to provider changes, loads new artwork on a schedule, and keeps a
low-power listener registered while nothing is watching.`,
	SilenceUsage:      true,
	PersistentPreRunE: preRun,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "configuration directory (default ~/.artsync)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "data directory (default ~/.artsync/data)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "also append log lines to this file")
}

// SetServices injects the core services directly.
func SetServices(s *Services) {
	if s == nil {
		s = &Services{}
	}
	managerService = s.Manager
	providerService = s.Providers
	listenersService = s.Listeners
	settingsService = s.Settings
	statusService = s.Status
	artworkLoader = s.Loader
	daemon = s.Daemon
	closeServices = s.Close
}

// SetBootstrap sets the function that builds the services once the root
// flags are parsed.
func SetBootstrap(fn BootstrapFunc) {
	bootstrapFn = fn
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// Execute runs the root command and releases the services afterwards.
func Execute() error {
	defer func() {
		if closeServices != nil {
			if err := closeServices(); err != nil {
				logger.Warn("closing services: %v", err)
			}
			closeServices = nil
		}
		_ = logger.Close()
	}()
	return rootCmd.Execute()
}

func preRun(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)
	if logFile != "" {
		if err := logger.SetLogFile(logFile); err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}
	}

	if cmd.Annotations[skipBootstrap] == "true" || bootstrapFn == nil {
		return nil
	}
	s, err := bootstrapFn(Options{ConfigDir: configDir, DataDir: dataDir})
	if err != nil {
		return fmt.Errorf("initialising: %w", err)
	}
	SetServices(s)
	return nil
}

func noBootstrap() map[string]string {
	return map[string]string{skipBootstrap: "true"}
}

var errNotConfigured = errors.New("not configured")

func requireService(name string, ok bool) error {
	if !ok {
		return fmt.Errorf("%s service %w", name, errNotConfigured)
	}
	return nil
}
