// Package bootstrap wires the artsync adapters and services together.
package bootstrap

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/custodia-labs/artsync/internal/adapters/driven/config/file"
	"github.com/custodia-labs/artsync/internal/adapters/driven/imaging"
	"github.com/custodia-labs/artsync/internal/adapters/driven/network"
	"github.com/custodia-labs/artsync/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/artsync/internal/adapters/driving/cli"
	"github.com/custodia-labs/artsync/internal/connectors"
	"github.com/custodia-labs/artsync/internal/connectors/rpc"
	"github.com/custodia-labs/artsync/internal/core/domain"
	"github.com/custodia-labs/artsync/internal/core/services"
	"github.com/custodia-labs/artsync/internal/logger"
)

// storePollInterval is how often the daemon re-reads the provider tables
// for writes made by other processes.
const storePollInterval = 2 * time.Second

// Build creates the services for opts. The returned Services.Close
// releases everything Build opened.
func Build(opts cli.Options) (*cli.Services, error) {
	configDir, dataDir, err := resolveDirs(opts)
	if err != nil {
		return nil, err
	}

	configStore, err := file.NewConfigStore(configDir)
	if err != nil {
		return nil, fmt.Errorf("opening config: %w", err)
	}
	settings := services.NewSettingsService(configStore)

	store, err := sqlite.NewStore(dataDir)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	logger.Debug("Using config in %s and database %s", configDir, store.Path())

	router := connectors.NewDefaultRouter(rpc.DefaultCallRate)

	schedConfig := domain.DefaultSchedulerConfig()
	schedConfig.MaxBackoff = settings.MaxBackoff()
	if schedConfig.MaxBackoff < schedConfig.BaseBackoff {
		schedConfig.MaxBackoff = schedConfig.BaseBackoff
	}
	scheduler := services.NewScheduler(schedConfig, store.JobStore(), router, network.NewMonitor(configStore))

	worker := services.NewSyncWorker()
	providers := store.ProviderStore()
	listeners := services.NewPersistentListeners(settings, providers, scheduler)
	reactor := services.NewChangeReactor(providers, router, scheduler, imaging.NewValidator(), settings, listeners, worker)
	loader := services.NewArtworkLoader(providers, router, worker)
	manager := services.NewProviderManager(providers, router, scheduler, settings, listeners)

	scheduler.Handle(domain.TagProviderSelected, reactor.HandleJob)
	scheduler.Handle(domain.TagProviderChanged, reactor.HandleJob)
	scheduler.Handle(domain.TagPersistentChanged, reactor.HandleJob)
	scheduler.Handle(domain.TagLoadNext, loader.HandleJob)
	scheduler.Handle(domain.TagLoadPeriodic, loader.HandleJob)

	d := &Daemon{
		scheduler:    scheduler,
		worker:       worker,
		store:        store,
		listeners:    listeners,
		manager:      manager,
		pollInterval: storePollInterval,
	}

	return &cli.Services{
		Manager:   manager,
		Providers: services.NewProviderService(providers, router),
		Listeners: listeners,
		Settings:  settings,
		Status:    services.NewStatusService(providers, store.JobStore(), settings, listeners),
		Loader:    loader,
		Daemon:    d,
		Close: func() error {
			manager.Close()
			return errors.Join(router.Close(), store.Close())
		},
	}, nil
}

func resolveDirs(opts cli.Options) (configDir, dataDir string, err error) {
	configDir, dataDir = opts.ConfigDir, opts.DataDir
	if configDir == "" || dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", "", fmt.Errorf("getting home directory: %w", err)
		}
		if configDir == "" {
			configDir = filepath.Join(home, ".artsync")
		}
		if dataDir == "" {
			dataDir = filepath.Join(home, ".artsync", "data")
		}
	}
	return configDir, dataDir, nil
}
