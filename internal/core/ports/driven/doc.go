// Package driven declares what the sync core needs from the outside world.
//
//   - ProviderConnector, ProviderClient, ArtworkCursor: talk to a provider
//   - ChangeNotifier: hooks on a content locator
//   - ProviderStore, JobStore: persistence
//   - JobScheduler: one-off, periodic and content-triggered work
//   - ConfigStore: key-value settings
//   - ImageValidator, NetworkMonitor: artwork checks and job constraints
//
// Implementations live under internal/adapters/driven and internal/connectors.
package driven
