// Package services implements the sync core: the provider manager, the
// change reactor, persistent listeners, the artwork loader and the job
// scheduler they share. Reconciliations and loads run on one SyncWorker.
package services
