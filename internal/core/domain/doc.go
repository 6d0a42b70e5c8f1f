// Package domain holds the artsync entities and the staleness policy.
//
// Types:
//
//   - Provider, Artwork and LoadInfo describe the content source
//   - SchedulingIntent is what one reconciliation decides to do
//   - Job, JobResult and SchedulerConfig describe deferred work
//   - SyncSettings is the persisted sync configuration
//
// The staleness functions (IsOverdue, DecideIntent, SupportsNextArtwork,
// ShouldRequestLoad) are pure and take the current time as an argument.
//
// Only the standard library may be imported here.
package domain
