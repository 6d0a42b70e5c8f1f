// Package sqlite provides a SQLite-based implementation of the storage ports.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. It implements two store interfaces
// through a single database connection:
//
//   - ProviderStore: the current provider, its artwork and their change streams
//   - JobStore: pending scheduler jobs and execution history
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
//
// # Data Location
//
// By default, the database is stored at ~/.artsync/data/artsync.db
//
// # Cross-Process Changes
//
// Change streams fire for writes made through this Store. Writes from other
// processes, such as a one-shot CLI command, are picked up by Poll.
package sqlite
