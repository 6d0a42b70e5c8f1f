// Package memory provides in-memory implementations of the storage ports.
//
// The stores are safe for concurrent use and lose their contents when the
// process exits. They back tests and the --ephemeral run mode.
package memory
