// Package mcp provides an MCP (Model Context Protocol) server adapter for artsync.
// It lets AI assistants request new artwork and inspect or tune the sync schedule.
package mcp

import "errors"

// ErrMissingProviderManager is returned when the provider manager is not provided.
var ErrMissingProviderManager = errors.New("mcp: provider manager is required")
