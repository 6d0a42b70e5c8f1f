// Package connectors provides implementations of the provider transport
// for each supported content locator scheme. Each connector knows how to
// reach a provider of one kind (a local directory, a JSON-RPC process)
// and how to watch it for changes.
//
// Connectors are registered with the Router at startup.
package connectors
