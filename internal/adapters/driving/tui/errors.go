package tui

import "errors"

// ErrMissingProviderManager is returned when the provider manager is not provided.
var ErrMissingProviderManager = errors.New("tui: provider manager is required")
