package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNoProvider indicates storage holds no current provider.
	ErrNoProvider = errors.New("no current provider")

	// ErrProviderUnavailable indicates the provider could not be reached or
	// failed mid-call. It is the transport fault of the provider boundary
	// and always maps to a retry.
	ErrProviderUnavailable = errors.New("provider unavailable")

	// ErrNotReady indicates the provider answered but has no load info yet.
	ErrNotReady = errors.New("provider not ready")

	// ErrInvalidImage indicates an artwork stream did not decode as an image.
	ErrInvalidImage = errors.New("invalid image")

	// ErrUnsupportedLocator indicates a content URI with an unknown scheme.
	ErrUnsupportedLocator = errors.New("unsupported content locator")
)

// IsTransportFault reports whether err is a provider transport fault.
func IsTransportFault(err error) bool {
	return errors.Is(err, ErrProviderUnavailable)
}
