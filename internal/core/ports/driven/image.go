package driven

import "io"

// ImageValidator confirms an artwork stream decodes as an image.
type ImageValidator interface {
	// Validate reads enough of r to decide whether it is an image.
	// Returns an error wrapping domain.ErrInvalidImage if it is not.
	Validate(r io.Reader) error
}
