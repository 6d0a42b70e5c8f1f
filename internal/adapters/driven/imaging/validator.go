// Package imaging validates artwork streams by decoding their image header.
package imaging

import (
	"fmt"
	"image"
	"io"

	// Registered decoders.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/custodia-labs/artsync/internal/core/domain"
	"github.com/custodia-labs/artsync/internal/core/ports/driven"
)

// Ensure Validator implements the interface.
var _ driven.ImageValidator = (*Validator)(nil)

// Validator accepts streams whose header decodes as a JPEG, PNG, GIF,
// WebP or BMP image with non-zero dimensions.
type Validator struct{}

// NewValidator creates a validator.
func NewValidator() *Validator {
	return &Validator{}
}

// Validate reads the image header from r.
func (v *Validator) Validate(r io.Reader) error {
	cfg, format, err := image.DecodeConfig(r)
	if err != nil {
		return fmt.Errorf("decoding image: %v: %w", err, domain.ErrInvalidImage)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return fmt.Errorf("%s image is %dx%d: %w", format, cfg.Width, cfg.Height, domain.ErrInvalidImage)
	}
	return nil
}
