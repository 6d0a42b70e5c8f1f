package bootstrap

import (
	"image"
	"image/png"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/artsync/internal/core/domain"
)

func writePNG(t *testing.T, path string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, image.NewRGBA(image.Rect(0, 0, 2, 2))))
}

func countTag(jobs []domain.Job, tag string) int {
	n := 0
	for _, job := range jobs {
		if job.Tag == tag {
			n++
		}
	}
	return n
}
