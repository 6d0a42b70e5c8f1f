package filesystem

import (
	"path/filepath"
	"strings"
)

// Scheme is the content locator scheme served by this package.
const Scheme = "file"

// ResolvePath converts a file:// content URI to a local directory path.
// Bare paths pass through unchanged.
func ResolvePath(uri string) string {
	if strings.HasPrefix(uri, "file://") {
		return filepath.Clean(strings.TrimPrefix(uri, "file://"))
	}
	if strings.HasPrefix(uri, "file:") {
		return filepath.Clean(strings.TrimPrefix(uri, "file:"))
	}
	return uri
}

// ContentURI returns the file:// content URI for a directory.
func ContentURI(dir string) string {
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}
	return "file://" + filepath.ToSlash(dir)
}
