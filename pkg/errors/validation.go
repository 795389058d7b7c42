package errors

import (
	"path/filepath"
	"strings"
	"unicode"
)

// MaxRadius bounds the window radius accepted from user input.
const MaxRadius = 1 << 20

// ValidateSourcePath validates a graph source path supplied by a user.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 4096 characters
//   - No null bytes or control characters
//   - Must not name a companion file (cache, segment or genome side file)
func ValidateSourcePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}

	const maxPathLength = 4096
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}

	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if filepath.Ext(path) == ".txt" &&
		(strings.HasSuffix(base, "Segments") || strings.HasSuffix(base, "Genomes")) {
		return New(ErrCodeInvalidPath, "%s is a companion file, pass the source graph instead", filepath.Base(path))
	}

	return nil
}

// ValidateGenomeName validates a genome name for use in side files.
// Names are stored tab separated, one node per line, so tabs and line
// breaks are rejected.
func ValidateGenomeName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidInput, "genome name cannot be empty")
	}
	if len(name) > 256 {
		return New(ErrCodeInvalidInput, "genome name too long (max 256 characters)")
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "genome name %q contains control characters", name)
		}
	}
	return nil
}

// ValidateRadius validates a window radius.
func ValidateRadius(radius int) error {
	if radius < 0 {
		return New(ErrCodeInvalidInput, "radius must be non-negative, got %d", radius)
	}
	if radius > MaxRadius {
		return New(ErrCodeInvalidInput, "radius too large (max %d)", MaxRadius)
	}
	return nil
}

// ValidateNodeID validates a node id against a graph of n nodes.
func ValidateNodeID(id, n int) error {
	if id < 0 || id >= n {
		return New(ErrCodeOutOfRange, "node %d out of range [0, %d)", id, n)
	}
	return nil
}
