package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

const (
	// Scheme is the only connection descriptor scheme Momentum recognizes.
	Scheme = "sqlite"

	// DefaultDBFile is the database path used when the configuration names none.
	DefaultDBFile = "data/momentum.db"
)

// Resolver turns connection descriptors into absolute filesystem paths.
// Getwd is consulted only for relative paths; nil means os.Getwd.
type Resolver struct {
	Getwd func() (string, error)
}

// ResolvePath resolves descriptor against the process working directory.
func ResolvePath(descriptor string) (string, error) {
	return Resolver{}.Resolve(descriptor)
}

// Resolve strips the "sqlite:" or "sqlite://" prefix from descriptor and
// returns an absolute path. Relative paths are joined with the working directory.
func (r Resolver) Resolve(descriptor string) (string, error) {
	p := StripScheme(descriptor)
	if filepath.IsAbs(p) {
		return p, nil
	}

	getwd := r.Getwd
	if getwd == nil {
		getwd = os.Getwd
	}
	wd, err := getwd()
	if err != nil {
		return "", fmt.Errorf("%w: determining working directory: %w", ErrEnvironment, err)
	}
	return filepath.Join(wd, p), nil
}

// StripScheme removes the scheme prefix and an empty "//" authority marker.
// A descriptor with no prefix is returned unchanged.
func StripScheme(descriptor string) string {
	p := strings.TrimPrefix(descriptor, Scheme+":")
	return strings.TrimPrefix(p, "//")
}

// CanonicalURL returns the path-only form of the connection string for path.
func CanonicalURL(path string) string {
	return Scheme + ":" + path
}

// CheckExists reports whether the database file at dbPath is present.
// A directory at dbPath is an ErrFilesystem error.
func CheckExists(dbPath string) (bool, error) {
	info, err := os.Stat(dbPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("%w: checking database file %s: %w", ErrFilesystem, dbPath, err)
	case info.IsDir():
		return false, fmt.Errorf("%w: database path is a directory: %s", ErrFilesystem, dbPath)
	}
	return true, nil
}
