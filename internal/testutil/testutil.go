// Package testutil provides test-only helpers shared across the
// pipeline's packages: locating the project root and its testdata
// directory, and generating synthetic RGBA images so integration tests
// don't depend on checked-in sample photos.
package testutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

// GetProjectRoot returns the module's root directory by walking up from
// this file's own location until it finds a go.mod.
func GetProjectRoot() (string, error) {
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		return "", errors.New("testutil: failed to get caller information")
	}
	dir := filepath.Dir(filename)

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("testutil: could not find go.mod above %s", filepath.Dir(filename))
		}
		dir = parent
	}
}

// GetTestDataDir returns the path to the module's testdata directory.
func GetTestDataDir(t *testing.T) string {
	t.Helper()
	root, err := GetProjectRoot()
	require.NoError(t, err, "failed to find project root")
	return filepath.Join(root, "testdata")
}

// GetFixturesDir returns the path to the testdata fixtures directory.
func GetFixturesDir(t *testing.T) string {
	t.Helper()
	return filepath.Join(GetTestDataDir(t), "fixtures")
}

// EnsureDir creates a directory (and its parents) if it doesn't exist.
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0o750)
}

// FileExists reports whether path exists.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
