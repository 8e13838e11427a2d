// Package testutil provides small shared helpers for tests across the
// module: temp directories and a resolved config.Config rooted in one.
package testutil

import (
	"os"
	"testing"

	"github.com/cmakex/cmakex/internal/config"
)

// TempDir creates a temporary directory and returns a cleanup function.
func TempDir(t *testing.T) (string, func()) {
	t.Helper()
	dir, err := os.MkdirTemp("", "cmakex-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	return dir, func() { os.RemoveAll(dir) }
}

// NewTestConfig resolves a config.Config rooted at a fresh temporary
// binary directory.
func NewTestConfig(t *testing.T) (*config.Config, func()) {
	t.Helper()
	dir, cleanup := TempDir(t)

	cfg, err := config.Load(dir)
	if err != nil {
		cleanup()
		t.Fatalf("failed to load config: %v", err)
	}
	return cfg, cleanup
}

// FileExists checks if a file exists.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// AssertFileExists checks if a file exists at the given path.
func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if !FileExists(path) {
		t.Errorf("file does not exist: %s", path)
	}
}

// AssertFileNotExists checks if a file does NOT exist at the given path.
func AssertFileNotExists(t *testing.T, path string) {
	t.Helper()
	if FileExists(path) {
		t.Errorf("file should not exist: %s", path)
	}
}
