// Package testutil provides shared test helpers used across integration,
// e2e, and unit test packages.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// RepoRoot returns the absolute path to the repository root by walking
// up from the current working directory. It fails the test if the
// working directory cannot be determined.
func RepoRoot(t *testing.T) string {
	t.Helper()
	dir, err := os.Getwd()
	require.NoError(t, err)
	return filepath.Clean(filepath.Join(dir, "..", ".."))
}

// FixtureRegistry returns the absolute path of the sample registry tree
// under fixtures/registry.
func FixtureRegistry(t *testing.T) string {
	t.Helper()
	return filepath.Join(RepoRoot(t), "fixtures", "registry")
}

// CopyFixtureRegistry copies the sample registry into a fresh temporary
// directory, for tests that modify or watch the tree.
func CopyFixtureRegistry(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.CopyFS(root, os.DirFS(FixtureRegistry(t))))
	return root
}

// WriteFile writes content to rel under root, creating parent
// directories, and returns the absolute path.
func WriteFile(t *testing.T, root string, rel string, content string) string {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}
