package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var fixtureRoot = filepath.Join("..", "..", "fixtures", "registry")

var fixedTime = time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) Service {
	t.Helper()
	service, err := NewService()
	require.NoError(t, err)
	service.Clock = func() time.Time { return fixedTime }
	service.WatchDebounce = 50 * time.Millisecond
	return service
}

func fixtureSource() SourceOptions {
	return SourceOptions{Root: fixtureRoot}
}

// copyFixture returns a writable copy of the sample registry.
func copyFixture(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.CopyFS(root, os.DirFS(fixtureRoot)))
	return root
}

func writeDoc(t *testing.T, root string, rel string, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}
