package app

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndexWritesOnlyOnChange(t *testing.T) {
	service := newTestService(t)
	output := filepath.Join(t.TempDir(), "registry.yaml")
	req := IndexRequest{Source: fixtureSource(), Output: output}

	first, err := service.Index(t.Context(), req)
	require.NoError(t, err)
	assert.True(t, first.Changed)
	assert.Equal(t, output, first.OutputPath)
	assert.Equal(t, 3, first.Index.Summary.Modules)
	assert.Equal(t, 5, first.Index.Summary.ModuleVersions)

	info, err := os.Stat(output)
	require.NoError(t, err)
	before := info.ModTime()

	second, err := service.Index(t.Context(), req)
	require.NoError(t, err)
	assert.False(t, second.Changed)
	assert.Equal(t, first.Index.Metadata.Digest, second.Index.Metadata.Digest)
	info, err = os.Stat(output)
	require.NoError(t, err)
	assert.Equal(t, before, info.ModTime())
}

func TestIndexDefaultsToRegistryRoot(t *testing.T) {
	root := copyFixture(t)
	result, err := newTestService(t).Index(t.Context(), IndexRequest{Source: SourceOptions{Root: root}})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, DefaultIndexFile), result.OutputPath)
	require.FileExists(t, result.OutputPath)
}

func TestIndexRequiresOutputForRemote(t *testing.T) {
	_, err := newTestService(t).Index(t.Context(), IndexRequest{Source: SourceOptions{RegistryURL: "http://registry.invalid"}})
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeInvalidArgument, errbuilder.CodeOf(err))
}

func TestIndexValidationGate(t *testing.T) {
	root := copyFixture(t)
	writeDoc(t, root, "modules/broken.yaml", `apiVersion: registry.forge.dev/v1
kind: Module
metadata:
  name: broken
  version: not-a-version
  owner: team-x
components:
  primary: []
`)
	service := newTestService(t)
	output := filepath.Join(t.TempDir(), "registry.yaml")

	result, err := service.Index(t.Context(), IndexRequest{Source: SourceOptions{Root: root}, Output: output})
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeInvalidArgument, errbuilder.CodeOf(err))
	assert.Positive(t, result.Report.Errors())
	assert.NoFileExists(t, output)

	result, err = service.Index(t.Context(), IndexRequest{Source: SourceOptions{Root: root}, Output: output, SkipValidate: true})
	require.NoError(t, err)
	assert.Positive(t, result.Report.Errors())
	require.FileExists(t, output)
}

func TestWatchIndexRejectsRemote(t *testing.T) {
	err := newTestService(t).WatchIndex(t.Context(), IndexRequest{
		Source: SourceOptions{RegistryURL: "http://registry.invalid"},
		Output: filepath.Join(t.TempDir(), "registry.yaml"),
	}, func(IndexResult, error) {})
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeInvalidArgument, errbuilder.CodeOf(err))
}

func TestWatchIndexRegenerates(t *testing.T) {
	root := copyFixture(t)
	service := newTestService(t)
	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	var mu sync.Mutex
	var results []IndexResult
	done := make(chan error, 1)
	go func() {
		done <- service.WatchIndex(ctx, IndexRequest{Source: SourceOptions{Root: root}}, func(result IndexResult, err error) {
			if err != nil {
				return
			}
			mu.Lock()
			results = append(results, result)
			mu.Unlock()
		})
	}()
	count := func() int {
		mu.Lock()
		defer mu.Unlock()
		return len(results)
	}
	require.Eventually(t, func() bool { return count() >= 1 }, 5*time.Second, 20*time.Millisecond)

	require.Eventually(t, func() bool {
		writeDoc(t, root, "modules/payments/2.3.0/module.yaml", readFixture(t, "modules/payments/2.3.0/module.yaml")+"  # touched\n")
		mu.Lock()
		defer mu.Unlock()
		return len(results) >= 2
	}, 5*time.Second, 100*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop after cancel")
	}
}

func readFixture(t *testing.T, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(fixtureRoot, filepath.FromSlash(rel)))
	require.NoError(t, err)
	return string(data)
}
