package adapters

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcherAdapterDebouncesDocumentChanges(t *testing.T) {
	root := registryTree(t)
	watcher := NewWatcherAdapter(NewWorkspaceAdapter(nil))
	watcher.Debounce = 50 * time.Millisecond

	ctx, cancel := context.WithCancel(t.Context())
	var calls atomic.Int32
	done := make(chan error, 1)
	go func() {
		done <- watcher.Watch(ctx, root, func(context.Context) { calls.Add(1) })
	}()

	n := 0
	assert.Eventually(t, func() bool {
		n++
		writeFile(t, root, "modules/payments/2.3.0/module.yaml", paymentsModuleYAML+fmt.Sprintf("# edit %d\n", n))
		return calls.Load() > 0
	}, 5*time.Second, 100*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop after cancel")
	}
}

func TestWatcherAdapterIgnoresNonDocuments(t *testing.T) {
	root := registryTree(t)
	watcher := NewWatcherAdapter(NewWorkspaceAdapter(nil))
	watcher.Debounce = 20 * time.Millisecond

	ctx, cancel := context.WithTimeout(t.Context(), 500*time.Millisecond)
	defer cancel()
	var calls atomic.Int32
	done := make(chan error, 1)
	go func() {
		done <- watcher.Watch(ctx, root, func(context.Context) { calls.Add(1) })
	}()

	time.Sleep(100 * time.Millisecond)
	writeFile(t, root, "README.md", "# changed\n")
	writeFile(t, root, "registry.yaml", "kind: ModuleRegistry\n")

	require.NoError(t, <-done)
	assert.Equal(t, int32(0), calls.Load())
}

func TestWatcherAdapterMissingRoot(t *testing.T) {
	err := NewWatcherAdapter(NewWorkspaceAdapter(nil)).Watch(t.Context(), t.TempDir()+"/missing", func(context.Context) {})
	require.Error(t, err)
}

func TestWatcherAdapterPicksUpNewDirectories(t *testing.T) {
	root := registryTree(t)
	watcher := NewWatcherAdapter(NewWorkspaceAdapter(nil))
	watcher.Debounce = 20 * time.Millisecond

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()
	var calls atomic.Int32
	go func() {
		_ = watcher.Watch(ctx, root, func(context.Context) { calls.Add(1) })
	}()

	n := 0
	assert.Eventually(t, func() bool {
		n++
		writeFile(t, root, fmt.Sprintf("modules/payments/2.4.%d/module.yaml", n), paymentsModuleYAML)
		return calls.Load() > 0
	}, 5*time.Second, 100*time.Millisecond)
}
