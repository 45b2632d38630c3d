package adapters

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"

	"github.com/liquid-forge/forge-architecture/internal/ports"
)

const DefaultWatchDebounce = 300 * time.Millisecond

// WatcherAdapter watches a registry tree with fsnotify and calls back once
// a burst of changes has settled.
type WatcherAdapter struct {
	Debounce time.Duration
	// Filter reports whether a slash path relative to the root is a
	// registry document. Nil accepts every file.
	Filter func(rel string) bool
}

func NewWatcherAdapter(workspace WorkspaceAdapter) WatcherAdapter {
	return WatcherAdapter{
		Debounce: DefaultWatchDebounce,
		Filter:   workspace.matches,
	}
}

func (a WatcherAdapter) Watch(ctx context.Context, root string, onChange func(context.Context)) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to start file watcher").
			WithCause(err)
	}
	defer fsw.Close()

	if err := addWatchesRecursive(ctx, fsw, root); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg("failed to watch registry root").
			WithCause(err)
	}
	debounce := a.Debounce
	if debounce <= 0 {
		debounce = DefaultWatchDebounce
	}
	logger := log.Ctx(ctx)
	logger.Info().Str("root", root).Dur("debounce", debounce).Msg("watching registry")

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			newDir := false
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := addWatchesRecursive(ctx, fsw, event.Name); err != nil {
						logger.Warn().Err(err).Str("path", event.Name).Msg("failed to watch new directory")
					}
					// Files written before the watch was added produce no
					// events of their own.
					newDir = true
				}
			}
			rel, err := filepath.Rel(root, event.Name)
			if err != nil {
				continue
			}
			rel = filepath.ToSlash(rel)
			if !newDir && a.Filter != nil && !a.Filter(rel) {
				continue
			}
			logger.Debug().Str("path", rel).Str("op", event.Op.String()).Msg("document change detected")
			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(debounce)
			fire = timer.C
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			logger.Warn().Err(err).Msg("watcher error")
		case <-fire:
			fire = nil
			onChange(ctx)
		}
	}
}

// addWatchesRecursive registers dir and its subdirectories; fsnotify
// watches are not recursive.
func addWatchesRecursive(ctx context.Context, fsw *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && shouldSkipWorkspaceDir(d.Name()) {
			return filepath.SkipDir
		}
		if err := fsw.Add(path); err != nil {
			log.Ctx(ctx).Warn().Err(err).Str("path", path).Msg("failed to watch directory")
		}
		return nil
	})
}

var _ ports.WatcherPort = WatcherAdapter{}
