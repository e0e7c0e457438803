// SPDX-License-Identifier: GPL-3.0-only

package preset

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// ChangeHandler is called with the reloaded presets after the file changes.
type ChangeHandler func(Presets)

// Watcher reloads the presets file whenever it is written or replaced.
type Watcher struct {
	watcher  *fsnotify.Watcher
	path     string
	onChange ChangeHandler
}

// NewWatcher starts watching the directory containing path. The directory is
// created if needed, since Save replaces the file by renaming into it.
func NewWatcher(path string, onChange ChangeHandler) (*Watcher, error) {
	path = filepath.Clean(path)
	dir := filepath.Dir(path)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	return &Watcher{watcher: watcher, path: path, onChange: onChange}, nil
}

// Run dispatches change events until ctx is cancelled or the watcher is
// closed.
func (w *Watcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Warn().Err(err).Msg("Presets watcher error")
		}
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != w.path {
		return
	}
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return
	}

	presets, err := Load(w.path)
	if err != nil {
		log.Error().Err(err).Str("path", w.path).Msg("Failed to reload presets")
		return
	}

	log.Info().Str("path", w.path).Msg("Presets reloaded")
	if w.onChange != nil {
		w.onChange(presets)
	}
}
