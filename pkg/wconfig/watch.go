package wconfig

import (
	"context"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/wright-pm/wright/pkg/werr"
)

// ExecutorWatcher watches an executors directory and debounces reload
// calls so a long-running process picks up new/changed *.toml executor
// definitions without a restart, mirroring the policy loader's
// debounced fsnotify pattern.
type ExecutorWatcher struct {
	watcher *fsnotify.Watcher
}

// WatchExecutors starts watching dir and calls reload (debounced by 500ms)
// whenever a *.toml file is created or written. The returned watcher must
// be stopped with Close. ctx cancellation also stops the watch loop.
func WatchExecutors(ctx context.Context, dir string, reload func() error) (*ExecutorWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, werr.New(werr.KindCritical, "failed to create executors watcher", err)
	}
	if err := w.Add(dir); err != nil {
		_ = w.Close()
		return nil, werr.New(werr.KindValidation, "failed to watch executors directory "+dir, err)
	}

	go func() {
		var timer *time.Timer
		const debounce = 500 * time.Millisecond
		for {
			select {
			case <-ctx.Done():
				_ = w.Close()
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 || !strings.HasSuffix(ev.Name, ".toml") {
					continue
				}
				if timer != nil {
					timer.Stop()
				}
				timer = time.AfterFunc(debounce, func() { _ = reload() })
			case _, ok := <-w.Errors:
				if !ok {
					return
				}
			}
		}
	}()

	return &ExecutorWatcher{watcher: w}, nil
}

// Close stops the watch loop.
func (w *ExecutorWatcher) Close() error {
	return w.watcher.Close()
}
