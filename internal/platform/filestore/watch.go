package filestore

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch reports changes to the store's file until ctx is done. Each receive
// on the returned channel means the file was written, created, renamed or
// removed at least once since the previous receive; bursts are coalesced.
// The channel is closed when watching stops.
//
// Writes made through this Store are reported too. Callers compare integrity
// tags to tell their own commits from external edits.
func (s *Store) Watch(ctx context.Context) (<-chan struct{}, error) {
	if !s.isOsFs() {
		return nil, ErrWatchUnsupported
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}

	// The directory is watched rather than the file: atomic writes replace
	// the file's inode, which would silently end a watch on the file itself.
	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(s.path), err)
	}

	changes := make(chan struct{}, 1)
	go s.watchLoop(ctx, watcher, changes)
	return changes, nil
}

func (s *Store) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, changes chan<- struct{}) {
	defer close(changes)
	defer func() { _ = watcher.Close() }()

	const relevant = fsnotify.Write | fsnotify.Create | fsnotify.Rename | fsnotify.Remove

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != s.path || event.Op&relevant == 0 {
				continue
			}
			s.logger.Debug("file change observed", slog.String("op", event.Op.String()))
			select {
			case changes <- struct{}{}:
			default:
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			s.logger.Warn("watch error", slog.String("error", err.Error()))

		case <-ctx.Done():
			return
		}
	}
}
