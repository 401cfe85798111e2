package inbox

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/stackvity/fsaccess/internal/blob"
)

var errWatcherClosed = errors.New("inbox watcher closed unexpectedly")

type input struct {
	h *Host

	mu        sync.Mutex
	accept    string
	multiple  bool
	directory bool
	onChange  func([]*blob.File)
	onCancel  func()
	onError   func(error)
	stop      context.CancelFunc
	done      chan struct{}
}

func (in *input) SetAccept(accept string) { in.mu.Lock(); in.accept = accept; in.mu.Unlock() }
func (in *input) SetMultiple(m bool)      { in.mu.Lock(); in.multiple = m; in.mu.Unlock() }
func (in *input) SetDirectory(d bool)     { in.mu.Lock(); in.directory = d; in.mu.Unlock() }

func (in *input) OnChange(f func([]*blob.File)) { in.mu.Lock(); in.onChange = f; in.mu.Unlock() }
func (in *input) OnCancel(f func())             { in.mu.Lock(); in.onCancel = f; in.mu.Unlock() }
func (in *input) OnError(f func(error))         { in.mu.Lock(); in.onError = f; in.mu.Unlock() }

func (in *input) Attach() {}

// Detach stops watching and waits for the watch loop to exit.
func (in *input) Detach() {
	in.mu.Lock()
	stop, done := in.stop, in.done
	in.stop = nil
	in.mu.Unlock()
	if stop == nil {
		return
	}
	stop()
	<-done
}

// Click snapshots the inbox and starts watching it. Only entries whose names
// were absent at the snapshot count toward the selection.
func (in *input) Click() error {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.stop != nil {
		return nil
	}
	h := in.h

	snapshot, err := in.snapshot()
	if err != nil {
		return fmt.Errorf("failed to read inbox '%s': %w", h.cfg.Inbox, err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create inbox watcher: %w", err)
	}
	if err := watcher.Add(h.cfg.Inbox); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch inbox '%s': %w", h.cfg.Inbox, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	in.stop = cancel
	in.done = make(chan struct{})
	h.watchStarted()
	h.logger.Info("Waiting for a selection", "inbox", h.cfg.Inbox, "directory", in.directory, "multiple", in.multiple, "accept", in.accept)

	go func() {
		defer close(in.done)
		defer h.watchStopped()
		defer watcher.Close()
		in.watch(ctx, watcher, snapshot)
	}()
	return nil
}

func (in *input) snapshot() (map[string]struct{}, error) {
	entries, err := in.h.fs.ReadDir(in.h.cfg.Inbox)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		seen[e.Name()] = struct{}{}
	}
	return seen, nil
}

// watch debounces inbox events and settles the input once a selection or a
// cancel marker is present. A failure to read the inbox or the selection, or
// a closed watcher, is reported through the error callback and ends the
// watch.
func (in *input) watch(ctx context.Context, watcher *fsnotify.Watcher, snapshot map[string]struct{}) {
	h := in.h
	var debounceTimer *time.Timer
	settle := make(chan struct{}, 1)
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			h.logger.Debug("Inbox watch stopped")
			return

		case event, ok := <-watcher.Events:
			if !ok {
				in.fail(errWatcherClosed)
				return
			}
			h.logger.Debug("Inbox event received", "event", event.String())
			if event.Has(fsnotify.Create) {
				in.watchNewDir(watcher, event.Name)
			}
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(h.cfg.SettleDelay, func() {
				select {
				case settle <- struct{}{}:
				default:
				}
			})

		case <-settle:
			done, err := in.settle(ctx, snapshot)
			if ctx.Err() != nil {
				return
			}
			if err != nil {
				in.fail(err)
				return
			}
			if done {
				return
			}
			h.logger.Debug("Inbox settled without a selection, still waiting")

		case err, ok := <-watcher.Errors:
			if !ok {
				in.fail(errWatcherClosed)
				return
			}
			h.logger.Error("Inbox watcher error, attempting to continue", "error", err)
		}
	}
}

func (in *input) fail(err error) {
	in.h.logger.Error("Inbox selection failed", "inbox", in.h.cfg.Inbox, "error", err)
	in.mu.Lock()
	onError := in.onError
	in.mu.Unlock()
	if onError != nil {
		onError(err)
	}
}

// watchNewDir adds a created directory and its subdirectories to the watcher
// so files copied into it keep resetting the debounce.
func (in *input) watchNewDir(watcher *fsnotify.Watcher, path string) {
	info, err := in.h.fs.Stat(path)
	if err != nil || !info.IsDir() {
		return
	}
	walkErr := in.h.fs.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if addErr := watcher.Add(p); addErr != nil {
				in.h.logger.Warn("Failed to add directory to inbox watcher", "path", p, "error", addErr)
			}
		}
		return nil
	})
	if walkErr != nil {
		in.h.logger.Warn("Failed to walk new inbox directory", "path", path, "error", walkErr)
	}
}

// settle reads the current selection and reports whether the input has
// settled.
func (in *input) settle(ctx context.Context, snapshot map[string]struct{}) (bool, error) {
	h := in.h
	entries, err := h.fs.ReadDir(h.cfg.Inbox)
	if err != nil {
		return false, fmt.Errorf("failed to read inbox: %w", err)
	}

	in.mu.Lock()
	multiple, directory := in.multiple, in.directory
	onChange, onCancel := in.onChange, in.onCancel
	in.mu.Unlock()

	var fresh []fs.DirEntry
	for _, e := range entries {
		if _, old := snapshot[e.Name()]; old {
			continue
		}
		if e.Name() == CancelMarker && h.cfg.NativeCancel {
			if err := h.fs.Remove(filepath.Join(h.cfg.Inbox, CancelMarker)); err != nil {
				h.logger.Warn("Failed to remove cancel marker", "error", err)
			}
			h.logger.Info("Selection dismissed")
			if onCancel != nil {
				onCancel()
			}
			return true, nil
		}
		if hidden(e.Name()) {
			continue
		}
		fresh = append(fresh, e)
	}

	var files []*blob.File
	if directory {
		files, err = in.readDirectory(ctx, fresh)
	} else {
		files, err = in.readFiles(ctx, fresh, multiple)
	}
	if err != nil || files == nil {
		return false, err
	}

	h.logger.Info("Selection received", "count", len(files))
	if onChange != nil {
		onChange(files)
	}
	return true, nil
}

// readFiles loads the new top-level files. A nil result means none arrived.
func (in *input) readFiles(ctx context.Context, fresh []fs.DirEntry, multiple bool) ([]*blob.File, error) {
	var paths []string
	for _, e := range fresh {
		if !e.IsDir() {
			paths = append(paths, filepath.Join(in.h.cfg.Inbox, e.Name()))
		}
	}
	if len(paths) == 0 {
		return nil, nil
	}
	if !multiple {
		paths = paths[:1]
	}
	return in.h.loader.LoadAll(ctx, paths)
}

// readDirectory loads every file below the first new directory. Relative
// paths start with the directory's name. An empty directory yields an empty,
// non-nil selection.
func (in *input) readDirectory(ctx context.Context, fresh []fs.DirEntry) ([]*blob.File, error) {
	var root string
	for _, e := range fresh {
		if e.IsDir() {
			root = e.Name()
			break
		}
	}
	if root == "" {
		return nil, nil
	}

	base := filepath.Join(in.h.cfg.Inbox, root)
	var paths, rels []string
	err := in.h.fs.WalkDir(base, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p != base && hidden(d.Name()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(in.h.cfg.Inbox, p)
		if err != nil {
			return err
		}
		paths = append(paths, p)
		rels = append(rels, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk selected directory '%s': %w", base, err)
	}

	loaded, err := in.h.loader.LoadAll(ctx, paths)
	if err != nil {
		return nil, err
	}
	files := make([]*blob.File, 0, len(loaded))
	for i, f := range loaded {
		files = append(files, f.WithRelativePath(rels[i]))
	}
	return files, nil
}
