// Package inbox is a handle-less host for terminals and scripts. A selection
// is made by dropping files into an inbox directory after the picker opens,
// and downloads land in a downloads directory.
package inbox

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/stackvity/fsaccess/internal/blob"
	"github.com/stackvity/fsaccess/internal/cache"
	"github.com/stackvity/fsaccess/internal/filesystem"
	"github.com/stackvity/fsaccess/internal/legacy"
	"github.com/stackvity/fsaccess/internal/worker"
)

// CancelMarker dropped into the inbox dismisses the open picker on hosts
// configured with NativeCancel.
const CancelMarker = ".cancel"

// DefaultSettleDelay is how long the inbox must stay quiet before a
// selection is read.
const DefaultSettleDelay = 300 * time.Millisecond

// Config tunes a Host. Inbox and Downloads are OS paths.
type Config struct {
	Inbox     string
	Downloads string
	// SettleDelay debounces inbox changes. Zero means DefaultSettleDelay.
	SettleDelay time.Duration
	// NativeCancel makes inputs report dismissal through CancelMarker.
	NativeCancel  bool
	Concurrency   int
	TypeOverrides map[string]string
}

// Host implements legacy.Host on top of an OS-backed FileSystem.
type Host struct {
	fs       filesystem.FileSystem
	loader   *worker.Loader
	registry *cache.Registry
	logger   *slog.Logger
	cfg      Config

	saveMu sync.Mutex

	mu        sync.Mutex
	nextID    uint64
	listeners map[string]map[uint64]func()
	watchers  int
	downloads []string
}

var _ legacy.Host = (*Host)(nil)

// New creates a Host. fsys must address the same paths fsnotify watches, so
// it is normally filesystem.NewRealFileSystem(). A nil logger discards output.
func New(fsys filesystem.FileSystem, logger *slog.Logger, cfg Config) (*Host, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Inbox == "" {
		return nil, fmt.Errorf("inbox directory is required")
	}
	if cfg.Downloads == "" {
		return nil, fmt.Errorf("downloads directory is required")
	}
	if cfg.SettleDelay <= 0 {
		cfg.SettleDelay = DefaultSettleDelay
	}
	cfg.Inbox = filepath.Clean(cfg.Inbox)
	cfg.Downloads = filepath.Clean(cfg.Downloads)
	for _, dir := range []string{cfg.Inbox, cfg.Downloads} {
		if err := fsys.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory '%s': %w", dir, err)
		}
	}
	return &Host{
		fs:        fsys,
		loader:    worker.NewLoader(fsys, logger, cfg.TypeOverrides, cfg.Concurrency),
		registry:  cache.NewRegistry("inbox", logger),
		logger:    logger,
		cfg:       cfg,
		listeners: make(map[string]map[uint64]func()),
	}, nil
}

// CreateInput returns a detached selection control bound to the inbox.
func (h *Host) CreateInput() legacy.Input { return &input{h: h} }

// CreateAnchor returns a download link that saves into the downloads
// directory.
func (h *Host) CreateAnchor() legacy.Anchor { return &anchor{h: h} }

// CreateObjectURL registers b under a fresh blob: URL that anchors can save.
func (h *Host) CreateObjectURL(b blob.Blob) string { return h.registry.Put(b) }

// RevokeObjectURL forgets url. Anchors clicked afterwards save nothing.
func (h *Host) RevokeObjectURL(url string) { h.registry.Revoke(url) }

// LiveURLs is the number of object URLs not yet revoked.
func (h *Host) LiveURLs() int { return h.registry.Len() }

// AddEventListener subscribes to events delivered by Dispatch.
func (h *Host) AddEventListener(event string, listener func()) func() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	id := h.nextID
	if h.listeners[event] == nil {
		h.listeners[event] = make(map[uint64]func())
	}
	h.listeners[event][id] = listener
	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.listeners[event], id)
	}
}

func (h *Host) AfterFunc(d time.Duration, f func()) func() bool {
	return time.AfterFunc(d, f).Stop
}

// SupportsCancelEvent reports whether a cancel marker dropped into the inbox
// dismisses the selection.
func (h *Host) SupportsCancelEvent() bool { return h.cfg.NativeCancel }

// Dispatch delivers a page event to every listener registered for it.
func (h *Host) Dispatch(event string) {
	h.mu.Lock()
	fns := make([]func(), 0, len(h.listeners[event]))
	for _, fn := range h.listeners[event] {
		fns = append(fns, fn)
	}
	h.mu.Unlock()

	h.logger.Debug("Dispatching page event", "event", event, "listeners", len(fns))
	for _, fn := range fns {
		fn()
	}
}

// ForwardInteractions dispatches a keydown for every line read from r. It
// returns at EOF, or with the context error once ctx is done and a line
// arrives.
func (h *Host) ForwardInteractions(ctx context.Context, r io.Reader) error {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		h.Dispatch(legacy.EventKeyDown)
	}
	return sc.Err()
}

// Watching reports whether a clicked input is waiting for a selection.
func (h *Host) Watching() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.watchers > 0
}

// Downloads lists the paths written by anchor clicks, oldest first.
func (h *Host) Downloads() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.downloads...)
}

func (h *Host) watchStarted() {
	h.mu.Lock()
	h.watchers++
	h.mu.Unlock()
}

func (h *Host) watchStopped() {
	h.mu.Lock()
	h.watchers--
	h.mu.Unlock()
}

func hidden(name string) bool { return strings.HasPrefix(name, ".") }
