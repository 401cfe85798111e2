// Package diskhost is a handle-based host over a FileSystem. Pickers are
// answered by a Chooser, so the host works in scripts and terminals.
package diskhost

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"sync"

	"github.com/stackvity/fsaccess/internal/filesystem"
	"github.com/stackvity/fsaccess/internal/fserrors"
	"github.com/stackvity/fsaccess/internal/handle"
	"github.com/stackvity/fsaccess/internal/modern"
	"github.com/stackvity/fsaccess/internal/worker"
)

// Well-known start locations map to these directories below the root.
var wellKnownDirs = map[string]string{
	handle.StartInDesktop:   "Desktop",
	handle.StartInDocuments: "Documents",
	handle.StartInDownloads: "Downloads",
	handle.StartInMusic:     "Music",
	handle.StartInPictures:  "Pictures",
	handle.StartInVideos:    "Videos",
}

// Config tunes a Host.
type Config struct {
	// Root confines every path the host hands out. Defaults to "/".
	Root string
	// ReadOnly denies readwrite permission and writable creation.
	ReadOnly bool
	// TypeOverrides maps extensions to media types for GetFile.
	TypeOverrides map[string]string
	// Concurrency bounds parallel reads.
	Concurrency int
}

// Host implements modern.Host.
type Host struct {
	fs       filesystem.FileSystem
	chooser  Chooser
	loader   *worker.Loader
	logger   *slog.Logger
	root     string
	readOnly bool

	mu         sync.Mutex
	remembered map[string]string
}

var _ modern.Host = (*Host)(nil)

// New creates a Host. A nil logger discards output.
func New(fsys filesystem.FileSystem, chooser Chooser, logger *slog.Logger, cfg Config) *Host {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	root := cfg.Root
	if root == "" {
		root = "/"
	}
	return &Host{
		fs:         fsys,
		chooser:    chooser,
		loader:     worker.NewLoader(fsys, logger, cfg.TypeOverrides, cfg.Concurrency),
		logger:     logger,
		root:       path.Clean(root),
		readOnly:   cfg.ReadOnly,
		remembered: make(map[string]string),
	}
}

// resolve maps a chooser answer to a storage path that cannot leave the root.
func (h *Host) resolve(p string) string {
	return path.Join(h.root, path.Clean("/"+p))
}

// display is the inverse of resolve.
func (h *Host) display(full string) string {
	if full == h.root {
		return "/"
	}
	if h.root == "/" {
		return full
	}
	return full[len(h.root):]
}

// FileHandle returns a handle for p below the root without showing a picker,
// the way a handle stored by an earlier session is restored. A handle for a
// missing file is stale.
func (h *Host) FileHandle(p string) handle.FileHandle {
	return &fileHandle{host: h, path: h.resolve(p)}
}

// startDir picks where a picker opens: the start handle, then the well-known
// directory, then the directory remembered for id, then the root.
func (h *Host) startDir(id string, start handle.StartIn) string {
	if start.Handle != nil {
		switch sh := start.Handle.(type) {
		case *dirHandle:
			return sh.path
		case *fileHandle:
			return path.Dir(sh.path)
		}
	}
	if dir, ok := wellKnownDirs[start.WellKnown]; ok {
		return path.Join(h.root, dir)
	}
	if id != "" {
		h.mu.Lock()
		defer h.mu.Unlock()
		if dir, ok := h.remembered[id]; ok {
			return dir
		}
	}
	return h.root
}

func (h *Host) remember(id, dir string) {
	if id == "" {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.remembered[id] = dir
}

func (h *Host) choose(ctx context.Context, p Prompt) ([]string, error) {
	answers, err := h.chooser.Choose(ctx, p)
	if err != nil {
		return nil, err
	}
	if len(answers) == 0 {
		return nil, fserrors.ErrAborted
	}
	return answers, nil
}

// ShowOpenFilePicker asks the chooser for files below the root. Directories
// are refused, and with ExcludeAcceptAllOption so is any file whose type or
// extension no accept group lists.
func (h *Host) ShowOpenFilePicker(ctx context.Context, opts modern.OpenFilePickerOptions) ([]handle.FileHandle, error) {
	if err := validateAccept(opts.Types, opts.ExcludeAcceptAllOption); err != nil {
		return nil, err
	}
	answers, err := h.choose(ctx, Prompt{
		Kind:     PickOpen,
		StartDir: h.display(h.startDir(opts.ID, opts.StartIn)),
		Multiple: opts.Multiple,
		Accept:   opts.Types,
	})
	if err != nil {
		return nil, err
	}
	if !opts.Multiple {
		answers = answers[:1]
	}

	handles := make([]handle.FileHandle, 0, len(answers))
	for _, a := range answers {
		full := h.resolve(a)
		info, err := h.fs.Stat(full)
		if err != nil {
			return nil, err
		}
		if info.IsDir() {
			return nil, fmt.Errorf("'%s' is a directory, not a file", a)
		}
		if opts.ExcludeAcceptAllOption && !accepts(opts.Types, info.Name(), worker.DetectType(full, nil, h.loader.TypeOverrides)) {
			return nil, fmt.Errorf("%w: '%s' is not an accepted type", ErrTypeMismatch, a)
		}
		handles = append(handles, &fileHandle{host: h, path: full})
	}
	h.remember(opts.ID, path.Dir(h.resolve(answers[0])))
	h.logger.Debug("Open picker answered", "files", len(handles), "id", opts.ID)
	return handles, nil
}

// ShowSaveFilePicker asks the chooser for a target. Answering with a
// directory saves under the suggested name inside it. The file is not
// created until a writable on the returned handle is closed.
func (h *Host) ShowSaveFilePicker(ctx context.Context, opts modern.SaveFilePickerOptions) (handle.FileHandle, error) {
	if err := validateAccept(opts.Types, opts.ExcludeAcceptAllOption); err != nil {
		return nil, err
	}
	if h.readOnly {
		return nil, ErrNotAllowed
	}
	start := h.startDir(opts.ID, opts.StartIn)
	answers, err := h.choose(ctx, Prompt{
		Kind:          PickSave,
		StartDir:      h.display(start),
		SuggestedName: opts.SuggestedName,
		Accept:        opts.Types,
	})
	if err != nil {
		return nil, err
	}

	full := h.resolve(answers[0])
	info, err := h.fs.Stat(full)
	switch {
	case err == nil && info.IsDir():
		full = path.Join(full, opts.SuggestedName)
	case err != nil && !errors.Is(err, fs.ErrNotExist):
		return nil, err
	}
	h.remember(opts.ID, path.Dir(full))
	h.logger.Debug("Save picker answered", "file", full, "id", opts.ID)
	return &fileHandle{host: h, path: full}, nil
}

// ShowDirectoryPicker asks the chooser for a directory below the root. A
// read-only host refuses readwrite mode before prompting.
func (h *Host) ShowDirectoryPicker(ctx context.Context, opts modern.DirectoryPickerOptions) (handle.DirectoryHandle, error) {
	if opts.Mode == handle.ModeReadWrite && h.readOnly {
		return nil, ErrNotAllowed
	}
	answers, err := h.choose(ctx, Prompt{
		Kind:     PickDirectory,
		StartDir: h.display(h.startDir(opts.ID, opts.StartIn)),
	})
	if err != nil {
		return nil, err
	}

	full := h.resolve(answers[0])
	info, err := h.fs.Stat(full)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: '%s'", ErrNotADirectory, answers[0])
	}
	h.remember(opts.ID, full)
	h.logger.Debug("Directory picker answered", "directory", full, "id", opts.ID)
	return &dirHandle{host: h, path: full}, nil
}

func (h *Host) permission(mode handle.Mode) handle.PermissionState {
	if mode == handle.ModeReadWrite && h.readOnly {
		return handle.PermissionDenied
	}
	return handle.PermissionGranted
}
