package diskhost

import (
	"context"
	"io"
	"path"
	"strings"
	"sync"

	"go.uber.org/multierr"

	"github.com/stackvity/fsaccess/internal/blob"
	"github.com/stackvity/fsaccess/internal/filesystem"
	"github.com/stackvity/fsaccess/internal/handle"
)

// SwapSuffix marks the temporary file a writable fills before it replaces
// its target.
const SwapSuffix = ".crswap"

type fileHandle struct {
	host *Host
	path string
}

func (f *fileHandle) Kind() handle.Kind { return handle.KindFile }
func (f *fileHandle) Name() string      { return path.Base(f.path) }

// Path returns the handle's location relative to the host root.
func (f *fileHandle) Path() string { return f.host.display(f.path) }

func (f *fileHandle) IsSameEntry(_ context.Context, other handle.Handle) (bool, error) {
	o, ok := other.(*fileHandle)
	return ok && o.host == f.host && o.path == f.path, nil
}

func (f *fileHandle) QueryPermission(_ context.Context, mode handle.Mode) (handle.PermissionState, error) {
	return f.host.permission(mode), nil
}

func (f *fileHandle) RequestPermission(_ context.Context, mode handle.Mode) (handle.PermissionState, error) {
	return f.host.permission(mode), nil
}

// GetFile reads the file as it is now, so later saves are visible.
func (f *fileHandle) GetFile(ctx context.Context) (*blob.File, error) {
	return f.host.loader.Load(ctx, f.path)
}

// CreateWritable opens a swap file next to the target. Nothing is visible at
// the target until Close.
func (f *fileHandle) CreateWritable(_ context.Context, keepExisting bool) (handle.Writable, error) {
	if f.host.readOnly {
		return nil, ErrNotAllowed
	}
	fsys := f.host.fs
	if err := fsys.MkdirAll(path.Dir(f.path), 0o755); err != nil {
		return nil, err
	}

	swap := f.path + SwapSuffix
	file, err := fsys.Create(swap)
	if err != nil {
		return nil, err
	}
	w := &writable{fs: fsys, file: file, swap: swap, target: f.path}
	if keepExisting {
		existing, err := fsys.ReadFile(f.path)
		if err == nil {
			_, err = file.Write(existing)
		}
		if err != nil {
			return nil, multierr.Append(err, w.Abort())
		}
	}
	return w, nil
}

type writable struct {
	fs     filesystem.FileSystem
	file   filesystem.File
	swap   string
	target string

	mu   sync.Mutex
	done bool
}

func (w *writable) Write(p []byte) (int, error) {
	return w.file.Write(p)
}

func (w *writable) ReadFrom(r io.Reader) (int64, error) {
	return io.Copy(w.file, r)
}

func (w *writable) Truncate(size int64) error {
	return w.file.Truncate(size)
}

// Close moves the swap file over the target.
func (w *writable) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.done {
		return nil
	}
	w.done = true

	if err := w.file.Close(); err != nil {
		return multierr.Append(err, w.fs.Remove(w.swap))
	}
	if err := w.fs.Rename(w.swap, w.target); err != nil {
		return multierr.Append(err, w.fs.Remove(w.swap))
	}
	return nil
}

// Abort discards the swap file and leaves the target untouched.
func (w *writable) Abort() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.done {
		return nil
	}
	w.done = true
	return multierr.Append(w.file.Close(), w.fs.Remove(w.swap))
}

type dirHandle struct {
	host *Host
	path string
}

func (d *dirHandle) Kind() handle.Kind { return handle.KindDirectory }

// Name is empty for the storage root, which has no name of its own.
func (d *dirHandle) Name() string {
	if d.path == "/" {
		return ""
	}
	return path.Base(d.path)
}

// Path returns the handle's location relative to the host root.
func (d *dirHandle) Path() string { return d.host.display(d.path) }

func (d *dirHandle) IsSameEntry(_ context.Context, other handle.Handle) (bool, error) {
	o, ok := other.(*dirHandle)
	return ok && o.host == d.host && o.path == d.path, nil
}

func (d *dirHandle) QueryPermission(_ context.Context, mode handle.Mode) (handle.PermissionState, error) {
	return d.host.permission(mode), nil
}

func (d *dirHandle) RequestPermission(_ context.Context, mode handle.Mode) (handle.PermissionState, error) {
	return d.host.permission(mode), nil
}

// Entries lists the directory in name order. Swap files of writables still
// in progress are hidden.
func (d *dirHandle) Entries(ctx context.Context) ([]handle.Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dirEntries, err := d.host.fs.ReadDir(d.path)
	if err != nil {
		return nil, err
	}
	entries := make([]handle.Handle, 0, len(dirEntries))
	for _, e := range dirEntries {
		p := path.Join(d.path, e.Name())
		switch {
		case e.IsDir():
			entries = append(entries, &dirHandle{host: d.host, path: p})
		case strings.HasSuffix(e.Name(), SwapSuffix):
			continue
		default:
			entries = append(entries, &fileHandle{host: d.host, path: p})
		}
	}
	return entries, nil
}
