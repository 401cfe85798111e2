package modern

import (
	"bytes"
	"context"
	"errors"
	"io"
	"io/fs"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/stackvity/fsaccess/internal/blob"
	"github.com/stackvity/fsaccess/internal/handle"
)

// memStore is a tiny path -> bytes store backing the fake handles.
type memStore struct {
	mu     sync.Mutex
	files  map[string][]byte
	writes map[string]int
}

func newMemStore(files map[string]string) *memStore {
	s := &memStore{files: make(map[string][]byte), writes: make(map[string]int)}
	for p, c := range files {
		s.files[p] = []byte(c)
	}
	return s
}

func (s *memStore) get(p string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.files[p]
	return d, ok
}

func (s *memStore) put(p string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[p] = data
	s.writes[p]++
}

func (s *memStore) remove(p string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.files, p)
}

func (s *memStore) writeCount(p string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes[p]
}

// children returns the direct children of dir, files and directories, sorted.
func (s *memStore) children(dir string) (files, dirs []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seenDirs := map[string]bool{}
	for p := range s.files {
		if !strings.HasPrefix(p, dir+"/") {
			continue
		}
		rest := strings.TrimPrefix(p, dir+"/")
		if i := strings.Index(rest, "/"); i >= 0 {
			seenDirs[dir+"/"+rest[:i]] = true
		} else {
			files = append(files, p)
		}
	}
	for d := range seenDirs {
		dirs = append(dirs, d)
	}
	sort.Strings(files)
	sort.Strings(dirs)
	return files, dirs
}

type fakeFileHandle struct {
	store *memStore
	path  string
	// failWrite makes the writable reject data.
	failWrite error
	aborted   bool
	streamed  bool
}

func (h *fakeFileHandle) Kind() handle.Kind { return handle.KindFile }
func (h *fakeFileHandle) Name() string      { return path.Base(h.path) }

func (h *fakeFileHandle) IsSameEntry(_ context.Context, other handle.Handle) (bool, error) {
	o, ok := other.(*fakeFileHandle)
	return ok && o.store == h.store && o.path == h.path, nil
}

func (h *fakeFileHandle) QueryPermission(context.Context, handle.Mode) (handle.PermissionState, error) {
	return handle.PermissionGranted, nil
}

func (h *fakeFileHandle) RequestPermission(context.Context, handle.Mode) (handle.PermissionState, error) {
	return handle.PermissionGranted, nil
}

func (h *fakeFileHandle) GetFile(context.Context) (*blob.File, error) {
	data, ok := h.store.get(h.path)
	if !ok {
		return nil, &fs.PathError{Op: "getFile", Path: h.path, Err: fs.ErrNotExist}
	}
	return blob.NewFile(h.Name(), data, "text/plain", time.Unix(0, 0)), nil
}

func (h *fakeFileHandle) CreateWritable(context.Context, bool) (handle.Writable, error) {
	return &fakeWritable{h: h}, nil
}

type fakeWritable struct {
	h   *fakeFileHandle
	buf bytes.Buffer
}

func (w *fakeWritable) Write(p []byte) (int, error) {
	if w.h.failWrite != nil {
		return 0, w.h.failWrite
	}
	return w.buf.Write(p)
}

func (w *fakeWritable) ReadFrom(r io.Reader) (int64, error) {
	w.h.streamed = true
	if w.h.failWrite != nil {
		return 0, w.h.failWrite
	}
	return w.buf.ReadFrom(r)
}

func (w *fakeWritable) Truncate(size int64) error {
	w.buf.Truncate(int(size))
	return nil
}

func (w *fakeWritable) Close() error {
	w.h.store.put(w.h.path, w.buf.Bytes())
	return nil
}

func (w *fakeWritable) Abort() error {
	w.h.aborted = true
	return nil
}

type fakeDirHandle struct {
	store *memStore
	path  string
	// entriesErr is returned by Entries when set.
	entriesErr error
}

func (d *fakeDirHandle) Kind() handle.Kind { return handle.KindDirectory }
func (d *fakeDirHandle) Name() string      { return path.Base(d.path) }

func (d *fakeDirHandle) IsSameEntry(_ context.Context, other handle.Handle) (bool, error) {
	o, ok := other.(*fakeDirHandle)
	return ok && o.path == d.path, nil
}

func (d *fakeDirHandle) QueryPermission(context.Context, handle.Mode) (handle.PermissionState, error) {
	return handle.PermissionGranted, nil
}

func (d *fakeDirHandle) RequestPermission(context.Context, handle.Mode) (handle.PermissionState, error) {
	return handle.PermissionGranted, nil
}

func (d *fakeDirHandle) Entries(context.Context) ([]handle.Handle, error) {
	if d.entriesErr != nil {
		return nil, d.entriesErr
	}
	files, dirs := d.store.children(d.path)
	var out []handle.Handle
	for _, f := range files {
		out = append(out, &fakeFileHandle{store: d.store, path: f})
	}
	for _, sub := range dirs {
		out = append(out, &fakeDirHandle{store: d.store, path: sub})
	}
	return out, nil
}

// fakeHost records picker calls and answers with preset handles.
type fakeHost struct {
	mu sync.Mutex

	openHandles []handle.FileHandle
	openErr     error
	openCalls   int
	openOpts    OpenFilePickerOptions

	saveHandle handle.FileHandle
	saveErr    error
	saveCalls  int
	saveOpts   SaveFilePickerOptions

	dir      handle.DirectoryHandle
	dirErr   error
	dirCalls int
	dirOpts  DirectoryPickerOptions
}

func (h *fakeHost) ShowOpenFilePicker(_ context.Context, opts OpenFilePickerOptions) ([]handle.FileHandle, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.openCalls++
	h.openOpts = opts
	return h.openHandles, h.openErr
}

func (h *fakeHost) ShowSaveFilePicker(_ context.Context, opts SaveFilePickerOptions) (handle.FileHandle, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.saveCalls++
	h.saveOpts = opts
	if h.saveErr != nil {
		return nil, h.saveErr
	}
	if h.saveHandle == nil {
		return nil, errors.New("no save handle configured")
	}
	return h.saveHandle, nil
}

func (h *fakeHost) ShowDirectoryPicker(_ context.Context, opts DirectoryPickerOptions) (handle.DirectoryHandle, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dirCalls++
	h.dirOpts = opts
	if h.dirErr != nil {
		return nil, h.dirErr
	}
	return h.dir, nil
}
