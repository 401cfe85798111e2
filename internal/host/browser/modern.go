//go:build js && wasm

package browser

import (
	"context"
	"errors"
	"io"
	"syscall/js"

	"github.com/stackvity/fsaccess/internal/blob"
	"github.com/stackvity/fsaccess/internal/handle"
	"github.com/stackvity/fsaccess/internal/modern"
)

// writeChunk bounds each write when a writable copies from a reader.
const writeChunk = 64 << 10

// ModernWindow is the handle based host over the page's picker functions.
type ModernWindow struct {
	global js.Value
}

var _ modern.Host = (*ModernWindow)(nil)

func NewModernWindow(global js.Value) *ModernWindow {
	return &ModernWindow{global: global}
}

func acceptTypes(types []modern.AcceptType) []any {
	out := make([]any, 0, len(types))
	for _, t := range types {
		accept := make(map[string]any, len(t.Accept))
		for mime, exts := range t.Accept {
			list := make([]any, 0, len(exts))
			for _, e := range exts {
				list = append(list, e)
			}
			accept[mime] = list
		}
		entry := map[string]any{"accept": accept}
		if t.Description != "" {
			entry["description"] = t.Description
		}
		out = append(out, entry)
	}
	return out
}

// pickerOptions fills the fields every picker shares.
func pickerOptions(id string, start handle.StartIn) map[string]any {
	o := map[string]any{}
	if id != "" {
		o["id"] = id
	}
	switch h := start.Handle.(type) {
	case *fileHandle:
		o["startIn"] = h.v
	case *dirHandle:
		o["startIn"] = h.v
	default:
		if start.WellKnown != "" {
			o["startIn"] = start.WellKnown
		}
	}
	return o
}

func (w *ModernWindow) ShowOpenFilePicker(ctx context.Context, opts modern.OpenFilePickerOptions) ([]handle.FileHandle, error) {
	o := pickerOptions(opts.ID, opts.StartIn)
	o["multiple"] = opts.Multiple
	o["excludeAcceptAllOption"] = opts.ExcludeAcceptAllOption
	if len(opts.Types) > 0 {
		o["types"] = acceptTypes(opts.Types)
	}
	arr, err := callAwait(ctx, w.global, "showOpenFilePicker", o)
	if err != nil {
		return nil, err
	}
	n := arr.Get("length").Int()
	out := make([]handle.FileHandle, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, &fileHandle{jsHandle{v: arr.Index(i)}})
	}
	return out, nil
}

func (w *ModernWindow) ShowSaveFilePicker(ctx context.Context, opts modern.SaveFilePickerOptions) (handle.FileHandle, error) {
	o := pickerOptions(opts.ID, opts.StartIn)
	o["suggestedName"] = opts.SuggestedName
	o["excludeAcceptAllOption"] = opts.ExcludeAcceptAllOption
	if len(opts.Types) > 0 {
		o["types"] = acceptTypes(opts.Types)
	}
	v, err := callAwait(ctx, w.global, "showSaveFilePicker", o)
	if err != nil {
		return nil, err
	}
	return &fileHandle{jsHandle{v: v}}, nil
}

func (w *ModernWindow) ShowDirectoryPicker(ctx context.Context, opts modern.DirectoryPickerOptions) (handle.DirectoryHandle, error) {
	o := pickerOptions(opts.ID, opts.StartIn)
	if opts.Mode != "" {
		o["mode"] = string(opts.Mode)
	}
	v, err := callAwait(ctx, w.global, "showDirectoryPicker", o)
	if err != nil {
		return nil, err
	}
	return &dirHandle{jsHandle{v: v}}, nil
}

// jsHandle holds what file and directory handles share.
type jsHandle struct {
	v js.Value
}

func (h *jsHandle) Name() string { return h.v.Get("name").String() }

func (h *jsHandle) isSameEntry(ctx context.Context, other js.Value) (bool, error) {
	res, err := callAwait(ctx, h.v, "isSameEntry", other)
	if err != nil {
		return false, err
	}
	return res.Bool(), nil
}

func (h *jsHandle) permission(ctx context.Context, method string, mode handle.Mode) (handle.PermissionState, error) {
	if h.v.Get(method).Type() != js.TypeFunction {
		return handle.PermissionGranted, nil
	}
	res, err := callAwait(ctx, h.v, method, map[string]any{"mode": string(mode)})
	if err != nil {
		return "", err
	}
	return handle.PermissionState(res.String()), nil
}

func (h *jsHandle) QueryPermission(ctx context.Context, mode handle.Mode) (handle.PermissionState, error) {
	return h.permission(ctx, "queryPermission", mode)
}

func (h *jsHandle) RequestPermission(ctx context.Context, mode handle.Mode) (handle.PermissionState, error) {
	return h.permission(ctx, "requestPermission", mode)
}

func jsValueOf(h handle.Handle) (js.Value, bool) {
	switch o := h.(type) {
	case *fileHandle:
		return o.v, true
	case *dirHandle:
		return o.v, true
	}
	return js.Undefined(), false
}

type fileHandle struct{ jsHandle }

func (f *fileHandle) Kind() handle.Kind { return handle.KindFile }

func (f *fileHandle) IsSameEntry(ctx context.Context, other handle.Handle) (bool, error) {
	v, ok := jsValueOf(other)
	if !ok {
		return false, nil
	}
	return f.isSameEntry(ctx, v)
}

func (f *fileHandle) GetFile(ctx context.Context) (*blob.File, error) {
	file, err := callAwait(ctx, f.v, "getFile")
	if err != nil {
		return nil, err
	}
	return readFile(ctx, file)
}

func (f *fileHandle) CreateWritable(ctx context.Context, keepExisting bool) (handle.Writable, error) {
	v, err := callAwait(ctx, f.v, "createWritable", map[string]any{"keepExistingData": keepExisting})
	if err != nil {
		return nil, err
	}
	return &writable{v: v}, nil
}

// writable wraps a FileSystemWritableFileStream. Its calls cannot be
// cancelled, so they run to completion.
type writable struct {
	v js.Value
}

func (w *writable) Write(p []byte) (int, error) {
	if _, err := callAwait(context.Background(), w.v, "write", toUint8Array(p)); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (w *writable) ReadFrom(r io.Reader) (int64, error) {
	buf := make([]byte, writeChunk)
	var total int64
	for {
		n, err := r.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				return total, werr
			}
			total += int64(n)
		}
		if errors.Is(err, io.EOF) {
			return total, nil
		}
		if err != nil {
			return total, err
		}
	}
}

func (w *writable) Truncate(size int64) error {
	_, err := callAwait(context.Background(), w.v, "truncate", size)
	return err
}

func (w *writable) Close() error {
	_, err := callAwait(context.Background(), w.v, "close")
	return err
}

func (w *writable) Abort() error {
	_, err := callAwait(context.Background(), w.v, "abort")
	return err
}

type dirHandle struct{ jsHandle }

func (d *dirHandle) Kind() handle.Kind { return handle.KindDirectory }

func (d *dirHandle) IsSameEntry(ctx context.Context, other handle.Handle) (bool, error) {
	v, ok := jsValueOf(other)
	if !ok {
		return false, nil
	}
	return d.isSameEntry(ctx, v)
}

// Entries drains the handle's async values() iterator.
func (d *dirHandle) Entries(ctx context.Context) ([]handle.Handle, error) {
	it, err := call(d.v, "values")
	if err != nil {
		return nil, err
	}
	var out []handle.Handle
	for {
		res, err := callAwait(ctx, it, "next")
		if err != nil {
			return nil, err
		}
		if res.Get("done").Bool() {
			return out, nil
		}
		v := res.Get("value")
		if v.Get("kind").String() == string(handle.KindDirectory) {
			out = append(out, &dirHandle{jsHandle{v: v}})
		} else {
			out = append(out, &fileHandle{jsHandle{v: v}})
		}
	}
}
