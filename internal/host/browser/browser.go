//go:build js && wasm

// Package browser binds the file access hosts to the page the program runs
// in. Importing it installs the page as the process-wide host.
package browser

import (
	"context"
	"fmt"
	"syscall/js"
	"time"

	"github.com/stackvity/fsaccess/internal/blob"
	"github.com/stackvity/fsaccess/internal/capability"
	"github.com/stackvity/fsaccess/internal/fserrors"
)

func init() {
	capability.Install(Global())
}

// Global returns the host for the current page: a *ModernWindow when handle
// based access is available and a *Window otherwise.
func Global() any {
	g := js.Global()
	if Supported(g) {
		return NewModernWindow(g)
	}
	return NewWindow(g)
}

// Supported reports whether global offers the handle based pickers. Inside a
// cross-origin frame the pickers throw, so they count as missing there.
func Supported(global js.Value) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	top := global.Get("top")
	if top.Truthy() && !top.Equal(global) {
		// Reading the location of a cross-origin top frame throws.
		top.Get("location").Call("toString")
	}
	return global.Get("showOpenFilePicker").Type() == js.TypeFunction
}

// call invokes a method, turning a synchronous exception into an error.
func call(v js.Value, method string, args ...any) (result js.Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			if jsErr, ok := r.(js.Error); ok {
				err = jsError(jsErr.Value)
				return
			}
			err = fmt.Errorf("calling %s: %v", method, r)
		}
	}()
	return v.Call(method, args...), nil
}

// await waits for a promise. Leaving early on ctx does not cancel the
// promise; its callbacks release themselves once it settles.
func await(ctx context.Context, promise js.Value) (js.Value, error) {
	type settled struct {
		v   js.Value
		err error
	}
	ch := make(chan settled, 1)
	var onFulfilled, onRejected js.Func
	release := func() {
		onFulfilled.Release()
		onRejected.Release()
	}
	onFulfilled = js.FuncOf(func(_ js.Value, args []js.Value) any {
		ch <- settled{v: arg0(args)}
		release()
		return nil
	})
	onRejected = js.FuncOf(func(_ js.Value, args []js.Value) any {
		ch <- settled{err: jsError(arg0(args))}
		release()
		return nil
	})
	promise.Call("then", onFulfilled, onRejected)

	select {
	case s := <-ch:
		return s.v, s.err
	case <-ctx.Done():
		return js.Undefined(), ctx.Err()
	}
}

// callAwait calls a promise-returning method and waits for it.
func callAwait(ctx context.Context, v js.Value, method string, args ...any) (js.Value, error) {
	promise, err := call(v, method, args...)
	if err != nil {
		return js.Undefined(), err
	}
	return await(ctx, promise)
}

func arg0(args []js.Value) js.Value {
	if len(args) == 0 {
		return js.Undefined()
	}
	return args[0]
}

// jsError classifies a rejection. Dismissed pickers reject with AbortError.
func jsError(v js.Value) error {
	if v.Type() == js.TypeObject && v.Get("name").Type() == js.TypeString && v.Get("name").String() == "AbortError" {
		return fserrors.ErrAborted
	}
	return js.Error{Value: v}
}

func toUint8Array(b []byte) js.Value {
	arr := js.Global().Get("Uint8Array").New(len(b))
	js.CopyBytesToJS(arr, b)
	return arr
}

func toJSBlob(b blob.Blob) js.Value {
	parts := js.Global().Get("Array").New(toUint8Array(b.Bytes()))
	return js.Global().Get("Blob").New(parts, map[string]any{"type": b.Type()})
}

// readFile copies a DOM File into a host file record.
func readFile(ctx context.Context, f js.Value) (*blob.File, error) {
	buf, err := callAwait(ctx, f, "arrayBuffer")
	if err != nil {
		return nil, err
	}
	arr := js.Global().Get("Uint8Array").New(buf)
	data := make([]byte, arr.Get("length").Int())
	js.CopyBytesToGo(data, arr)

	file := blob.NewFile(f.Get("name").String(), data, f.Get("type").String(), time.UnixMilli(int64(f.Get("lastModified").Float())))
	if rel := f.Get("webkitRelativePath"); rel.Type() == js.TypeString && rel.String() != "" {
		file = file.WithRelativePath(rel.String())
	}
	return file, nil
}
