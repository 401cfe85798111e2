//go:build js && wasm

package browser

import (
	"context"
	"sync"
	"syscall/js"
	"time"

	"github.com/stackvity/fsaccess/internal/blob"
	"github.com/stackvity/fsaccess/internal/legacy"
)

// Window is the handle-less host: a hidden file input, a download link and
// object URLs.
type Window struct {
	global js.Value
	doc    js.Value
}

var _ legacy.Host = (*Window)(nil)

func NewWindow(global js.Value) *Window {
	return &Window{global: global, doc: global.Get("document")}
}

func (w *Window) CreateInput() legacy.Input {
	el := w.doc.Call("createElement", "input")
	el.Set("type", "file")
	el.Get("style").Set("display", "none")
	return &input{doc: w.doc, el: el}
}

func (w *Window) CreateAnchor() legacy.Anchor {
	return &anchor{el: w.doc.Call("createElement", "a")}
}

func (w *Window) CreateObjectURL(b blob.Blob) string {
	return w.global.Get("URL").Call("createObjectURL", toJSBlob(b)).String()
}

func (w *Window) RevokeObjectURL(url string) {
	w.global.Get("URL").Call("revokeObjectURL", url)
}

func (w *Window) AddEventListener(event string, listener func()) func() {
	fn := js.FuncOf(func(js.Value, []js.Value) any {
		listener()
		return nil
	})
	w.global.Call("addEventListener", event, fn)
	var once sync.Once
	return func() {
		once.Do(func() {
			w.global.Call("removeEventListener", event, fn)
			fn.Release()
		})
	}
}

func (w *Window) AfterFunc(d time.Duration, f func()) func() bool {
	return time.AfterFunc(d, f).Stop
}

// SupportsCancelEvent reports whether file inputs fire "cancel" on dismissal.
func (w *Window) SupportsCancelEvent() bool {
	proto := w.global.Get("HTMLInputElement").Get("prototype")
	return w.global.Get("Reflect").Call("has", proto, "oncancel").Bool()
}

type input struct {
	doc js.Value
	el  js.Value

	mu      sync.Mutex
	funcs   []js.Func
	onError func(error)
}

func (in *input) SetAccept(accept string) { in.el.Set("accept", accept) }
func (in *input) SetMultiple(m bool)      { in.el.Set("multiple", m) }
func (in *input) SetDirectory(d bool)     { in.el.Set("webkitdirectory", d) }

// OnChange reads the selected files off the event loop before calling f. A
// file that cannot be read fails the whole selection through OnError.
func (in *input) OnChange(f func([]*blob.File)) {
	in.listen("change", func() {
		list := in.el.Get("files")
		n := list.Get("length").Int()
		picked := make([]js.Value, 0, n)
		for i := 0; i < n; i++ {
			picked = append(picked, list.Call("item", i))
		}
		go func() {
			files := make([]*blob.File, 0, len(picked))
			for _, p := range picked {
				file, err := readFile(context.Background(), p)
				if err != nil {
					in.fail(err)
					return
				}
				files = append(files, file)
			}
			f(files)
		}()
	})
}

func (in *input) OnCancel(f func()) { in.listen("cancel", f) }

func (in *input) OnError(f func(error)) { in.mu.Lock(); in.onError = f; in.mu.Unlock() }

func (in *input) fail(err error) {
	in.mu.Lock()
	f := in.onError
	in.mu.Unlock()
	if f != nil {
		f(err)
	}
}

func (in *input) listen(event string, f func()) {
	fn := js.FuncOf(func(js.Value, []js.Value) any {
		f()
		return nil
	})
	in.el.Call("addEventListener", event, fn)
	in.mu.Lock()
	in.funcs = append(in.funcs, fn)
	in.mu.Unlock()
}

func (in *input) Attach() { in.doc.Get("body").Call("append", in.el) }

func (in *input) Detach() {
	in.el.Call("remove")
	in.mu.Lock()
	defer in.mu.Unlock()
	for _, fn := range in.funcs {
		fn.Release()
	}
	in.funcs = nil
}

// Click opens the picker. An exception thrown by click is returned.
func (in *input) Click() error {
	_, err := call(in.el, "click")
	return err
}

type anchor struct {
	el js.Value
	fn js.Func
}

func (a *anchor) SetDownload(name string) { a.el.Set("download", name) }
func (a *anchor) SetHref(url string)      { a.el.Set("href", url) }

func (a *anchor) OnClick(f func()) {
	var once sync.Once
	a.fn = js.FuncOf(func(js.Value, []js.Value) any {
		once.Do(func() {
			a.el.Call("removeEventListener", "click", a.fn)
			a.fn.Release()
			f()
		})
		return nil
	})
	a.el.Call("addEventListener", "click", a.fn)
}

func (a *anchor) Click() { a.el.Call("click") }
