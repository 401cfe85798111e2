package legacy

import (
	"fmt"
	"sync"
	"time"

	"github.com/stackvity/fsaccess/internal/blob"
)

type fakeInput struct {
	host *fakeHost

	mu        sync.Mutex
	accept    string
	multiple  bool
	directory bool
	change    func([]*blob.File)
	cancel    func()
	onError   func(error)
	attached  bool
	detached  bool
	clicks    int
}

func (in *fakeInput) SetAccept(accept string) { in.mu.Lock(); in.accept = accept; in.mu.Unlock() }
func (in *fakeInput) SetMultiple(m bool)      { in.mu.Lock(); in.multiple = m; in.mu.Unlock() }
func (in *fakeInput) SetDirectory(d bool)     { in.mu.Lock(); in.directory = d; in.mu.Unlock() }

func (in *fakeInput) OnChange(f func([]*blob.File)) { in.mu.Lock(); in.change = f; in.mu.Unlock() }
func (in *fakeInput) OnCancel(f func())             { in.mu.Lock(); in.cancel = f; in.mu.Unlock() }
func (in *fakeInput) OnError(f func(error))         { in.mu.Lock(); in.onError = f; in.mu.Unlock() }

func (in *fakeInput) Attach() { in.mu.Lock(); in.attached = true; in.mu.Unlock() }
func (in *fakeInput) Detach() { in.mu.Lock(); in.detached = true; in.mu.Unlock() }

func (in *fakeInput) Click() error {
	in.mu.Lock()
	in.clicks++
	in.mu.Unlock()
	if err := in.host.clickErr; err != nil {
		return err
	}
	if script := in.host.script; script != nil {
		go script(in.host, in)
	}
	return nil
}

// choose delivers a selection the way a host change event would.
func (in *fakeInput) choose(files ...*blob.File) {
	in.mu.Lock()
	f := in.change
	in.mu.Unlock()
	if f != nil {
		f(files)
	}
}

// fail reports a host failure after the click.
func (in *fakeInput) fail(err error) {
	in.mu.Lock()
	f := in.onError
	in.mu.Unlock()
	if f != nil {
		f(err)
	}
}

// dismiss delivers a native cancel event when one was registered.
func (in *fakeInput) dismiss() {
	in.mu.Lock()
	f := in.cancel
	in.mu.Unlock()
	if f != nil {
		f()
	}
}

type fakeAnchor struct {
	host     *fakeHost
	download string
	href     string
	onClick  func()
	clicks   int
}

func (a *fakeAnchor) SetDownload(name string) { a.download = name }
func (a *fakeAnchor) SetHref(url string)      { a.href = url }
func (a *fakeAnchor) OnClick(f func())        { a.onClick = f }

func (a *fakeAnchor) Click() {
	a.clicks++
	if a.onClick != nil {
		a.onClick()
	}
}

type fakeTimer struct {
	d       time.Duration
	f       func()
	stopped bool
}

type fakeHost struct {
	nativeCancel bool
	// clickErr makes every input refuse to show.
	clickErr error
	// script plays the user once an input is clicked. It runs on its own
	// goroutine like a real host event loop would.
	script func(h *fakeHost, in *fakeInput)

	mu            sync.Mutex
	listeners     map[string]map[int]func()
	nextID        int
	registrations int
	inputs        []*fakeInput
	anchors       []*fakeAnchor
	urls          map[string]blob.Blob
	revoked       []string
	timers        []*fakeTimer
}

func newFakeHost() *fakeHost {
	return &fakeHost{listeners: map[string]map[int]func(){}, urls: map[string]blob.Blob{}}
}

func (h *fakeHost) CreateInput() Input {
	in := &fakeInput{host: h}
	h.mu.Lock()
	h.inputs = append(h.inputs, in)
	h.mu.Unlock()
	return in
}

func (h *fakeHost) CreateAnchor() Anchor {
	a := &fakeAnchor{host: h}
	h.mu.Lock()
	h.anchors = append(h.anchors, a)
	h.mu.Unlock()
	return a
}

func (h *fakeHost) CreateObjectURL(b blob.Blob) string {
	h.mu.Lock()
	defer h.mu.Unlock()
	url := fmt.Sprintf("blob:fake/%d", len(h.urls)+len(h.revoked))
	h.urls[url] = b
	return url
}

func (h *fakeHost) RevokeObjectURL(url string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.urls, url)
	h.revoked = append(h.revoked, url)
}

func (h *fakeHost) AddEventListener(event string, listener func()) func() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	id := h.nextID
	h.registrations++
	if h.listeners[event] == nil {
		h.listeners[event] = map[int]func(){}
	}
	h.listeners[event][id] = listener
	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.listeners[event], id)
	}
}

func (h *fakeHost) AfterFunc(d time.Duration, f func()) func() bool {
	t := &fakeTimer{d: d, f: f}
	h.mu.Lock()
	h.timers = append(h.timers, t)
	h.mu.Unlock()
	return func() bool {
		h.mu.Lock()
		defer h.mu.Unlock()
		was := !t.stopped
		t.stopped = true
		return was
	}
}

func (h *fakeHost) SupportsCancelEvent() bool { return h.nativeCancel }

// fire dispatches a page event to every current listener.
func (h *fakeHost) fire(event string) {
	h.mu.Lock()
	var fs []func()
	for _, f := range h.listeners[event] {
		fs = append(fs, f)
	}
	h.mu.Unlock()
	for _, f := range fs {
		f()
	}
}

func (h *fakeHost) listening() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, ls := range h.listeners {
		n += len(ls)
	}
	return n
}

// runTimers fires every timer that has not been stopped.
func (h *fakeHost) runTimers() {
	h.mu.Lock()
	ts := append([]*fakeTimer(nil), h.timers...)
	h.mu.Unlock()
	for _, t := range ts {
		if !t.stopped {
			t.stopped = true
			t.f()
		}
	}
}

func (h *fakeHost) lastInput() *fakeInput {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.inputs[len(h.inputs)-1]
}

func file(relPath, content string) *blob.File {
	name := relPath
	for i := len(relPath) - 1; i >= 0; i-- {
		if relPath[i] == '/' {
			name = relPath[i+1:]
			break
		}
	}
	f := blob.NewFile(name, []byte(content), "text/plain", time.Unix(0, 0))
	if name != relPath {
		f = f.WithRelativePath(relPath)
	}
	return f
}
