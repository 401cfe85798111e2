package legacy

import (
	"sync"

	"github.com/stackvity/fsaccess/internal/blob"
)

type state int

const (
	stateIdle state = iota
	statePickerShown
	stateResolved
	stateRejected
)

func (s state) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case statePickerShown:
		return "picker-shown"
	case stateResolved:
		return "resolved"
	case stateRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// operation settles exactly once. Later resolve or reject calls are ignored
// and report false.
type operation struct {
	mu    sync.Mutex
	state state
	done  chan struct{}
	files []*blob.File
	err   error
}

func newOperation() *operation {
	return &operation{done: make(chan struct{})}
}

func (o *operation) show() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state == stateIdle {
		o.state = statePickerShown
	}
}

func (o *operation) resolve(files []*blob.File) bool {
	return o.settle(stateResolved, files, nil)
}

func (o *operation) reject(err error) bool {
	return o.settle(stateRejected, nil, err)
}

func (o *operation) settle(to state, files []*blob.File, err error) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state == stateResolved || o.state == stateRejected {
		return false
	}
	o.state, o.files, o.err = to, files, err
	close(o.done)
	return true
}

func (o *operation) result() ([]*blob.File, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.files, o.err
}

func (o *operation) current() state {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}
