package legacy

import (
	"time"

	"github.com/stackvity/fsaccess/internal/blob"
)

// Page events the interaction strategy treats as abandonment.
const (
	EventPointerMove = "pointermove"
	EventPointerDown = "pointerdown"
	EventKeyDown     = "keydown"
)

// Host is the handle-less environment: a transient selection control, a
// synthetic download link, object URLs, page events and timers.
type Host interface {
	CreateInput() Input
	CreateAnchor() Anchor
	CreateObjectURL(b blob.Blob) string
	RevokeObjectURL(url string)
	// AddEventListener subscribes to a page-level event. Calling remove
	// unsubscribes; it is safe to call more than once.
	AddEventListener(event string, listener func()) (remove func())
	// AfterFunc runs f once after d unless stopped first.
	AfterFunc(d time.Duration, f func()) (stop func() bool)
	// SupportsCancelEvent reports whether inputs report dismissal themselves.
	SupportsCancelEvent() bool
}

// Input is a one-shot file selection control.
type Input interface {
	SetAccept(accept string)
	SetMultiple(multiple bool)
	SetDirectory(directory bool)
	// OnChange is called with the selection. Files selected in directory
	// mode carry their root-relative path.
	OnChange(func(files []*blob.File))
	// OnCancel is only ever called by hosts that support the cancel event.
	OnCancel(func())
	// OnError is called when the host fails after Click while waiting for
	// or reading the selection.
	OnError(func(err error))
	// Attach inserts the control into the document; Detach removes it.
	Attach()
	Detach()
	// Click shows the control. An error means nothing was shown.
	Click() error
}

// Anchor is a download link.
type Anchor interface {
	SetDownload(name string)
	SetHref(url string)
	OnClick(func())
	Click()
}
