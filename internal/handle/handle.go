// Package handle defines the capability tokens a modern host hands out.
//
// A handle identifies "this same file or directory" to the host so it can be
// re-read, rewritten in place or have its permissions re-checked later. Its
// validity is decided by the host alone; nothing in this module keeps handles
// alive or tracks them between calls.
package handle

import (
	"context"
	"io"

	"github.com/stackvity/fsaccess/internal/blob"
)

// Kind distinguishes file handles from directory handles.
type Kind string

const (
	KindFile      Kind = "file"
	KindDirectory Kind = "directory"
)

// Mode is the access level a permission query or request is about.
type Mode string

const (
	ModeRead      Mode = "read"
	ModeReadWrite Mode = "readwrite"
)

// PermissionState is the host's answer to a permission query.
type PermissionState string

const (
	PermissionGranted PermissionState = "granted"
	PermissionDenied  PermissionState = "denied"
	PermissionPrompt  PermissionState = "prompt"
)

// Handle is the part shared by file and directory handles.
type Handle interface {
	Kind() Kind
	Name() string
	// IsSameEntry reports whether other refers to the same underlying entry.
	IsSameEntry(ctx context.Context, other Handle) (bool, error)
	QueryPermission(ctx context.Context, mode Mode) (PermissionState, error)
	RequestPermission(ctx context.Context, mode Mode) (PermissionState, error)
}

// FileHandle refers to a single file.
type FileHandle interface {
	Handle
	// GetFile reads the current content of the file. It fails once the file is
	// gone, which is how stale handles are detected.
	GetFile(ctx context.Context) (*blob.File, error)
	// CreateWritable opens a write target. Nothing written becomes visible until
	// Close succeeds. With keepExisting the target starts as a copy of the file.
	CreateWritable(ctx context.Context, keepExisting bool) (Writable, error)
}

// DirectoryHandle refers to a directory.
type DirectoryHandle interface {
	Handle
	// Entries lists the direct children in host enumeration order. Every entry
	// is either a FileHandle or a DirectoryHandle.
	Entries(ctx context.Context) ([]Handle, error)
}

// Writable receives the bytes of a save.
type Writable interface {
	io.Writer
	io.ReaderFrom
	Truncate(size int64) error
	// Close commits everything written so far.
	Close() error
	// Abort discards everything written so far.
	Abort() error
}

// StartIn suggests where a picker should open. Either a well-known directory
// name or an existing handle may be given; Handle wins when both are set.
type StartIn struct {
	WellKnown string
	Handle    Handle
}

// Well-known starting directories understood by hosts.
const (
	StartInDesktop   = "desktop"
	StartInDocuments = "documents"
	StartInDownloads = "downloads"
	StartInMusic     = "music"
	StartInPictures  = "pictures"
	StartInVideos    = "videos"
)

// IsZero reports whether no starting location was requested.
func (s StartIn) IsZero() bool {
	return s.WellKnown == "" && s.Handle == nil
}
