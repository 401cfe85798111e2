// Package fileref defines the file references returned to callers.
package fileref

import (
	"github.com/stackvity/fsaccess/internal/blob"
	"github.com/stackvity/fsaccess/internal/handle"
)

// File is a resolved payload plus metadata. It holds, but does not own, the
// handle it was read through: the handle stays valid or invalid independently
// of the File. Handle is always nil on the legacy backend.
type File struct {
	blob.File
	Handle handle.FileHandle
}

// New attaches h to f. A nil h is allowed.
func New(f *blob.File, h handle.FileHandle) *File {
	return &File{File: *f, Handle: h}
}

// Path returns the root-relative path when known and the bare name otherwise.
func (f *File) Path() string {
	if f.RelativePath != "" {
		return f.RelativePath
	}
	return f.Name
}

// FromHost wraps host files that carry no handle.
func FromHost(files []*blob.File) []*File {
	out := make([]*File, 0, len(files))
	for _, f := range files {
		out = append(out, New(f, nil))
	}
	return out
}
