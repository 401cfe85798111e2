// Package blob models the byte payloads a host hands back after a selection.
package blob

import (
	"bytes"
	"io"
	"strings"
	"time"
)

// WildcardType is used when nothing more specific is known about a payload.
const WildcardType = "*/*"

// Blob is an immutable run of bytes with a media type.
type Blob struct {
	data []byte
	typ  string
}

// New copies data into a Blob of the given media type.
func New(data []byte, typ string) Blob {
	cp := make([]byte, len(data))
	copy(cp, data)
	return Blob{data: cp, typ: strings.ToLower(typ)}
}

// Type returns the media type, or "" when the host did not report one.
func (b Blob) Type() string { return b.typ }

// Size returns the number of bytes held.
func (b Blob) Size() int64 { return int64(len(b.data)) }

// Bytes returns a copy of the content.
func (b Blob) Bytes() []byte {
	cp := make([]byte, len(b.data))
	copy(cp, b.data)
	return cp
}

// Reader streams the content without copying it.
func (b Blob) Reader() io.Reader { return bytes.NewReader(b.data) }

// File is a blob as a host reports it: bytes plus the name and timestamps the
// host knows about. RelativePath is only set for directory enumerations.
type File struct {
	Blob
	Name         string
	LastModified time.Time
	RelativePath string
}

// NewFile builds a host file record.
func NewFile(name string, data []byte, typ string, lastModified time.Time) *File {
	return &File{
		Blob:         New(data, typ),
		Name:         name,
		LastModified: lastModified,
	}
}

// WithRelativePath returns a copy of f annotated with a root-relative path.
func (f *File) WithRelativePath(p string) *File {
	cp := *f
	cp.RelativePath = p
	return &cp
}
