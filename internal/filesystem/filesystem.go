// Package filesystem is the storage layer behind the disk host and the inbox
// host. Both afero and go-billy filesystems can back it.
package filesystem

import (
	"io"
	"io/fs"
)

// File is an open, writable file.
type File interface {
	io.Reader
	io.Writer
	io.Closer
	Truncate(size int64) error
}

// FileSystem defines the operations the hosts need from storage, decoupled
// from the os package so tests can run in memory.
type FileSystem interface {
	// ReadFile reads the named file and returns the contents.
	ReadFile(name string) ([]byte, error)

	// WriteFile writes data to the named file, creating it if necessary and
	// truncating it otherwise.
	WriteFile(name string, data []byte, perm fs.FileMode) error

	// Create creates or truncates the named file for writing.
	Create(name string) (File, error)

	// Stat returns a FileInfo describing the named file.
	Stat(name string) (fs.FileInfo, error)

	// MkdirAll creates a directory along with any necessary parents.
	MkdirAll(path string, perm fs.FileMode) error

	// ReadDir lists the named directory sorted by file name.
	ReadDir(name string) ([]fs.DirEntry, error)

	// WalkDir walks the file tree rooted at root, calling fn for each file or
	// directory in the tree, including root, with fs.WalkDir semantics.
	WalkDir(root string, fn fs.WalkDirFunc) error

	// Remove removes the named file or empty directory.
	Remove(name string) error

	// Rename renames (moves) oldpath to newpath, replacing a file at newpath.
	Rename(oldpath, newpath string) error
}
