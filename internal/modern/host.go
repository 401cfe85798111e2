package modern

import (
	"context"

	"github.com/stackvity/fsaccess/internal/handle"
)

// AcceptType is one entry of a picker's type list: a description and a map
// from media type to the extensions accepted for it.
type AcceptType struct {
	Description string
	Accept      map[string][]string
}

// OpenFilePickerOptions are passed to Host.ShowOpenFilePicker.
type OpenFilePickerOptions struct {
	Types                  []AcceptType
	ExcludeAcceptAllOption bool
	Multiple               bool
	ID                     string
	StartIn                handle.StartIn
}

// SaveFilePickerOptions are passed to Host.ShowSaveFilePicker.
type SaveFilePickerOptions struct {
	SuggestedName          string
	Types                  []AcceptType
	ExcludeAcceptAllOption bool
	ID                     string
	StartIn                handle.StartIn
}

// DirectoryPickerOptions are passed to Host.ShowDirectoryPicker.
type DirectoryPickerOptions struct {
	ID      string
	StartIn handle.StartIn
	Mode    handle.Mode
}

// Host is the handle-based capability. A host object that implements it is
// what makes the modern backend available.
//
// Pickers return fserrors.ErrAborted (or an error wrapping it) when the user
// dismisses them. Any other error is a host rejection.
type Host interface {
	ShowOpenFilePicker(ctx context.Context, opts OpenFilePickerOptions) ([]handle.FileHandle, error)
	ShowSaveFilePicker(ctx context.Context, opts SaveFilePickerOptions) (handle.FileHandle, error)
	ShowDirectoryPicker(ctx context.Context, opts DirectoryPickerOptions) (handle.DirectoryHandle, error)
}
