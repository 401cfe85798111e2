package diskhost

import "errors"

// Rejections raised by the pickers and handles themselves. They reach callers
// unwrapped.
var (
	// ErrNotAllowed is returned for write access to a read-only host.
	ErrNotAllowed = errors.New("NotAllowedError: write access is not allowed")
	// ErrTypeMismatch is returned for pickers with malformed accept types, and
	// for chosen files the accept types exclude.
	ErrTypeMismatch = errors.New("TypeError: accept type rejected")
	// ErrNotADirectory is returned when a directory picker is answered with a file.
	ErrNotADirectory = errors.New("TypeMismatchError: not a directory")
)
