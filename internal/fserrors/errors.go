// Package fserrors holds the error classifications shared by every backend.
//
// Two kinds are produced by this module: ErrAborted when the user dismisses or
// abandons a picker, and *HandleStaleError when a previously obtained handle no
// longer resolves to a readable file. Anything else comes from the host and is
// returned exactly as the host produced it.
package fserrors

import (
	"errors"
	"fmt"
)

// ErrAborted is returned when the user cancels a picker interaction.
var ErrAborted = errors.New("the user aborted a request")

// ErrHandleStale matches any *HandleStaleError with errors.Is.
var ErrHandleStale = errors.New("existing handle is no longer valid")

// HandleStaleError reports that an existing handle failed re-validation.
type HandleStaleError struct {
	Name string // name reported by the handle
	Err  error  // error returned by the host while re-reading the file
}

func (e *HandleStaleError) Error() string {
	return fmt.Sprintf("existing handle '%s' is no longer valid: %v", e.Name, e.Err)
}

func (e *HandleStaleError) Unwrap() error { return e.Err }

// Is reports whether target is ErrHandleStale.
func (e *HandleStaleError) Is(target error) bool { return target == ErrHandleStale }

// IsAborted reports whether err was caused by the user abandoning a picker.
func IsAborted(err error) bool {
	return errors.Is(err, ErrAborted)
}

// IsHandleStale reports whether err carries a stale handle classification.
func IsHandleStale(err error) bool {
	return errors.Is(err, ErrHandleStale)
}
