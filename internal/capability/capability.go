// Package capability decides which file access backend a host supports.
package capability

import (
	"fmt"
	"strings"
	"sync"

	"github.com/stackvity/fsaccess/internal/modern"
)

// Backend is the implementation family chosen for a host.
type Backend int

const (
	// Legacy drives a file input and a download anchor.
	Legacy Backend = iota
	// Modern drives the handle-based pickers.
	Modern
)

func (b Backend) String() string {
	switch b {
	case Modern:
		return "modern"
	case Legacy:
		return "legacy"
	default:
		return fmt.Sprintf("Backend(%d)", int(b))
	}
}

// ParseBackend maps "modern" and "legacy" (any case) to a Backend.
func ParseBackend(s string) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "modern":
		return Modern, nil
	case "legacy":
		return Legacy, nil
	default:
		return Legacy, fmt.Errorf("unknown backend '%s' (want modern or legacy)", s)
	}
}

// Detect reports Modern when global exposes the handle-based pickers and
// Legacy otherwise, including for a nil global. It never fails.
func Detect(global any) Backend {
	if _, ok := global.(modern.Host); ok {
		return Modern
	}
	return Legacy
}

var (
	mu        sync.Mutex
	installed any
	frozen    bool
	supported bool
)

// Install records the process-wide host global. It reports false, and
// changes nothing, once Supported has been read.
func Install(global any) bool {
	mu.Lock()
	defer mu.Unlock()
	if frozen {
		return false
	}
	installed = global
	return true
}

// Supported reports whether the installed global offers the modern pickers.
// The answer is computed on first call and never re-probed.
func Supported() bool {
	mu.Lock()
	defer mu.Unlock()
	if !frozen {
		supported = Detect(installed) == Modern
		frozen = true
	}
	return supported
}

// reset forgets the installed global and the computed flag.
func reset() {
	mu.Lock()
	defer mu.Unlock()
	installed, frozen, supported = nil, false, false
}
