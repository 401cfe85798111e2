// Package fsaccess is the single entry point for opening and saving files.
// It picks the modern or legacy backend once, when an Access is created, and
// forwards every call to it unchanged.
package fsaccess

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/stackvity/fsaccess/internal/capability"
	"github.com/stackvity/fsaccess/internal/fileref"
	"github.com/stackvity/fsaccess/internal/handle"
	"github.com/stackvity/fsaccess/internal/legacy"
	"github.com/stackvity/fsaccess/internal/modern"
	"github.com/stackvity/fsaccess/internal/payload"
	"github.com/stackvity/fsaccess/internal/request"
)

// ErrHierarchyUnsupported is returned by OpenHierarchy on the legacy backend,
// which has no directory handle to hand back.
var ErrHierarchyUnsupported = errors.New("directory hierarchy requires the modern backend")

// ErrNoHost is returned when the global offers neither backend's primitives.
var ErrNoHost = errors.New("global provides no file access primitives")

// Access dispatches to exactly one backend for its whole lifetime.
type Access struct {
	backend capability.Backend
	modern  *modern.Adapter
	legacy  *legacy.Adapter
	logger  *slog.Logger
}

type settings struct {
	logger      *slog.Logger
	cancel      legacy.CancelStrategy
	revokeDelay time.Duration
	backend     *capability.Backend
}

// Option configures New.
type Option func(*settings)

// WithLogger sets the logger shared by both backends.
func WithLogger(l *slog.Logger) Option {
	return func(s *settings) { s.logger = l }
}

// WithCancelStrategy replaces the legacy picker dismissal heuristic.
func WithCancelStrategy(c legacy.CancelStrategy) Option {
	return func(s *settings) { s.cancel = c }
}

// WithRevokeDelay sets how long legacy download URLs stay valid.
func WithRevokeDelay(d time.Duration) Option {
	return func(s *settings) { s.revokeDelay = d }
}

// WithBackend forces a backend instead of detecting one. Forcing a backend the
// global cannot serve makes New fail.
func WithBackend(b capability.Backend) Option {
	return func(s *settings) { s.backend = &b }
}

// New detects the backend global supports and builds an Access around it.
func New(global any, opts ...Option) (*Access, error) {
	s := settings{}
	for _, opt := range opts {
		opt(&s)
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}

	backend := capability.Detect(global)
	if s.backend != nil {
		if *s.backend == capability.Modern && backend != capability.Modern {
			return nil, fmt.Errorf("backend %s requested but the host has no modern pickers", capability.Modern)
		}
		backend = *s.backend
	}

	a := &Access{backend: backend, logger: s.logger}
	switch backend {
	case capability.Modern:
		a.modern = modern.New(global.(modern.Host), s.logger)
	default:
		host, ok := global.(legacy.Host)
		if !ok {
			return nil, ErrNoHost
		}
		a.legacy = legacy.New(host, s.logger, legacy.Config{Cancel: s.cancel, RevokeDelay: s.revokeDelay})
	}
	s.logger.Debug("File access backend selected", "backend", backend)
	return a, nil
}

// Backend reports the backend chosen by New.
func (a *Access) Backend() capability.Backend { return a.backend }

// Supported reports whether calls are served by the modern backend.
func (a *Access) Supported() bool { return a.backend == capability.Modern }

// OpenFile asks for a single file. groups may be empty, a single
// configuration, or an ordered list whose later entries only add types.
func (a *Access) OpenFile(ctx context.Context, groups ...request.Open) (*fileref.File, error) {
	files, err := a.open(ctx, false, groups)
	if err != nil {
		return nil, err
	}
	return files[0], nil
}

// OpenFiles asks for any number of files. See OpenFile for groups.
func (a *Access) OpenFiles(ctx context.Context, groups ...request.Open) ([]*fileref.File, error) {
	return a.open(ctx, true, groups)
}

func (a *Access) open(ctx context.Context, multiple bool, groups []request.Open) ([]*fileref.File, error) {
	for i := 1; i < len(groups); i++ {
		if groups[i].HasSelectionFields() {
			a.logger.Debug("Ignoring selection fields outside the first option group", "group", i)
		}
	}
	plan := request.NormalizeOpen(multiple, groups...)
	if a.modern != nil {
		return a.modern.Open(ctx, plan)
	}
	return a.legacy.Open(ctx, plan)
}

// Save writes p and returns the handle to reuse for saving in place next
// time. On the legacy backend the content is offered as a download, existing
// is ignored and the returned handle is nil.
func (a *Access) Save(ctx context.Context, p payload.Payload, req request.Save, existing handle.FileHandle) (handle.FileHandle, error) {
	if a.modern != nil {
		return a.modern.Save(ctx, p, req, existing)
	}
	if existing != nil {
		a.logger.Debug("Ignoring existing handle on legacy backend", "name", existing.Name())
	}
	return a.legacy.Save(ctx, p, req)
}

// OpenDirectory lists the files of a chosen directory, recursively when
// req.Recursive is set.
func (a *Access) OpenDirectory(ctx context.Context, req request.Directory) ([]*fileref.File, error) {
	if a.modern != nil {
		return a.modern.OpenDirectory(ctx, req)
	}
	return a.legacy.OpenDirectory(ctx, req)
}

// OpenHierarchy is OpenDirectory that also returns the directory handle.
func (a *Access) OpenHierarchy(ctx context.Context, req request.Directory) (*modern.Hierarchy, error) {
	if a.modern == nil {
		return nil, ErrHierarchyUnsupported
	}
	return a.modern.OpenHierarchy(ctx, req)
}

// Supported reports the process-wide capability flag for the global
// installed with capability.Install.
func Supported() bool { return capability.Supported() }
