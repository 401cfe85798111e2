// Package legacy implements open, save and directory access on hosts that
// only offer a one-shot file input and a download link. No handles are ever
// produced.
package legacy

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/stackvity/fsaccess/internal/blob"
	"github.com/stackvity/fsaccess/internal/fileref"
	"github.com/stackvity/fsaccess/internal/fserrors"
	"github.com/stackvity/fsaccess/internal/handle"
	"github.com/stackvity/fsaccess/internal/payload"
	"github.com/stackvity/fsaccess/internal/request"
)

// DefaultRevokeDelay is how long an object URL outlives the download click.
const DefaultRevokeDelay = 30 * time.Second

// Config tunes an Adapter. Zero values select the defaults.
type Config struct {
	// Cancel detects dismissed pickers. Defaults to InteractionStrategy.
	Cancel CancelStrategy
	// RevokeDelay defaults to DefaultRevokeDelay.
	RevokeDelay time.Duration
}

// Adapter forwards operations to a legacy Host.
type Adapter struct {
	host        Host
	logger      *slog.Logger
	cancel      CancelStrategy
	revokeDelay time.Duration
}

// New creates an Adapter. A nil logger discards output.
func New(host Host, logger *slog.Logger, cfg Config) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Cancel == nil {
		cfg.Cancel = InteractionStrategy{}
	}
	if cfg.RevokeDelay <= 0 {
		cfg.RevokeDelay = DefaultRevokeDelay
	}
	return &Adapter{host: host, logger: logger, cancel: cfg.Cancel, revokeDelay: cfg.RevokeDelay}
}

// AcceptString joins every media type, then every extension, of all filters
// with commas. An empty string accepts everything.
func AcceptString(filters []request.Filter) string {
	var parts []string
	for _, f := range filters {
		parts = append(parts, f.MIMETypes...)
	}
	for _, f := range filters {
		parts = append(parts, f.Extensions...)
	}
	return strings.Join(parts, ",")
}

// Open shows a file input. When plan.Multiple is false at most one file is
// returned. The start location and identifier have no meaning here.
func (a *Adapter) Open(ctx context.Context, plan request.OpenPlan) ([]*fileref.File, error) {
	in := a.host.CreateInput()
	in.SetAccept(AcceptString(plan.Filters))
	in.SetMultiple(plan.Multiple)

	files, err := a.pick(ctx, in)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fserrors.ErrAborted
	}
	if !plan.Multiple {
		files = files[:1]
	}
	a.logger.Debug("Opened files", "count", len(files), "multiple", plan.Multiple)
	return fileref.FromHost(files), nil
}

// Save drains p and offers it as a download named after req. There is no
// handle to return, so the result is always nil; existing handles are not
// accepted at all.
func (a *Adapter) Save(ctx context.Context, p payload.Payload, req request.Save) (handle.FileHandle, error) {
	resolved, err := p.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	defer resolved.Close()

	b, err := resolved.ReadAll()
	if err != nil {
		return nil, err
	}

	name := req.SuggestedName()
	url := a.host.CreateObjectURL(b)
	anchor := a.host.CreateAnchor()
	anchor.SetDownload(name)
	anchor.SetHref(url)
	anchor.OnClick(func() {
		a.host.AfterFunc(a.revokeDelay, func() {
			a.host.RevokeObjectURL(url)
		})
	})
	anchor.Click()

	a.logger.Debug("Offered download", "name", name, "size", b.Size(), "type", b.Type())
	return nil, nil
}

// OpenDirectory shows a directory input. The host enumerates every
// descendant; without req.Recursive only direct children of the chosen
// directory are kept. req.SkipDirectory drops files below any directory it
// accepts, whatever its depth, including the chosen directory itself.
func (a *Adapter) OpenDirectory(ctx context.Context, req request.Directory) ([]*fileref.File, error) {
	in := a.host.CreateInput()
	in.SetDirectory(true)
	in.SetMultiple(true)

	files, err := a.pick(ctx, in)
	if err != nil {
		return nil, err
	}

	kept := make([]*blob.File, 0, len(files))
	for _, f := range files {
		segments := strings.Split(f.RelativePath, "/")
		if !req.Recursive && len(segments) != 2 {
			continue
		}
		if skippedBelow(req, segments[:len(segments)-1]) {
			continue
		}
		kept = append(kept, f)
	}
	a.logger.Debug("Listed directory", "reported", len(files), "kept", len(kept), "recursive", req.Recursive)
	return fileref.FromHost(kept), nil
}

func skippedBelow(req request.Directory, dirs []string) bool {
	for _, d := range dirs {
		if req.Skips(d) {
			return true
		}
	}
	return false
}

// pick shows in and waits for exactly one outcome: a selection, a dismissal
// reported by the host or the cancel strategy, a host failure, or ctx ending.
func (a *Adapter) pick(ctx context.Context, in Input) ([]*blob.File, error) {
	op := newOperation()
	in.OnChange(func(files []*blob.File) {
		if !op.resolve(files) {
			a.logger.Debug("Ignoring selection after settle", "files", len(files))
		}
	})
	abort := func() {
		if !op.reject(fserrors.ErrAborted) {
			a.logger.Debug("Ignoring abort after settle")
		}
	}
	if a.host.SupportsCancelEvent() {
		in.OnCancel(abort)
	}
	in.OnError(func(err error) {
		if !op.reject(err) {
			a.logger.Debug("Ignoring host error after settle", "error", err)
		}
	})

	disarm := a.cancel.Arm(a.host, abort)
	defer disarm()

	in.Attach()
	defer in.Detach()

	op.show()
	if err := in.Click(); err != nil {
		op.reject(err)
	}

	select {
	case <-op.done:
	case <-ctx.Done():
		op.reject(ctx.Err())
	}
	return op.result()
}
