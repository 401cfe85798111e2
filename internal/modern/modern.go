// Package modern implements open, save and directory access on top of a
// handle-based host.
package modern

import (
	"context"
	"log/slog"

	"github.com/sourcegraph/conc/iter"

	"github.com/stackvity/fsaccess/internal/blob"
	"github.com/stackvity/fsaccess/internal/fileref"
	"github.com/stackvity/fsaccess/internal/fserrors"
	"github.com/stackvity/fsaccess/internal/handle"
	"github.com/stackvity/fsaccess/internal/request"
)

// Adapter forwards operations to a modern Host.
type Adapter struct {
	host   Host
	logger *slog.Logger
}

// New creates an Adapter. A nil logger discards output.
func New(host Host, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{host: host, logger: logger}
}

// Open shows the open picker and reads every chosen file, attaching the
// handle it was read through. When plan.Multiple is false at most one file is
// returned.
func (a *Adapter) Open(ctx context.Context, plan request.OpenPlan) ([]*fileref.File, error) {
	handles, err := a.host.ShowOpenFilePicker(ctx, OpenFilePickerOptions{
		Types:                  AcceptTypes(plan.Filters),
		ExcludeAcceptAllOption: plan.ExcludeAcceptAllOption,
		Multiple:               plan.Multiple,
		ID:                     plan.ID,
		StartIn:                plan.StartIn,
	})
	if err != nil {
		return nil, err
	}
	if len(handles) == 0 {
		return nil, fserrors.ErrAborted
	}
	if !plan.Multiple {
		handles = handles[:1]
	}

	files, err := iter.MapErr(handles, func(h *handle.FileHandle) (*fileref.File, error) {
		return fileWithHandle(ctx, *h)
	})
	if err != nil {
		return nil, err
	}
	a.logger.Debug("Opened files", "count", len(files), "multiple", plan.Multiple)
	return files, nil
}

// AcceptTypes builds a picker type list. A filter without media types accepts
// everything ("*/*") restricted to its extensions.
func AcceptTypes(filters []request.Filter) []AcceptType {
	types := make([]AcceptType, 0, len(filters))
	for _, f := range filters {
		exts := f.Extensions
		if exts == nil {
			exts = []string{}
		}
		accept := make(map[string][]string)
		if len(f.MIMETypes) > 0 {
			for _, mt := range f.MIMETypes {
				accept[mt] = exts
			}
		} else {
			accept[blob.WildcardType] = exts
		}
		desc := f.Description
		if desc == "" {
			desc = request.DefaultDescription
		}
		types = append(types, AcceptType{Description: desc, Accept: accept})
	}
	return types
}

func fileWithHandle(ctx context.Context, h handle.FileHandle) (*fileref.File, error) {
	f, err := h.GetFile(ctx)
	if err != nil {
		return nil, err
	}
	return fileref.New(f, h), nil
}
