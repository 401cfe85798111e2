package modern

import (
	"context"

	"go.uber.org/multierr"

	"github.com/stackvity/fsaccess/internal/fserrors"
	"github.com/stackvity/fsaccess/internal/handle"
	"github.com/stackvity/fsaccess/internal/payload"
	"github.com/stackvity/fsaccess/internal/request"
)

// Save writes p through existing when it is still readable, or through a
// handle chosen with the save picker otherwise. The handle written to is
// returned so the caller can save in place next time.
//
// A stale existing handle is dropped silently unless
// req.ThrowIfExistingHandleNotGood is set, in which case a
// *fserrors.HandleStaleError is returned and no picker is shown.
func (a *Adapter) Save(ctx context.Context, p payload.Payload, req request.Save, existing handle.FileHandle) (handle.FileHandle, error) {
	resolved, err := p.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	defer resolved.Close()

	h := existing
	if h != nil {
		if _, err := h.GetFile(ctx); err != nil {
			if req.ThrowIfExistingHandleNotGood {
				return nil, &fserrors.HandleStaleError{Name: h.Name(), Err: err}
			}
			a.logger.Debug("Existing handle no longer valid, falling back to picker", "name", h.Name(), "error", err)
			h = nil
		}
	}

	if h == nil {
		h, err = a.host.ShowSaveFilePicker(ctx, SaveFilePickerOptions{
			SuggestedName:          req.SuggestedName(),
			Types:                  saveAcceptTypes(req, resolved.Type),
			ExcludeAcceptAllOption: req.ExcludeAcceptAllOption,
			ID:                     req.ID,
			StartIn:                req.StartIn,
		})
		if err != nil {
			return nil, err
		}
	}

	w, err := h.CreateWritable(ctx, false)
	if err != nil {
		return nil, err
	}
	if resolved.Streaming() {
		_, err = w.ReadFrom(resolved.Stream())
	} else {
		_, err = w.Write(resolved.Blob().Bytes())
	}
	if err != nil {
		return nil, multierr.Append(err, w.Abort())
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	a.logger.Debug("Saved file", "name", h.Name(), "type", resolved.Type, "streamed", resolved.Streaming())
	return h, nil
}

// saveAcceptTypes maps every requested media type, plus the payload's own
// type, to the requested extensions.
func saveAcceptTypes(req request.Save, payloadType string) []AcceptType {
	exts := req.Extensions
	if exts == nil {
		exts = []string{}
	}
	accept := make(map[string][]string, len(req.MIMETypes)+1)
	for _, mt := range req.MIMETypes {
		accept[mt] = exts
	}
	accept[payloadType] = exts
	return []AcceptType{{Description: req.Description, Accept: accept}}
}
