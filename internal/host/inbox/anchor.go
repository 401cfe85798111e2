package inbox

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
)

type anchor struct {
	h        *Host
	download string
	href     string
	onClick  func()
}

func (a *anchor) SetDownload(name string) { a.download = name }
func (a *anchor) SetHref(url string)      { a.href = url }
func (a *anchor) OnClick(f func())        { a.onClick = f }

// Click saves the linked blob into the downloads directory. An existing file
// is never overwritten; the name gets a " (n)" suffix instead.
func (a *anchor) Click() {
	h := a.h
	b, ok := h.registry.Get(a.href)
	if a.onClick != nil {
		a.onClick()
	}
	if !ok {
		h.logger.Warn("Download link points at a revoked or unknown URL", "url", a.href)
		return
	}

	name := filepath.Base(filepath.Clean("/" + a.download))
	if name == "/" || name == "." {
		name = "download"
	}
	h.saveMu.Lock()
	defer h.saveMu.Unlock()
	dest, err := a.freeName(name)
	if err != nil {
		h.logger.Error("Failed to pick download name", "name", name, "error", err)
		return
	}
	if err := h.fs.WriteFile(dest, b.Bytes(), 0o644); err != nil {
		h.logger.Error("Failed to write download", "path", dest, "error", err)
		return
	}

	h.mu.Lock()
	h.downloads = append(h.downloads, dest)
	h.mu.Unlock()
	h.logger.Info("Download saved", "path", dest, "size", b.Size())
}

func (a *anchor) freeName(name string) (string, error) {
	dir := a.h.cfg.Downloads
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for i := 0; i < 10000; i++ {
		candidate := name
		if i > 0 {
			candidate = fmt.Sprintf("%s (%d)%s", stem, i, ext)
		}
		p := filepath.Join(dir, candidate)
		_, err := a.h.fs.Stat(p)
		if errors.Is(err, fs.ErrNotExist) {
			return p, nil
		}
		if err != nil {
			return "", err
		}
	}
	return "", fmt.Errorf("no free name for '%s' in '%s'", name, dir)
}
