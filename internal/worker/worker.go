// Package worker loads files from storage into host file records, detecting
// their media type the way a browser would report it.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/sourcegraph/conc/pool"

	"github.com/stackvity/fsaccess/internal/blob"
	"github.com/stackvity/fsaccess/internal/filesystem"
)

// sniffLen is how much content http.DetectContentType looks at.
const sniffLen = 512

// Loader reads files from a FileSystem.
type Loader struct {
	FS     filesystem.FileSystem
	Logger *slog.Logger
	// TypeOverrides maps lower-case extensions (".md") to media types and
	// wins over every other detection.
	TypeOverrides map[string]string
	// Concurrency bounds LoadAll. Zero or less means one goroutine per file.
	Concurrency int
}

// NewLoader creates a Loader. A nil logger discards output.
func NewLoader(fs filesystem.FileSystem, logger *slog.Logger, overrides map[string]string, concurrency int) *Loader {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Loader{FS: fs, Logger: logger, TypeOverrides: overrides, Concurrency: concurrency}
}

// Load reads the file at path. Directories are rejected.
func (l *Loader) Load(ctx context.Context, path string) (*blob.File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	info, err := l.FS.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to get file info for '%s': %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("'%s' is a directory, not a file", path)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	content, err := l.FS.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file content for '%s': %w", path, err)
	}

	typ := DetectType(path, content, l.TypeOverrides)
	l.Logger.Debug("Loaded file", "file", path, "size", len(content), "type", typ)
	return blob.NewFile(info.Name(), content, typ, info.ModTime()), nil
}

// LoadAll loads every path, keeping the input order. The first failure
// cancels the remaining loads and is returned.
func (l *Loader) LoadAll(ctx context.Context, paths []string) ([]*blob.File, error) {
	p := pool.NewWithResults[loaded]().WithContext(ctx).WithCancelOnError()
	if l.Concurrency > 0 {
		p = p.WithMaxGoroutines(l.Concurrency)
	}
	for i, path := range paths {
		p.Go(func(ctx context.Context) (loaded, error) {
			f, err := l.Load(ctx, path)
			return loaded{index: i, file: f}, err
		})
	}
	results, err := p.Wait()
	if err != nil {
		return nil, err
	}

	files := make([]*blob.File, len(paths))
	for _, r := range results {
		files[r.index] = r.file
	}
	return files, nil
}

type loaded struct {
	index int
	file  *blob.File
}

// DetectType picks a media type for a file: an override for its extension,
// then the registered type for the extension, then content sniffing. Empty
// content with an unknown extension has no type, matching what browsers
// report. Parameters such as charset are dropped.
func DetectType(path string, content []byte, overrides map[string]string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != "" {
		if typ, ok := overrides[ext]; ok {
			return typ
		}
		if typ := mime.TypeByExtension(ext); typ != "" {
			return baseType(typ)
		}
	}
	if len(content) == 0 {
		return ""
	}

	checkLen := sniffLen
	if len(content) < checkLen {
		checkLen = len(content)
	}
	return baseType(http.DetectContentType(content[:checkLen]))
}

func baseType(typ string) string {
	mediaType, _, err := mime.ParseMediaType(typ)
	if err != nil {
		return typ
	}
	return mediaType
}
