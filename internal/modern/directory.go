package modern

import (
	"context"
	"fmt"

	"github.com/sourcegraph/conc/pool"

	"github.com/stackvity/fsaccess/internal/fileref"
	"github.com/stackvity/fsaccess/internal/handle"
	"github.com/stackvity/fsaccess/internal/request"
)

// PathSeparator joins directory names in relative paths.
const PathSeparator = "/"

// Hierarchy is an opened directory together with its contents.
type Hierarchy struct {
	Directory handle.DirectoryHandle
	Files     []*fileref.File
}

// OpenDirectory shows the directory picker and lists the files below the
// chosen directory.
func (a *Adapter) OpenDirectory(ctx context.Context, req request.Directory) ([]*fileref.File, error) {
	h, err := a.OpenHierarchy(ctx, req)
	if err != nil {
		return nil, err
	}
	return h.Files, nil
}

// OpenHierarchy is OpenDirectory that also returns the chosen directory handle.
func (a *Adapter) OpenHierarchy(ctx context.Context, req request.Directory) (*Hierarchy, error) {
	dir, err := a.host.ShowDirectoryPicker(ctx, DirectoryPickerOptions{
		ID:      req.ID,
		StartIn: req.StartIn,
		Mode:    req.AccessMode(),
	})
	if err != nil {
		return nil, err
	}

	files, err := a.walk(ctx, dir, req, dir.Name())
	if err != nil {
		return nil, err
	}
	a.logger.Debug("Walked directory", "directory", dir.Name(), "recursive", req.Recursive, "files", len(files))
	return &Hierarchy{Directory: dir, Files: files}, nil
}

// walk lists dir. Sibling files and subdirectories are visited concurrently;
// the result is only assembled once every one of them has settled.
func (a *Adapter) walk(ctx context.Context, dir handle.DirectoryHandle, req request.Directory, dirPath string) ([]*fileref.File, error) {
	entries, err := dir.Entries(ctx)
	if err != nil {
		return nil, err
	}

	var unknown error
	p := pool.NewWithResults[[]*fileref.File]().WithContext(ctx).WithCancelOnError()
	for _, entry := range entries {
		entryPath := joinPath(dirPath, entry.Name())
		switch e := entry.(type) {
		case handle.FileHandle:
			p.Go(func(ctx context.Context) ([]*fileref.File, error) {
				f, err := e.GetFile(ctx)
				if err != nil {
					return nil, err
				}
				if req.Recursive {
					f = f.WithRelativePath(entryPath)
				}
				return []*fileref.File{fileref.New(f, e)}, nil
			})
		case handle.DirectoryHandle:
			if !req.Recursive {
				continue
			}
			if req.Skips(e.Name()) {
				a.logger.Debug("Skipping directory", "path", entryPath)
				continue
			}
			p.Go(func(ctx context.Context) ([]*fileref.File, error) {
				return a.walk(ctx, e, req, entryPath)
			})
		default:
			if unknown == nil {
				unknown = fmt.Errorf("directory '%s' returned entry '%s' of unknown kind %q", dirPath, entry.Name(), entry.Kind())
			}
		}
	}

	groups, err := p.Wait()
	if err != nil {
		return nil, err
	}
	if unknown != nil {
		return nil, unknown
	}
	var files []*fileref.File
	for _, g := range groups {
		files = append(files, g...)
	}
	return files, nil
}

// joinPath appends name to dirPath. A directory without a name, such as a
// filesystem root, adds no leading separator.
func joinPath(dirPath, name string) string {
	if dirPath == "" {
		return name
	}
	return dirPath + PathSeparator + name
}
