package filesystem

import (
	"errors"
	"io/fs"
	"path/filepath"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
)

// BillyFileSystem implements FileSystem on a billy.Filesystem.
type BillyFileSystem struct {
	fs billy.Filesystem
}

// NewBillyFileSystem wraps fsys.
func NewBillyFileSystem(fsys billy.Filesystem) *BillyFileSystem {
	return &BillyFileSystem{fs: fsys}
}

// NewBillyOSFileSystem is backed by the operating system below root.
func NewBillyOSFileSystem(root string) *BillyFileSystem {
	return NewBillyFileSystem(osfs.New(root))
}

// NewBillyMemFileSystem is backed by memory only.
func NewBillyMemFileSystem() *BillyFileSystem {
	return NewBillyFileSystem(memfs.New())
}

func normalize(path string) string {
	return filepath.ToSlash(filepath.Clean(path))
}

func (b *BillyFileSystem) ReadFile(name string) ([]byte, error) {
	return util.ReadFile(b.fs, normalize(name))
}

func (b *BillyFileSystem) WriteFile(name string, data []byte, perm fs.FileMode) error {
	return util.WriteFile(b.fs, normalize(name), data, perm)
}

func (b *BillyFileSystem) Create(name string) (File, error) {
	f, err := b.fs.Create(normalize(name))
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (b *BillyFileSystem) Stat(name string) (fs.FileInfo, error) {
	return b.fs.Stat(normalize(name))
}

func (b *BillyFileSystem) MkdirAll(path string, perm fs.FileMode) error {
	return b.fs.MkdirAll(normalize(path), perm)
}

func (b *BillyFileSystem) ReadDir(name string) ([]fs.DirEntry, error) {
	infos, err := b.fs.ReadDir(normalize(name))
	if err != nil {
		return nil, err
	}
	entries := make([]fs.DirEntry, len(infos))
	for i, info := range infos {
		entries[i] = fs.FileInfoToDirEntry(info)
	}
	return entries, nil
}

func (b *BillyFileSystem) WalkDir(root string, fn fs.WalkDirFunc) error {
	root = normalize(root)
	info, err := b.fs.Stat(root)
	if err != nil {
		err = fn(root, nil, err)
	} else {
		err = b.walk(root, fs.FileInfoToDirEntry(info), fn)
	}
	if errors.Is(err, fs.SkipDir) || errors.Is(err, fs.SkipAll) {
		return nil
	}
	return err
}

func (b *BillyFileSystem) walk(path string, d fs.DirEntry, fn fs.WalkDirFunc) error {
	if err := fn(path, d, nil); err != nil || !d.IsDir() {
		if errors.Is(err, fs.SkipDir) && d.IsDir() {
			err = nil
		}
		return err
	}

	entries, err := b.ReadDir(path)
	if err != nil {
		if err = fn(path, d, err); err != nil {
			return err
		}
	}
	for _, entry := range entries {
		if err := b.walk(normalize(filepath.Join(path, entry.Name())), entry, fn); err != nil {
			if errors.Is(err, fs.SkipDir) {
				continue
			}
			return err
		}
	}
	return nil
}

func (b *BillyFileSystem) Remove(name string) error {
	return b.fs.Remove(normalize(name))
}

func (b *BillyFileSystem) Rename(oldpath, newpath string) error {
	return b.fs.Rename(normalize(oldpath), normalize(newpath))
}
