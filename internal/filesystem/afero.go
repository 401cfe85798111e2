package filesystem

import (
	"io/fs"
	"path/filepath"

	"github.com/spf13/afero"
)

// AferoFileSystem implements FileSystem on an afero.Fs.
type AferoFileSystem struct {
	fs afero.Fs
}

// NewAferoFileSystem wraps fsys.
func NewAferoFileSystem(fsys afero.Fs) *AferoFileSystem {
	return &AferoFileSystem{fs: fsys}
}

// NewRealFileSystem is backed by the operating system.
func NewRealFileSystem() *AferoFileSystem {
	return NewAferoFileSystem(afero.NewOsFs())
}

// NewMemFileSystem is backed by memory only.
func NewMemFileSystem() *AferoFileSystem {
	return NewAferoFileSystem(afero.NewMemMapFs())
}

func (a *AferoFileSystem) ReadFile(name string) ([]byte, error) {
	return afero.ReadFile(a.fs, name)
}

func (a *AferoFileSystem) WriteFile(name string, data []byte, perm fs.FileMode) error {
	return afero.WriteFile(a.fs, name, data, perm)
}

func (a *AferoFileSystem) Create(name string) (File, error) {
	f, err := a.fs.Create(name)
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (a *AferoFileSystem) Stat(name string) (fs.FileInfo, error) {
	return a.fs.Stat(name)
}

func (a *AferoFileSystem) MkdirAll(path string, perm fs.FileMode) error {
	return a.fs.MkdirAll(path, perm)
}

func (a *AferoFileSystem) ReadDir(name string) ([]fs.DirEntry, error) {
	infos, err := afero.ReadDir(a.fs, name)
	if err != nil {
		return nil, err
	}
	entries := make([]fs.DirEntry, len(infos))
	for i, info := range infos {
		entries[i] = fs.FileInfoToDirEntry(info)
	}
	return entries, nil
}

// WalkDir adapts afero.Walk, which reports FileInfo, to fs.WalkDirFunc.
func (a *AferoFileSystem) WalkDir(root string, fn fs.WalkDirFunc) error {
	return afero.Walk(a.fs, root, func(path string, info fs.FileInfo, err error) error {
		return fn(filepath.Clean(path), fs.FileInfoToDirEntry(info), err)
	})
}

func (a *AferoFileSystem) Remove(name string) error {
	return a.fs.Remove(name)
}

func (a *AferoFileSystem) Rename(oldpath, newpath string) error {
	return a.fs.Rename(oldpath, newpath)
}
