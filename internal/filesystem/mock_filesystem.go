package filesystem

import (
	"io/fs"

	"github.com/stretchr/testify/mock"
)

// MockFileSystem delegates to a backing FileSystem except for the methods a
// test has registered expectations for with On, which answer from the mock.
// This lets tests inject a failure into one operation while every other
// operation behaves normally.
type MockFileSystem struct {
	mock.Mock
	backing FileSystem
}

// NewMockFileSystem creates a MockFileSystem over backing. A nil backing uses
// a fresh in-memory filesystem.
func NewMockFileSystem(backing FileSystem) *MockFileSystem {
	if backing == nil {
		backing = NewMemFileSystem()
	}
	return &MockFileSystem{backing: backing}
}

func (m *MockFileSystem) expects(method string) bool {
	for _, c := range m.ExpectedCalls {
		if c.Method == method {
			return true
		}
	}
	return false
}

func (m *MockFileSystem) ReadFile(name string) ([]byte, error) {
	if !m.expects("ReadFile") {
		return m.backing.ReadFile(name)
	}
	args := m.Called(name)
	data, _ := args.Get(0).([]byte)
	return data, args.Error(1)
}

func (m *MockFileSystem) WriteFile(name string, data []byte, perm fs.FileMode) error {
	if !m.expects("WriteFile") {
		return m.backing.WriteFile(name, data, perm)
	}
	return m.Called(name, data, perm).Error(0)
}

func (m *MockFileSystem) Create(name string) (File, error) {
	if !m.expects("Create") {
		return m.backing.Create(name)
	}
	args := m.Called(name)
	f, _ := args.Get(0).(File)
	return f, args.Error(1)
}

func (m *MockFileSystem) Stat(name string) (fs.FileInfo, error) {
	if !m.expects("Stat") {
		return m.backing.Stat(name)
	}
	args := m.Called(name)
	info, _ := args.Get(0).(fs.FileInfo)
	return info, args.Error(1)
}

func (m *MockFileSystem) MkdirAll(path string, perm fs.FileMode) error {
	if !m.expects("MkdirAll") {
		return m.backing.MkdirAll(path, perm)
	}
	return m.Called(path, perm).Error(0)
}

func (m *MockFileSystem) ReadDir(name string) ([]fs.DirEntry, error) {
	if !m.expects("ReadDir") {
		return m.backing.ReadDir(name)
	}
	args := m.Called(name)
	entries, _ := args.Get(0).([]fs.DirEntry)
	return entries, args.Error(1)
}

func (m *MockFileSystem) WalkDir(root string, fn fs.WalkDirFunc) error {
	if !m.expects("WalkDir") {
		return m.backing.WalkDir(root, fn)
	}
	return m.Called(root, fn).Error(0)
}

func (m *MockFileSystem) Remove(name string) error {
	if !m.expects("Remove") {
		return m.backing.Remove(name)
	}
	return m.Called(name).Error(0)
}

func (m *MockFileSystem) Rename(oldpath, newpath string) error {
	if !m.expects("Rename") {
		return m.backing.Rename(oldpath, newpath)
	}
	return m.Called(oldpath, newpath).Error(0)
}
