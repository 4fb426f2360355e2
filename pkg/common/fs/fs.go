package fs

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// RuntimeDir is the per-project directory holding local database files.
const RuntimeDir = ".runtime"

// FileSystem wraps an Afero filesystem rooted at a project base path
type FileSystem struct {
	fs          afero.Fs
	basePath    string
	runtimePath string
}

// New creates a filesystem rooted at the working directory
func New() (*FileSystem, error) {
	return NewWithBasePath(".")
}

// NewWithBasePath creates an OS-backed filesystem instance with custom base path
func NewWithBasePath(basePath string) (*FileSystem, error) {
	return NewWithFs(afero.NewOsFs(), basePath)
}

// NewWithFs creates a filesystem instance over any Afero backend, creating
// the runtime directory if missing.
func NewWithFs(afs afero.Fs, basePath string) (*FileSystem, error) {
	runtimePath := filepath.Join(basePath, RuntimeDir)
	if err := afs.MkdirAll(runtimePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create runtime directory: %w", err)
	}
	return &FileSystem{
		fs:          afs,
		basePath:    basePath,
		runtimePath: runtimePath,
	}, nil
}

// GetFs returns the underlying Afero filesystem
func (fsys *FileSystem) GetFs() afero.Fs {
	return fsys.fs
}

// GetBasePath returns the project base path
func (fsys *FileSystem) GetBasePath() string {
	return fsys.basePath
}

// GetRuntimePath returns the .runtime directory path
func (fsys *FileSystem) GetRuntimePath() string {
	return fsys.runtimePath
}

// RuntimeFile returns the path of name inside the runtime directory
func (fsys *FileSystem) RuntimeFile(name string) string {
	return filepath.Join(fsys.runtimePath, name)
}

// Exists checks if a path exists on the underlying filesystem
func (fsys *FileSystem) Exists(path string) (bool, error) {
	return afero.Exists(fsys.fs, path)
}

// RemoveRuntimeFile deletes a file from the runtime directory; a missing file is not an error.
func (fsys *FileSystem) RemoveRuntimeFile(name string) error {
	err := fsys.fs.Remove(fsys.RuntimeFile(name))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// IsExecutable reports whether path is a regular file with any execute bit set.
func IsExecutable(afs afero.Fs, path string) (bool, error) {
	info, err := afs.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if !info.Mode().IsRegular() {
		return false, nil
	}
	return info.Mode().Perm()&0111 != 0, nil
}
