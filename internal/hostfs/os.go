// Package hostfs exposes the filesystem primitives required by the hosting
// services behind an interface so tests can substitute an in-memory tree.
package hostfs

import (
	"io/fs"
	"os"
	"path/filepath"

	"github.com/otiai10/copy"
)

// FileSystem lists the filesystem operations used by repository and account services.
type FileSystem interface {
	Stat(path string) (fs.FileInfo, error)
	Lstat(path string) (fs.FileInfo, error)
	MkdirAll(path string, permissions fs.FileMode) error
	ReadFile(path string) ([]byte, error)
	WriteFile(path string, data []byte, permissions fs.FileMode) error
	Chmod(path string, permissions fs.FileMode) error
	Symlink(targetPath string, linkPath string) error
	Remove(path string) error
	RemoveAll(path string) error
	ReadDir(path string) ([]fs.DirEntry, error)
	WalkDir(root string, walkFunction fs.WalkDirFunc) error
	CopyTree(sourcePath string, destinationPath string) error
	TempDir(pattern string) (string, error)
}

// OSFileSystem implements FileSystem using the operating system primitives.
type OSFileSystem struct{}

// NewOSFileSystem constructs the operating-system backed FileSystem.
func NewOSFileSystem() OSFileSystem {
	return OSFileSystem{}
}

// Stat retrieves file metadata following symlinks.
func (OSFileSystem) Stat(path string) (fs.FileInfo, error) {
	return os.Stat(path)
}

// Lstat retrieves file metadata without following symlinks.
func (OSFileSystem) Lstat(path string) (fs.FileInfo, error) {
	return os.Lstat(path)
}

// MkdirAll ensures a directory hierarchy exists with the provided permissions.
func (OSFileSystem) MkdirAll(path string, permissions fs.FileMode) error {
	return os.MkdirAll(path, permissions)
}

// ReadFile reads file contents.
func (OSFileSystem) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// WriteFile writes data to a file with the supplied permissions.
func (OSFileSystem) WriteFile(path string, data []byte, permissions fs.FileMode) error {
	return os.WriteFile(path, data, permissions)
}

// Chmod updates permission bits on a path.
func (OSFileSystem) Chmod(path string, permissions fs.FileMode) error {
	return os.Chmod(path, permissions)
}

// Symlink creates a symbolic link pointing at targetPath.
func (OSFileSystem) Symlink(targetPath string, linkPath string) error {
	return os.Symlink(targetPath, linkPath)
}

// Remove deletes a single file, symlink, or empty directory.
func (OSFileSystem) Remove(path string) error {
	return os.Remove(path)
}

// RemoveAll deletes a path and everything below it.
func (OSFileSystem) RemoveAll(path string) error {
	return os.RemoveAll(path)
}

// ReadDir lists directory entries.
func (OSFileSystem) ReadDir(path string) ([]fs.DirEntry, error) {
	return os.ReadDir(path)
}

// WalkDir walks the tree rooted at root.
func (OSFileSystem) WalkDir(root string, walkFunction fs.WalkDirFunc) error {
	return filepath.WalkDir(root, walkFunction)
}

// CopyTree recursively copies a directory preserving permissions and timestamps.
func (OSFileSystem) CopyTree(sourcePath string, destinationPath string) error {
	return copy.Copy(sourcePath, destinationPath, copy.Options{
		PermissionControl: copy.PerservePermission,
		PreserveTimes:     true,
	})
}

// TempDir creates a scratch directory using the supplied name pattern.
func (OSFileSystem) TempDir(pattern string) (string, error) {
	return os.MkdirTemp("", pattern)
}
