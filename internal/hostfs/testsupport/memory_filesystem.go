// Package testsupport provides an in-memory FileSystem used by service tests.
package testsupport

import (
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"
)

const (
	pathSeparatorConstant    = "/"
	temporaryRootConstant    = "/tmp"
	defaultDirectoryModeMode = fs.FileMode(0o755)
)

// MemoryFileSystem implements hostfs.FileSystem over in-process maps. Paths
// are treated as opaque slash-separated strings; permission bits are recorded
// verbatim so tests can assert on them.
type MemoryFileSystem struct {
	Directories  map[string]fs.FileMode
	Files        map[string][]byte
	FileModes    map[string]fs.FileMode
	Symlinks     map[string]string
	FailingPaths map[string]error

	temporaryDirectoryCount int
}

// NewMemoryFileSystem returns an empty in-memory file system.
func NewMemoryFileSystem() *MemoryFileSystem {
	return &MemoryFileSystem{
		Directories:  make(map[string]fs.FileMode),
		Files:        make(map[string][]byte),
		FileModes:    make(map[string]fs.FileMode),
		Symlinks:     make(map[string]string),
		FailingPaths: make(map[string]error),
	}
}

func (fileSystem *MemoryFileSystem) pathFailure(candidate string) error {
	if configuredError, exists := fileSystem.FailingPaths[candidate]; exists {
		return configuredError
	}
	return nil
}

// Stat retrieves metadata for a path, following symlinks one level.
func (fileSystem *MemoryFileSystem) Stat(candidate string) (fs.FileInfo, error) {
	if failure := fileSystem.pathFailure(candidate); failure != nil {
		return nil, failure
	}
	if linkTarget, isSymlink := fileSystem.Symlinks[candidate]; isSymlink {
		candidate = linkTarget
	}
	if directoryMode, isDirectory := fileSystem.Directories[candidate]; isDirectory {
		return memoryFileInfo{name: path.Base(candidate), mode: directoryMode | fs.ModeDir, directory: true}, nil
	}
	if fileContent, isFile := fileSystem.Files[candidate]; isFile {
		return memoryFileInfo{name: path.Base(candidate), mode: fileSystem.FileModes[candidate], size: int64(len(fileContent))}, nil
	}
	return nil, fs.ErrNotExist
}

// Lstat retrieves metadata without following symlinks.
func (fileSystem *MemoryFileSystem) Lstat(candidate string) (fs.FileInfo, error) {
	if _, isSymlink := fileSystem.Symlinks[candidate]; isSymlink {
		return memoryFileInfo{name: path.Base(candidate), mode: fs.ModeSymlink}, nil
	}
	return fileSystem.Stat(candidate)
}

// MkdirAll creates the directory and every missing ancestor.
func (fileSystem *MemoryFileSystem) MkdirAll(candidate string, permissions fs.FileMode) error {
	if failure := fileSystem.pathFailure(candidate); failure != nil {
		return failure
	}
	pathSegments := strings.Split(strings.Trim(candidate, pathSeparatorConstant), pathSeparatorConstant)
	currentPath := ""
	for _, pathSegment := range pathSegments {
		currentPath = currentPath + pathSeparatorConstant + pathSegment
		if _, exists := fileSystem.Directories[currentPath]; !exists {
			fileSystem.Directories[currentPath] = permissions
		}
	}
	return nil
}

// ReadFile returns file contents.
func (fileSystem *MemoryFileSystem) ReadFile(candidate string) ([]byte, error) {
	if failure := fileSystem.pathFailure(candidate); failure != nil {
		return nil, failure
	}
	fileContent, exists := fileSystem.Files[candidate]
	if !exists {
		return nil, fs.ErrNotExist
	}
	return append([]byte(nil), fileContent...), nil
}

// WriteFile stores file contents and permission bits.
func (fileSystem *MemoryFileSystem) WriteFile(candidate string, data []byte, permissions fs.FileMode) error {
	if failure := fileSystem.pathFailure(candidate); failure != nil {
		return failure
	}
	fileSystem.Files[candidate] = append([]byte(nil), data...)
	fileSystem.FileModes[candidate] = permissions
	return nil
}

// Chmod updates recorded permission bits.
func (fileSystem *MemoryFileSystem) Chmod(candidate string, permissions fs.FileMode) error {
	if failure := fileSystem.pathFailure(candidate); failure != nil {
		return failure
	}
	if _, isDirectory := fileSystem.Directories[candidate]; isDirectory {
		fileSystem.Directories[candidate] = permissions
		return nil
	}
	if _, isFile := fileSystem.Files[candidate]; isFile {
		fileSystem.FileModes[candidate] = permissions
		return nil
	}
	return fs.ErrNotExist
}

// Symlink records a symbolic link.
func (fileSystem *MemoryFileSystem) Symlink(targetPath string, linkPath string) error {
	if failure := fileSystem.pathFailure(linkPath); failure != nil {
		return failure
	}
	if _, exists := fileSystem.Symlinks[linkPath]; exists {
		return fs.ErrExist
	}
	fileSystem.Symlinks[linkPath] = targetPath
	return nil
}

// Remove deletes a file, symlink, or empty directory.
func (fileSystem *MemoryFileSystem) Remove(candidate string) error {
	if failure := fileSystem.pathFailure(candidate); failure != nil {
		return failure
	}
	if _, isSymlink := fileSystem.Symlinks[candidate]; isSymlink {
		delete(fileSystem.Symlinks, candidate)
		return nil
	}
	if _, isFile := fileSystem.Files[candidate]; isFile {
		delete(fileSystem.Files, candidate)
		delete(fileSystem.FileModes, candidate)
		return nil
	}
	if _, isDirectory := fileSystem.Directories[candidate]; isDirectory {
		if len(fileSystem.childNames(candidate)) > 0 {
			return fmt.Errorf("directory not empty: %s", candidate)
		}
		delete(fileSystem.Directories, candidate)
		return nil
	}
	return fs.ErrNotExist
}

// RemoveAll deletes a path and everything below it.
func (fileSystem *MemoryFileSystem) RemoveAll(candidate string) error {
	if failure := fileSystem.pathFailure(candidate); failure != nil {
		return failure
	}
	childPrefix := candidate + pathSeparatorConstant
	for directoryPath := range fileSystem.Directories {
		if directoryPath == candidate || strings.HasPrefix(directoryPath, childPrefix) {
			delete(fileSystem.Directories, directoryPath)
		}
	}
	for filePath := range fileSystem.Files {
		if filePath == candidate || strings.HasPrefix(filePath, childPrefix) {
			delete(fileSystem.Files, filePath)
			delete(fileSystem.FileModes, filePath)
		}
	}
	for linkPath := range fileSystem.Symlinks {
		if linkPath == candidate || strings.HasPrefix(linkPath, childPrefix) {
			delete(fileSystem.Symlinks, linkPath)
		}
	}
	return nil
}

func (fileSystem *MemoryFileSystem) childNames(parentPath string) []string {
	childPrefix := parentPath + pathSeparatorConstant
	childSet := make(map[string]bool)
	collect := func(entryPath string) {
		if !strings.HasPrefix(entryPath, childPrefix) {
			return
		}
		remainder := strings.TrimPrefix(entryPath, childPrefix)
		childSet[strings.Split(remainder, pathSeparatorConstant)[0]] = true
	}
	for directoryPath := range fileSystem.Directories {
		collect(directoryPath)
	}
	for filePath := range fileSystem.Files {
		collect(filePath)
	}
	for linkPath := range fileSystem.Symlinks {
		collect(linkPath)
	}

	childNames := make([]string, 0, len(childSet))
	for childName := range childSet {
		childNames = append(childNames, childName)
	}
	sort.Strings(childNames)
	return childNames
}

// ReadDir lists direct children of a directory, sorted by name.
func (fileSystem *MemoryFileSystem) ReadDir(candidate string) ([]fs.DirEntry, error) {
	if failure := fileSystem.pathFailure(candidate); failure != nil {
		return nil, failure
	}
	if _, isDirectory := fileSystem.Directories[candidate]; !isDirectory {
		return nil, fs.ErrNotExist
	}

	var directoryEntries []fs.DirEntry
	for _, childName := range fileSystem.childNames(candidate) {
		childInfo, statError := fileSystem.Lstat(candidate + pathSeparatorConstant + childName)
		if statError != nil {
			continue
		}
		directoryEntries = append(directoryEntries, fs.FileInfoToDirEntry(childInfo))
	}
	return directoryEntries, nil
}

// WalkDir walks the tree rooted at root in lexical order.
func (fileSystem *MemoryFileSystem) WalkDir(root string, walkFunction fs.WalkDirFunc) error {
	rootInfo, rootStatError := fileSystem.Lstat(root)
	if rootStatError != nil {
		return walkFunction(root, nil, rootStatError)
	}
	return fileSystem.walkEntry(root, fs.FileInfoToDirEntry(rootInfo), walkFunction)
}

func (fileSystem *MemoryFileSystem) walkEntry(entryPath string, directoryEntry fs.DirEntry, walkFunction fs.WalkDirFunc) error {
	visitError := walkFunction(entryPath, directoryEntry, nil)
	if visitError != nil {
		if visitError == fs.SkipDir && directoryEntry.IsDir() {
			return nil
		}
		return visitError
	}
	if !directoryEntry.IsDir() {
		return nil
	}
	for _, childName := range fileSystem.childNames(entryPath) {
		childPath := entryPath + pathSeparatorConstant + childName
		childInfo, statError := fileSystem.Lstat(childPath)
		if statError != nil {
			continue
		}
		if walkError := fileSystem.walkEntry(childPath, fs.FileInfoToDirEntry(childInfo), walkFunction); walkError != nil {
			return walkError
		}
	}
	return nil
}

// CopyTree recursively copies a directory subtree.
func (fileSystem *MemoryFileSystem) CopyTree(sourcePath string, destinationPath string) error {
	if failure := fileSystem.pathFailure(sourcePath); failure != nil {
		return failure
	}
	if failure := fileSystem.pathFailure(destinationPath); failure != nil {
		return failure
	}
	if _, isDirectory := fileSystem.Directories[sourcePath]; !isDirectory {
		return fs.ErrNotExist
	}

	sourcePrefix := sourcePath + pathSeparatorConstant
	rewrite := func(entryPath string) string {
		return destinationPath + pathSeparatorConstant + strings.TrimPrefix(entryPath, sourcePrefix)
	}
	fileSystem.Directories[destinationPath] = fileSystem.Directories[sourcePath]
	for directoryPath, directoryMode := range fileSystem.Directories {
		if strings.HasPrefix(directoryPath, sourcePrefix) {
			fileSystem.Directories[rewrite(directoryPath)] = directoryMode
		}
	}
	for filePath, fileContent := range fileSystem.Files {
		if strings.HasPrefix(filePath, sourcePrefix) {
			copiedPath := rewrite(filePath)
			fileSystem.Files[copiedPath] = append([]byte(nil), fileContent...)
			fileSystem.FileModes[copiedPath] = fileSystem.FileModes[filePath]
		}
	}
	return nil
}

// TempDir allocates a fresh scratch directory under a fixed root.
func (fileSystem *MemoryFileSystem) TempDir(pattern string) (string, error) {
	fileSystem.temporaryDirectoryCount++
	temporaryPath := fmt.Sprintf("%s/%s%d", temporaryRootConstant, pattern, fileSystem.temporaryDirectoryCount)
	if creationError := fileSystem.MkdirAll(temporaryPath, defaultDirectoryModeMode); creationError != nil {
		return "", creationError
	}
	return temporaryPath, nil
}

type memoryFileInfo struct {
	name      string
	size      int64
	mode      fs.FileMode
	directory bool
}

func (info memoryFileInfo) Name() string       { return info.name }
func (info memoryFileInfo) Size() int64        { return info.size }
func (info memoryFileInfo) Mode() fs.FileMode  { return info.mode }
func (info memoryFileInfo) ModTime() time.Time { return time.Time{} }
func (info memoryFileInfo) IsDir() bool        { return info.directory }
func (info memoryFileInfo) Sys() any           { return nil }
