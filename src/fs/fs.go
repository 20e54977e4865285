// Package fs provides filesystem helpers, most notably ProjectFilesystem which
// resolves and manipulates paths relative to the root of the repo.
package fs

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/op/go-logging.v1"
)

var log = logging.MustGetLogger("fs")

// DirPermissions are the default permission bits we apply to directories.
const DirPermissions = os.ModeDir | 0775

// A ProjectFilesystem is rooted at the repo root; all paths passed to it are interpreted
// relative to that unless they're absolute.
// It is immutable and safe for concurrent use.
type ProjectFilesystem struct {
	root string
}

// NewProjectFilesystem returns a new ProjectFilesystem rooted at the given directory.
func NewProjectFilesystem(root string) (*ProjectFilesystem, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	return &ProjectFilesystem{root: abs}, nil
}

// Root returns the absolute path to the root of this filesystem.
func (pfs *ProjectFilesystem) Root() string {
	return pfs.root
}

// Resolve returns the absolute form of a path relative to the root.
func (pfs *ProjectFilesystem) Resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(pfs.root, path)
}

// Relativize returns a path relative to the root. Paths outside the root are returned unchanged.
func (pfs *ProjectFilesystem) Relativize(path string) string {
	if rel := strings.TrimPrefix(path, pfs.root); rel != path {
		return strings.TrimLeft(rel, "/")
	}
	return path
}

// Exists returns true if the given path exists, as a file or a directory.
func (pfs *ProjectFilesystem) Exists(path string) bool {
	_, err := os.Lstat(pfs.Resolve(path))
	return err == nil
}

// IsFile returns true if the given path exists and is a file.
func (pfs *ProjectFilesystem) IsFile(path string) bool {
	info, err := os.Stat(pfs.Resolve(path))
	return err == nil && !info.IsDir()
}

// IsDir returns true if the given path exists and is a directory.
func (pfs *ProjectFilesystem) IsDir(path string) bool {
	info, err := os.Stat(pfs.Resolve(path))
	return err == nil && info.IsDir()
}

// MkdirAll creates the given directory and any of its parents.
func (pfs *ProjectFilesystem) MkdirAll(path string) error {
	return os.MkdirAll(pfs.Resolve(path), DirPermissions)
}

// DeleteRecursivelyIfExists removes the given path and everything under it.
func (pfs *ProjectFilesystem) DeleteRecursivelyIfExists(path string) error {
	return os.RemoveAll(pfs.Resolve(path))
}

// MakeCleanDirectory ensures the given directory exists and is empty.
func (pfs *ProjectFilesystem) MakeCleanDirectory(path string) error {
	if err := pfs.DeleteRecursivelyIfExists(path); err != nil {
		return err
	}
	return pfs.MkdirAll(path)
}

// ReadFile reads the entire contents of a file.
func (pfs *ProjectFilesystem) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(pfs.Resolve(path))
}

// ReadFileIfItExists reads a file, returning false if it doesn't exist.
// Other failures to read it are still returned as errors.
func (pfs *ProjectFilesystem) ReadFileIfItExists(path string) ([]byte, bool, error) {
	b, err := pfs.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	return b, err == nil, err
}

// WriteFile writes data from a reader to the given path, with an attempt to perform
// a write & rename to avoid chaos if anything goes wrong partway.
func (pfs *ProjectFilesystem) WriteFile(from io.Reader, path string, mode os.FileMode) error {
	return WriteFile(from, pfs.Resolve(path), mode)
}

// WriteFile writes data from a reader to the file named 'to', with an attempt to perform
// a write & rename to avoid chaos if anything goes wrong partway.
func WriteFile(from io.Reader, to string, mode os.FileMode) error {
	dir, file := filepath.Split(to)
	if err := os.MkdirAll(dir, DirPermissions); err != nil {
		return err
	}
	tempFile, err := os.CreateTemp(dir, file)
	if err != nil {
		return err
	}
	defer os.Remove(tempFile.Name()) // no-op once renamed
	if _, err := io.Copy(tempFile, from); err != nil {
		tempFile.Close()
		return err
	}
	if err := tempFile.Close(); err != nil {
		return err
	}
	if mode == 0 {
		mode = 0664
	}
	if err := os.Chmod(tempFile.Name(), mode); err != nil {
		return err
	}
	return os.Rename(tempFile.Name(), to)
}
