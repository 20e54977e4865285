package fs

import (
	"os"
	"path/filepath"

	"github.com/karrick/godirwalk"
)

// Walk implements an equivalent to filepath.Walk, visiting entries in lexical order.
// It's implemented over github.com/karrick/godirwalk but the provided interface doesn't use that
// to make it a little easier to handle.
func Walk(rootPath string, callback func(name string, isDir bool) error) error {
	// Compatibility with filepath.Walk which allows passing a file as the root argument.
	if info, err := os.Lstat(rootPath); err != nil {
		return err
	} else if !info.IsDir() {
		return callback(rootPath, false)
	}
	return godirwalk.Walk(rootPath, &godirwalk.Options{Callback: func(name string, info *godirwalk.Dirent) error {
		return callback(name, info.IsDir())
	}})
}

// Files returns every file under the given path (which may itself be a file), relative to the
// root, in lexical order.
func (pfs *ProjectFilesystem) Files(path string) ([]string, error) {
	var files []string
	if err := Walk(pfs.Resolve(path), func(name string, isDir bool) error {
		if !isDir {
			files = append(files, pfs.Relativize(filepath.Clean(name)))
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return files, nil
}
