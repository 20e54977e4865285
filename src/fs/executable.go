package fs

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FindExecutable locates a tool. Names containing a slash are treated as paths (with ~
// expanded) and must exist; anything else is searched for on the given colon-separated path.
func FindExecutable(name, path string) (string, error) {
	if strings.ContainsRune(name, '/') {
		name = ExpandHomePath(name)
		if err := isExecutable(name); err != nil {
			return "", fmt.Errorf("%s is not executable: %w", name, err)
		}
		return name, nil
	}
	for _, dir := range filepath.SplitList(ExpandHomePath(path)) {
		if dir == "" {
			continue
		}
		candidate := filepath.Join(dir, name)
		if isExecutable(candidate) == nil {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%s not found on path %s: %w", name, path, os.ErrNotExist)
}

// isExecutable returns an error if a given file is not an executable.
func isExecutable(path string) error {
	stat, err := os.Stat(path)
	if err != nil {
		return err
	}
	mode := stat.Mode()
	if !mode.IsRegular() || (mode&0111) == 0 {
		return os.ErrPermission
	}
	return nil
}
