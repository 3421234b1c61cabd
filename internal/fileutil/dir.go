package fileutil

import (
	"fmt"
	"os"
	"path/filepath"
)

// EnsureDir creates path and any missing parents with mode 0755.
// An existing directory is not an error.
func EnsureDir(path string) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("create directory %s: %w", path, err)
	}
	return nil
}

// EnsureDirForFile creates the parent directory of filePath.
func EnsureDirForFile(filePath string) error {
	if err := EnsureDir(filepath.Dir(filePath)); err != nil {
		return fmt.Errorf("ensure dir for %s: %w", filePath, err)
	}
	return nil
}

// RemoveDir deletes path and everything below it. A missing path is not an
// error. Refuses to delete an empty path or a filesystem root.
func RemoveDir(path string) error {
	clean := filepath.Clean(path)
	if path == "" || clean == string(filepath.Separator) || clean == "." {
		return fmt.Errorf("refusing to remove %q", path)
	}
	if err := os.RemoveAll(clean); err != nil {
		return fmt.Errorf("remove directory %s: %w", clean, err)
	}
	return nil
}
