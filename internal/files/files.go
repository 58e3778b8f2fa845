// Package files prepares the on-disk locations mirage writes to.
package files

import (
	"fmt"
	"os"

	"github.com/mirage-net/mirage/internal/perms"
)

// EnsureSecureDir creates path (and any missing parents) with perms.SecureDir.
// An existing path must be a real directory, not a symlink, that grants nothing beyond perms.SecureDir.
// Existing permissions are reported, never repaired.
func EnsureSecureDir(path string) error {
	if path == "" {
		return fmt.Errorf("directory path cannot be empty")
	}

	if err := os.MkdirAll(path, perms.SecureDir); err != nil {
		return fmt.Errorf("could not create directory '%s': %w", path, err)
	}

	info, err := os.Lstat(path)
	if err != nil {
		return fmt.Errorf("could not stat directory '%s': %w", path, err)
	}

	switch {
	case info.Mode()&os.ModeSymlink != 0:
		return fmt.Errorf("path '%s' is a symlink, not a directory", path)
	case !info.IsDir():
		return fmt.Errorf("path '%s' is not a directory", path)
	case !withinMode(info.Mode().Perm(), perms.SecureDir):
		return fmt.Errorf(
			"directory '%s' is too permissive (%#o, want %#o or more restrictive)",
			path,
			info.Mode().Perm(),
			perms.SecureDir,
		)
	}

	return nil
}

// withinMode reports whether actual grants no permission bit that limit does not.
func withinMode(actual os.FileMode, limit os.FileMode) bool {
	return actual&^limit == 0
}
