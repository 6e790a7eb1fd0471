package socket

import (
	"os"
	"path/filepath"
	"strconv"
)

// DefaultPath is where the daemon listens when no path is configured:
// $XDG_RUNTIME_DIR/idlehook.sock, or a per-user file in the temp dir.
func DefaultPath() string {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, "idlehook.sock")
	}
	return filepath.Join(os.TempDir(), "idlehook-"+strconv.Itoa(os.Getuid())+".sock")
}

// removeStale deletes a socket left behind by an earlier run.
func removeStale(path string) error {
	info, err := os.Lstat(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if info.Mode()&os.ModeSocket == 0 {
		return &os.PathError{Op: "listen", Path: path, Err: os.ErrExist}
	}
	return os.Remove(path)
}
