// ABOUTME: Write-permission check for file-backed stores on unix systems
// ABOUTME: Uses access(2) so the answer reflects the effective user and mount flags

//go:build unix

package dbms

import (
	"errors"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// writable reports whether the process may write location. A store file
// that does not exist yet is writable when its directory is.
func writable(location string) bool {
	err := unix.Access(location, unix.W_OK)
	if errors.Is(err, unix.ENOENT) {
		return unix.Access(filepath.Dir(location), unix.W_OK) == nil
	}
	return err == nil
}
