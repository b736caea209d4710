// ABOUTME: Write-permission check for file-backed stores without access(2)
// ABOUTME: Falls back to the owner write bit of the file mode

//go:build !unix

package dbms

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

func writable(location string) bool {
	fi, err := os.Stat(location)
	if errors.Is(err, fs.ErrNotExist) {
		fi, err = os.Stat(filepath.Dir(location))
	}
	return err == nil && fi.Mode().Perm()&0o200 != 0
}
