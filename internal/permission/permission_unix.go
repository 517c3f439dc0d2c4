//go:build unix

package permission

import (
	"os"

	"golang.org/x/sys/unix"
)

func writable(dir string) error {
	if err := unix.Access(dir, unix.W_OK|unix.X_OK); err != nil {
		if err == unix.EACCES || err == unix.EROFS || err == unix.EPERM {
			return &os.PathError{Op: "access", Path: dir, Err: os.ErrPermission}
		}

		return &os.PathError{Op: "access", Path: dir, Err: err}
	}

	return nil
}
