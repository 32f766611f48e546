//go:build windows

package fsutil

import (
	"errors"
	"io/fs"

	"golang.org/x/sys/windows"
)

// retryable also covers files held open by another process, such as a
// virus scanner or the elevated helper that has not exited yet.
func retryable(err error) bool {
	return errors.Is(err, fs.ErrPermission) ||
		errors.Is(err, windows.ERROR_SHARING_VIOLATION) ||
		errors.Is(err, windows.ERROR_LOCK_VIOLATION)
}
