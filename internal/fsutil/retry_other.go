//go:build !windows

package fsutil

import (
	"errors"
	"io/fs"
)

func retryable(err error) bool {
	return errors.Is(err, fs.ErrPermission)
}
