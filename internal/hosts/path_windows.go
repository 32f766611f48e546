//go:build windows

package hosts

import (
	"path/filepath"

	"golang.org/x/sys/windows"
)

func systemPath() string {
	dir, err := windows.GetSystemDirectory()
	if err != nil || dir == "" {
		dir = `C:\Windows\System32`
	}
	return filepath.Join(dir, "drivers", "etc", "hosts")
}
