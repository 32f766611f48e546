//go:build !windows

package hosts

func systemPath() string {
	return "/etc/hosts"
}
