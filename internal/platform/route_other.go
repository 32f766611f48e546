//go:build !linux

package platform

func defaultInterface() string {
	return ""
}
