//go:build !unix && !windows

package platform

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
)

type unsupportedElevator struct{}

func newElevator(Options) Elevator {
	return unsupportedElevator{}
}

func isElevated() bool { return false }

func prepareCommand(*exec.Cmd) {}

func (unsupportedElevator) Hint() string { return "" }

func (unsupportedElevator) Replace(context.Context, string, string) error {
	return fmt.Errorf("platform: unsupported platform %s", runtime.GOOS)
}
