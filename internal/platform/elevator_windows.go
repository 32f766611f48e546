//go:build windows

package platform

import (
	"context"
	"fmt"
	"os/exec"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sys/windows"

	"github.com/gajzzs/hostsbypass/internal/fsutil"
)

type windowsElevator struct {
	cleaner *fsutil.Cleaner
	logger  *zap.Logger
	tempDir string
	run     Runner
}

func newElevator(opts Options) Elevator {
	return &windowsElevator{
		cleaner: opts.Cleaner,
		logger:  opts.Logger,
		tempDir: opts.TempDir,
		run:     runCommand,
	}
}

func isElevated() bool {
	return windows.GetCurrentProcessToken().IsElevated()
}

func prepareCommand(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		HideWindow:    true,
		CreationFlags: windows.CREATE_NO_WINDOW,
	}
}

func (e *windowsElevator) Hint() string {
	return "Запустите программу от имени Администратора."
}

func (e *windowsElevator) Replace(ctx context.Context, src, dst string) error {
	script, err := fsutil.WriteTemp(e.tempDir, "hostsbypass-*.ps1", HelperScript(src, dst))
	if err != nil {
		return fmt.Errorf("platform: write helper script: %w", err)
	}
	defer e.cleaner.Remove(script)

	e.logger.Info("requesting administrator rights", zap.String("dst", dst))
	if err := e.run(ctx, "powershell", "-NoProfile", "-WindowStyle", "Hidden", "-Command", ElevateCommand(script)); err != nil {
		if _, ok := exitCode(err); ok {
			return fmt.Errorf("%w: %v", ErrElevationDenied, err)
		}
		return fmt.Errorf("platform: powershell: %w", err)
	}
	return nil
}
