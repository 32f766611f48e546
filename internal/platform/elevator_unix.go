//go:build unix

package platform

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	"github.com/gajzzs/hostsbypass/internal/dns"
	"github.com/gajzzs/hostsbypass/internal/fsutil"
)

// pkexec exit statuses for a dismissed dialog and a failed authorization.
const (
	pkexecDismissed    = 126
	pkexecUnauthorized = 127
)

type unixElevator struct {
	flusher *dns.Flusher
	logger  *zap.Logger
	geteuid func() int
	run     Runner
}

func newElevator(opts Options) Elevator {
	return &unixElevator{
		flusher: opts.Flusher,
		logger:  opts.Logger,
		geteuid: unix.Geteuid,
		run:     runCommand,
	}
}

func isElevated() bool {
	return unix.Geteuid() == 0
}

func prepareCommand(*exec.Cmd) {}

func (e *unixElevator) Hint() string {
	return "Введите пароль root при запросе."
}

func (e *unixElevator) Replace(ctx context.Context, src, dst string) error {
	if e.geteuid() == 0 {
		if err := fsutil.CopyFile(src, dst, 0o644); err != nil {
			return fmt.Errorf("platform: replace %s: %w", dst, err)
		}
		// WriteFile keeps the mode of an existing file.
		if err := os.Chmod(dst, 0o644); err != nil {
			return fmt.Errorf("platform: chmod %s: %w", dst, err)
		}
		e.flusher.Flush(ctx)
		return nil
	}

	script := fmt.Sprintf("cp %s %s && chmod 644 %s && %s",
		shellQuote(src), shellQuote(dst), shellQuote(dst), e.flusher.ShellChain())
	e.logger.Info("requesting root via pkexec", zap.String("dst", dst))
	if err := e.run(ctx, "pkexec", "bash", "-c", script); err != nil {
		if code, ok := exitCode(err); ok && (code == pkexecDismissed || code == pkexecUnauthorized) {
			return fmt.Errorf("%w: pkexec exit status %d", ErrElevationDenied, code)
		}
		return fmt.Errorf("platform: pkexec: %w", err)
	}
	return nil
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
