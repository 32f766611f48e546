// Package platform replaces the system hosts file with elevated privileges.
// The implementation is chosen per GOOS at build time.
package platform

import (
	"context"
	"errors"
	"os/exec"

	"go.uber.org/zap"

	"github.com/gajzzs/hostsbypass/internal/dns"
	"github.com/gajzzs/hostsbypass/internal/fsutil"
)

// ErrElevationDenied means the user dismissed or failed the privilege prompt.
var ErrElevationDenied = errors.New("platform: elevation denied")

// Elevator copies a file over a privileged destination and flushes DNS caches.
type Elevator interface {
	Replace(ctx context.Context, src, dst string) error
	// Hint tells the user how to grant the privileges the platform needs.
	Hint() string
}

// Runner runs an external command to completion.
type Runner func(ctx context.Context, name string, args ...string) error

type Options struct {
	Flusher *dns.Flusher
	Cleaner *fsutil.Cleaner
	Logger  *zap.Logger
	// TempDir holds helper scripts; os.TempDir when empty.
	TempDir string
}

// NewElevator returns the elevator for the running platform.
func NewElevator(opts Options) Elevator {
	if opts.Flusher == nil {
		opts.Flusher = dns.NewFlusher()
	}
	if opts.Cleaner == nil {
		opts.Cleaner = fsutil.NewCleaner(0, fsutil.DefaultDelay, opts.Logger)
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return newElevator(opts)
}

// IsElevated reports whether the process already runs with administrative rights.
func IsElevated() bool {
	return isElevated()
}

func runCommand(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	prepareCommand(cmd)
	return cmd.Run()
}

func exitCode(err error) (int, bool) {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), true
	}
	return 0, false
}
