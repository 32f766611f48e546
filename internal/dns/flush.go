// Package dns flushes local DNS resolver caches after the hosts file changes.
package dns

import (
	"context"
	"os/exec"
	"runtime"
	"strings"

	"go.uber.org/zap"
)

// Runner executes one command and reports whether it succeeded.
type Runner func(ctx context.Context, name string, args ...string) error

func execRunner(ctx context.Context, name string, args ...string) error {
	return exec.CommandContext(ctx, name, args...).Run()
}

// Commands returns the cache flush commands known for goos, in the order
// they should be tried.
func Commands(goos string) [][]string {
	switch goos {
	case "linux":
		return [][]string{
			{"resolvectl", "flush-caches"},
			{"systemd-resolve", "--flush-caches"},
			{"/etc/init.d/nscd", "restart"},
			{"killall", "-HUP", "dnsmasq"},
		}
	case "darwin":
		return [][]string{
			{"dscacheutil", "-flushcache"},
			{"killall", "-HUP", "mDNSResponder"},
		}
	default:
		// Windows flushes from the elevated helper script.
		return nil
	}
}

type Flusher struct {
	commands [][]string
	run      Runner
	detect   func() []string
	logger   *zap.Logger
}

type Option func(*Flusher)

func WithRunner(r Runner) Option {
	return func(f *Flusher) {
		if r != nil {
			f.run = r
		}
	}
}

func WithCommands(cmds [][]string) Option {
	return func(f *Flusher) {
		f.commands = cmds
	}
}

// WithDetector sets a hook listing the cache daemons found running; they
// are logged before a flush.
func WithDetector(detect func() []string) Option {
	return func(f *Flusher) {
		f.detect = detect
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(f *Flusher) {
		if l != nil {
			f.logger = l
		}
	}
}

func NewFlusher(opts ...Option) *Flusher {
	f := &Flusher{
		commands: Commands(runtime.GOOS),
		run:      execRunner,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Flush tries each command until one succeeds. Failures are ignored.
func (f *Flusher) Flush(ctx context.Context) {
	if f.detect != nil {
		if caches := f.detect(); len(caches) > 0 {
			f.logger.Info("flushing dns caches", zap.Strings("running", caches))
		}
	}
	for _, c := range f.commands {
		if err := f.run(ctx, c[0], c[1:]...); err != nil {
			f.logger.Debug("dns flush command failed", zap.String("cmd", strings.Join(c, " ")), zap.Error(err))
			continue
		}
		f.logger.Debug("dns cache flushed", zap.String("cmd", strings.Join(c, " ")))
		return
	}
}

// ShellChain renders the commands as a shell expression that never fails,
// for use inside an elevated shell.
func (f *Flusher) ShellChain() string {
	parts := make([]string, 0, len(f.commands)+1)
	for _, c := range f.commands {
		parts = append(parts, strings.Join(c, " "))
	}
	parts = append(parts, "true")
	return strings.Join(parts, " || ")
}
