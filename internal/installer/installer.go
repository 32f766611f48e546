// Package installer installs the bypass hosts content and restores the default
// hosts file through a platform.Elevator.
package installer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/gajzzs/hostsbypass/internal/fetch"
	"github.com/gajzzs/hostsbypass/internal/fsutil"
	"github.com/gajzzs/hostsbypass/internal/hosts"
	"github.com/gajzzs/hostsbypass/internal/metrics"
	"github.com/gajzzs/hostsbypass/internal/platform"
)

// DefaultSettleDelay lets the OS pick up the new file before status is re-checked.
const DefaultSettleDelay = time.Second

// ErrEmptyContent is returned when the remote hosts content could not be fetched.
var ErrEmptyContent = errors.New("installer: remote hosts content is empty")

type Config struct {
	HostsPath     string
	HostsURL      string
	AdditionalURL string
	FetchTimeout  time.Duration
	SettleDelay   time.Duration
	// DefaultTemplate is restored by Uninstall; the platform default when empty.
	DefaultTemplate string
	TempDir         string
	// BackupDir receives a copy of the hosts file before each replacement.
	// Backups are disabled when empty.
	BackupDir string
}

type Option func(*Installer)

func WithCleaner(c *fsutil.Cleaner) Option {
	return func(i *Installer) {
		if c != nil {
			i.cleaner = c
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(i *Installer) {
		if l != nil {
			i.logger = l
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(i *Installer) {
		i.metrics = m
	}
}

// WithSleep replaces the settle-delay sleeper.
func WithSleep(sleep func(time.Duration)) Option {
	return func(i *Installer) {
		if sleep != nil {
			i.sleep = sleep
		}
	}
}

type Installer struct {
	cfg      Config
	client   *fetch.Client
	elevator platform.Elevator
	cleaner  *fsutil.Cleaner
	logger   *zap.Logger
	metrics  *metrics.Metrics
	sleep    func(time.Duration)
	now      func() time.Time
}

func New(cfg Config, client *fetch.Client, elevator platform.Elevator, opts ...Option) *Installer {
	if cfg.HostsPath == "" {
		cfg.HostsPath = hosts.Path()
	}
	if cfg.SettleDelay == 0 {
		cfg.SettleDelay = DefaultSettleDelay
	}
	if cfg.DefaultTemplate == "" {
		cfg.DefaultTemplate = hosts.SystemDefault()
	}
	i := &Installer{
		cfg:      cfg,
		client:   client,
		elevator: elevator,
		cleaner:  fsutil.NewCleaner(fsutil.DefaultRetries, fsutil.DefaultDelay, nil),
		logger:   zap.NewNop(),
		sleep:    time.Sleep,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Hint is shown to the user when an operation fails.
func (i *Installer) Hint() string {
	return i.elevator.Hint()
}

// Install fetches the bypass content and installs it as the hosts file.
func (i *Installer) Install(ctx context.Context) bool {
	return i.do(ctx, "install", func() (string, error) {
		base := i.client.Fetch(ctx, i.cfg.HostsURL, i.cfg.FetchTimeout, true)
		if base == "" {
			return "", ErrEmptyContent
		}
		add := i.client.FetchAdditional(ctx, i.cfg.AdditionalURL, i.cfg.FetchTimeout)
		if !add.Empty() {
			i.logger.Info("appending additional hosts", zap.String("version", add.Version))
		}
		return hosts.Compose(base, add), nil
	})
}

// Uninstall restores the default hosts template.
func (i *Installer) Uninstall(ctx context.Context) bool {
	return i.do(ctx, "uninstall", func() (string, error) {
		return i.cfg.DefaultTemplate, nil
	})
}

func (i *Installer) do(ctx context.Context, action string, content func() (string, error)) (ok bool) {
	defer func() {
		if p := recover(); p != nil {
			i.logger.Error("hosts operation panicked", zap.String("action", action), zap.Any("panic", p))
			ok = false
		}
		if i.metrics != nil {
			result := "success"
			if !ok {
				result = "failure"
			}
			i.metrics.Operations.WithLabelValues(action, result).Inc()
		}
	}()

	if err := i.apply(ctx, content); err != nil {
		i.logger.Error("hosts operation failed", zap.String("action", action), zap.Error(err))
		return false
	}
	i.logger.Info("hosts file replaced", zap.String("action", action), zap.String("path", i.cfg.HostsPath))
	return true
}

func (i *Installer) apply(ctx context.Context, content func() (string, error)) error {
	payload, err := content()
	if err != nil {
		return err
	}

	tmp, err := fsutil.WriteTemp(i.cfg.TempDir, "hostsbypass-*.txt", payload)
	if err != nil {
		return err
	}
	defer i.cleaner.Remove(tmp)

	i.backup()

	if err := i.elevator.Replace(ctx, tmp, i.cfg.HostsPath); err != nil {
		return err
	}
	i.sleep(i.cfg.SettleDelay)
	return nil
}

func (i *Installer) backup() {
	if i.cfg.BackupDir == "" {
		return
	}
	if _, err := os.Stat(i.cfg.HostsPath); err != nil {
		return
	}
	if err := os.MkdirAll(i.cfg.BackupDir, 0o755); err != nil {
		i.logger.Warn("create backup dir", zap.Error(err))
		return
	}
	name := fmt.Sprintf("hosts.bak.%s", i.now().Format("20060102-150405"))
	if err := fsutil.CopyFile(i.cfg.HostsPath, filepath.Join(i.cfg.BackupDir, name), 0o644); err != nil {
		i.logger.Warn("backup hosts file", zap.Error(err))
		return
	}
	i.logger.Debug("hosts file backed up", zap.String("file", name))
}
