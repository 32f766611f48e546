package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gajzzs/hostsbypass/internal/metrics"
	"github.com/gajzzs/hostsbypass/internal/status"
	"github.com/kardianos/service"
	"go.uber.org/zap"
)

const (
	DefaultCheckInterval = 6 * time.Hour
	defaultDebounce      = 2 * time.Second
)

// StatusChecker reports the current hosts status.
type StatusChecker interface {
	Check(ctx context.Context) status.Report
}

// Installer rewrites the hosts file with fresh remote content.
type Installer interface {
	Install(ctx context.Context) bool
}

type Config struct {
	HostsPath     string
	CheckInterval time.Duration
	AutoUpdate    bool
	WatchHosts    bool
	Listen        string
	Debounce      time.Duration
}

// Daemon periodically checks the hosts status and reinstalls the bypass
// when it falls behind the remote source.
type Daemon struct {
	cfg       Config
	checker   StatusChecker
	installer Installer
	metrics   *metrics.Metrics
	logger    *zap.Logger

	mu        sync.Mutex
	last      status.Report
	checkedAt time.Time
	checked   bool

	cancel context.CancelFunc
	done   chan struct{}
}

func NewDaemon(cfg Config, checker StatusChecker, installer Installer, m *metrics.Metrics, logger *zap.Logger) *Daemon {
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = DefaultCheckInterval
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = defaultDebounce
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Daemon{
		cfg:       cfg,
		checker:   checker,
		installer: installer,
		metrics:   m,
		logger:    logger,
	}
}

// Start implements service.Interface. It must not block.
func (d *Daemon) Start(s service.Service) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cancel != nil {
		return fmt.Errorf("daemon already running")
	}

	ctx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel
	d.done = make(chan struct{})
	go func() {
		defer close(d.done)
		if err := d.Run(ctx); err != nil {
			d.logger.Error("daemon exited", zap.Error(err))
		}
	}()
	d.logger.Info("hostsbypass daemon started", zap.Duration("interval", d.cfg.CheckInterval))
	return nil
}

// Stop implements service.Interface.
func (d *Daemon) Stop(s service.Service) error {
	d.mu.Lock()
	cancel, done := d.cancel, d.done
	d.cancel = nil
	d.mu.Unlock()
	if cancel == nil {
		return fmt.Errorf("daemon not running")
	}

	d.logger.Info("stopping hostsbypass daemon")
	cancel()
	<-done
	return nil
}

// Run checks immediately and then on every tick until ctx is done. Hosts
// file changes trigger an extra check when watching is enabled.
func (d *Daemon) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	defer wg.Wait()

	if len(d.cfg.Listen) > 0 {
		srv := &http.Server{Addr: d.cfg.Listen, Handler: d.Handler()}
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.logger.Info("http endpoint listening", zap.String("addr", d.cfg.Listen))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				d.logger.Error("http endpoint exited", zap.Error(err))
			}
		}()
		go func() {
			<-ctx.Done()
			shutdownCtx, c := context.WithTimeout(context.Background(), 5*time.Second)
			defer c()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	changed := make(chan struct{}, 1)
	if d.cfg.WatchHosts {
		w, err := newHostsWatcher(d.cfg.HostsPath, d.cfg.Debounce, d.logger)
		if err != nil {
			d.logger.Warn("hosts watcher disabled", zap.Error(err))
		} else {
			wg.Add(1)
			go func() {
				defer wg.Done()
				w.run(ctx, changed)
			}()
		}
	}

	d.Refresh(ctx)

	ticker := time.NewTicker(d.cfg.CheckInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			d.Refresh(ctx)
		case <-changed:
			d.logger.Info("hosts file changed, rechecking")
			d.refresh(ctx, false)
		}
	}
}

// Refresh runs one status check and, when the bypass is outdated and auto
// update is on, reinstalls it.
func (d *Daemon) Refresh(ctx context.Context) status.Report {
	return d.refresh(ctx, d.cfg.AutoUpdate)
}

// refresh never updates on watcher events, otherwise its own write would
// trigger the next install.
func (d *Daemon) refresh(ctx context.Context, update bool) status.Report {
	r := d.checker.Check(ctx)
	d.logger.Info("hosts status", zap.Stringer("status", r.Status), zap.String("remote_date", r.RemoteDate))

	if r.Status == status.Outdated && update && d.installer != nil {
		if d.installer.Install(ctx) {
			d.logger.Info("hosts bypass updated")
			r = d.checker.Check(ctx)
		} else {
			d.logger.Warn("hosts bypass update failed")
		}
	}

	d.mu.Lock()
	d.last, d.checkedAt, d.checked = r, time.Now(), true
	d.mu.Unlock()
	return r
}

// Last returns the latest report and when it was taken. ok is false
// before the first check.
func (d *Daemon) Last() (r status.Report, at time.Time, ok bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.last, d.checkedAt, d.checked
}
