package app

import (
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/gajzzs/hostsbypass/internal/config"
	"github.com/gajzzs/hostsbypass/internal/dns"
	"github.com/gajzzs/hostsbypass/internal/fetch"
	"github.com/gajzzs/hostsbypass/internal/fsutil"
	"github.com/gajzzs/hostsbypass/internal/hosts"
	"github.com/gajzzs/hostsbypass/internal/installer"
	"github.com/gajzzs/hostsbypass/internal/metrics"
	"github.com/gajzzs/hostsbypass/internal/mlog"
	"github.com/gajzzs/hostsbypass/internal/platform"
	"github.com/gajzzs/hostsbypass/internal/service"
	"github.com/gajzzs/hostsbypass/internal/status"
	"github.com/gajzzs/hostsbypass/internal/system"
	"github.com/gajzzs/hostsbypass/internal/update"
)

// Version is the application version, set at build time. When empty the
// version from app_info.json is used.
var Version string

// Runtime holds the components shared by all commands.
type Runtime struct {
	Config     *config.Config
	ConfigFile string // file the config was read from, if any
	HostsPath  string

	Logger     *zap.Logger
	Metrics    *metrics.Metrics
	Cleaner    *fsutil.Cleaner
	Monitor    *system.Monitor
	Flusher    *dns.Flusher
	Elevator   platform.Elevator
	Fetcher    *fetch.Client
	Oracle     *status.Oracle
	Installer  *installer.Installer
	Updater    *update.Checker
	Dispatcher *Dispatcher
}

var (
	current       *Runtime
	requestedPath string
)

// Setup loads the configuration, initializes logging and builds the
// runtime used by the commands.
func Setup(configPath string) error {
	requestedPath = configPath
	cfg, used, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := mlog.Init(cfg.Log.Level, cfg.Log.File); err != nil {
		return fmt.Errorf("failed to init logger: %w", err)
	}
	current = NewRuntime(cfg, used, mlog.L())
	return nil
}

// Shutdown removes temporary files whose cleanup had to be deferred.
func Shutdown() {
	if current != nil {
		current.Cleaner.Flush()
	}
	mlog.Sync()
}

func rt() *Runtime {
	if current == nil {
		panic("app: Setup was not called")
	}
	return current
}

func NewRuntime(cfg *config.Config, configFile string, logger *zap.Logger) *Runtime {
	r := &Runtime{
		Config:     cfg,
		ConfigFile: configFile,
		HostsPath:  cfg.HostsPath,
		Logger:     logger,
		Metrics:    metrics.New(),
		Monitor:    system.NewMonitor(),
		Dispatcher: NewDispatcher(),
	}
	if r.HostsPath == "" {
		r.HostsPath = hosts.Path()
	}

	r.Cleaner = fsutil.NewCleaner(cfg.Install.CleanupRetries, cfg.Install.CleanupDelay, logger)
	r.Flusher = dns.NewFlusher(dns.WithLogger(logger), dns.WithDetector(r.Monitor.DNSCaches))
	r.Elevator = platform.NewElevator(platform.Options{
		Flusher: r.Flusher,
		Cleaner: r.Cleaner,
		Logger:  logger,
	})

	r.Fetcher = fetch.NewClient(
		fetch.WithTimeout(cfg.Fetch.Timeout),
		fetch.WithCacheTTL(cfg.Fetch.CacheTTL),
		fetch.WithLogger(logger),
		fetch.WithMetrics(r.Metrics),
	)
	statusFetcher := fetch.NewClient(
		fetch.WithTimeout(cfg.Fetch.Timeout),
		fetch.WithCacheTTL(cfg.Fetch.StatusCacheTTL),
		fetch.WithLogger(logger),
		fetch.WithMetrics(r.Metrics),
	)

	r.Oracle = status.NewOracle(status.Config{
		HostsPath:     r.HostsPath,
		Marker:        cfg.Sources.BypassMarker,
		HostsURL:      cfg.Sources.HostsURL,
		AdditionalURL: cfg.Sources.AdditionalURL,
		FetchTimeout:  cfg.Fetch.Timeout,
		Timeout:       cfg.Fetch.StatusTimeout,
	}, statusFetcher, logger, r.Metrics)

	r.Installer = installer.New(installer.Config{
		HostsPath:       r.HostsPath,
		HostsURL:        cfg.Sources.HostsURL,
		AdditionalURL:   cfg.Sources.AdditionalURL,
		FetchTimeout:    cfg.Fetch.Timeout,
		SettleDelay:     cfg.Install.SettleDelay,
		DefaultTemplate: cfg.Install.DefaultTemplate,
		BackupDir:       cfg.BackupDir(),
	}, r.Fetcher, r.Elevator,
		installer.WithCleaner(r.Cleaner),
		installer.WithLogger(logger),
		installer.WithMetrics(r.Metrics),
	)

	r.Updater = update.NewChecker(r.Fetcher, cfg.Update.AppInfo, cfg.Update.InfoURL, Version)
	return r
}

// Daemon builds the background refresher from the runtime's components.
func (r *Runtime) Daemon() *service.Daemon {
	return service.NewDaemon(service.Config{
		HostsPath:     r.HostsPath,
		CheckInterval: r.Config.Service.CheckInterval,
		AutoUpdate:    r.Config.Service.AutoUpdate,
		WatchHosts:    r.Config.Service.WatchHosts,
		Listen:        r.Config.Service.Listen,
	}, r.Oracle, r.Installer, r.Metrics, r.Logger.Named("service"))
}

// serviceConfigPath is the absolute config file the installed service
// should read, or "" to use the defaults.
func (r *Runtime) serviceConfigPath() string {
	if r.ConfigFile == "" {
		return ""
	}
	if abs, err := filepath.Abs(r.ConfigFile); err == nil {
		return abs
	}
	return r.ConfigFile
}

func configInitPath() string {
	if len(requestedPath) > 0 {
		return requestedPath
	}
	return config.DefaultPath()
}
