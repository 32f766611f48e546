package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	AppName   = "hostsbypass"
	envPrefix = "HOSTSBYPASS"
)

type Config struct {
	// HostsPath overrides the platform hosts file location.
	HostsPath string `yaml:"hosts_path"`
	// DataDir holds backups; defaults to the user config directory.
	DataDir string        `yaml:"data_dir"`
	Sources SourcesConfig `yaml:"sources"`
	Fetch   FetchConfig   `yaml:"fetch"`
	Install InstallConfig `yaml:"install"`
	Update  UpdateConfig  `yaml:"update"`
	Log     LogConfig     `yaml:"log"`
	Service ServiceConfig `yaml:"service"`
}

type SourcesConfig struct {
	HostsURL      string `yaml:"hosts_url"`
	AdditionalURL string `yaml:"additional_url"`
	BypassMarker  string `yaml:"bypass_marker"`
}

type FetchConfig struct {
	Timeout        time.Duration `yaml:"timeout"`
	CacheTTL       time.Duration `yaml:"cache_ttl"`
	StatusCacheTTL time.Duration `yaml:"status_cache_ttl"`
	StatusTimeout  time.Duration `yaml:"status_timeout"`
}

type InstallConfig struct {
	SettleDelay    time.Duration `yaml:"settle_delay"`
	CleanupRetries int           `yaml:"cleanup_retries"`
	CleanupDelay   time.Duration `yaml:"cleanup_delay"`
	// DefaultTemplate replaces the platform template restored by uninstall.
	DefaultTemplate string `yaml:"default_template"`
	Backup          bool   `yaml:"backup"`
}

type UpdateConfig struct {
	AppInfo string `yaml:"app_info"`
	InfoURL string `yaml:"info_url"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

type ServiceConfig struct {
	CheckInterval time.Duration `yaml:"check_interval"`
	AutoUpdate    bool          `yaml:"auto_update"`
	WatchHosts    bool          `yaml:"watch_hosts"`
	// Listen enables the /metrics and /status endpoint when set.
	Listen string `yaml:"listen"`
}

var defaults = map[string]any{
	"hosts_path":               "",
	"data_dir":                 "",
	"sources.hosts_url":        "https://raw.githubusercontent.com/ImMALWARE/dns.malw.link/refs/heads/master/hosts",
	"sources.additional_url":   "https://raw.githubusercontent.com/AvenCores/Goida-AI-Unlocker/refs/heads/main/additional_hosts.py",
	"sources.bypass_marker":    "dns.malw.link",
	"fetch.timeout":            "10s",
	"fetch.cache_ttl":          "5m",
	"fetch.status_cache_ttl":   "1m",
	"fetch.status_timeout":     "15s",
	"install.settle_delay":     "1s",
	"install.cleanup_retries":  3,
	"install.cleanup_delay":    "300ms",
	"install.default_template": "",
	"install.backup":           true,
	"update.app_info":          "",
	"update.info_url":          "",
	"log.level":                "info",
	"log.file":                 "",
	"service.check_interval":   "6h",
	"service.auto_update":      true,
	"service.watch_hosts":      true,
	"service.listen":           "",
}

func newViper() *viper.Viper {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// DefaultPath is the config file looked up when no path is given.
func DefaultPath() string {
	return filepath.Join(defaultDir(), "config.yaml")
}

func defaultDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, AppName)
}

// Load reads the config file at path, or DefaultPath when path is empty and
// that file exists. It returns the config and the file used, if any.
func Load(path string) (*Config, string, error) {
	v := newViper()

	if len(path) > 0 {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, "", fmt.Errorf("failed to read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(defaultDir())
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, "", fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	decoderOpt := func(cfg *mapstructure.DecoderConfig) {
		cfg.ErrorUnused = true
		cfg.TagName = "yaml"
		cfg.WeaklyTypedInput = true
	}

	cfg := new(Config)
	if err := v.Unmarshal(cfg, decoderOpt); err != nil {
		return nil, "", fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.resolve()
	return cfg, v.ConfigFileUsed(), nil
}

func (c *Config) resolve() {
	if c.DataDir == "" {
		c.DataDir = defaultDir()
	}
	if c.Update.AppInfo == "" {
		if exe, err := os.Executable(); err == nil {
			c.Update.AppInfo = filepath.Join(filepath.Dir(exe), "app_info.json")
		}
	}
}

// BackupDir is where hosts backups are written, or "" when disabled.
func (c *Config) BackupDir() string {
	if !c.Install.Backup {
		return ""
	}
	return filepath.Join(c.DataDir, "hosts_backups")
}

// DefaultYAML renders the default settings as a config file.
func DefaultYAML() ([]byte, error) {
	return yaml.Marshal(newViper().AllSettings())
}

// WriteDefault writes the default settings to path unless it already exists.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file %s already exists", path)
	}
	data, err := DefaultYAML()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// YAML renders c for display.
func (c *Config) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}
