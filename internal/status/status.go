// Package status decides whether the installed bypass is present and current.
package status

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/gajzzs/hostsbypass/internal/fetch"
	"github.com/gajzzs/hostsbypass/internal/hosts"
	"github.com/gajzzs/hostsbypass/internal/metrics"
)

type Status int

const (
	NotInstalled Status = iota
	UpToDate
	Outdated
)

func (s Status) String() string {
	switch s {
	case NotInstalled:
		return "not_installed"
	case UpToDate:
		return "up_to_date"
	case Outdated:
		return "outdated"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

const (
	ColorOK  = "#43b581"
	ColorBad = "#e06c75"

	// DefaultTimeout bounds the concurrent remote lookups of one check.
	DefaultTimeout = 15 * time.Second
)

// Report is the outcome of one status check.
type Report struct {
	Status     Status `json:"status"`
	Label      string `json:"label"`
	Color      string `json:"color"`
	RemoteDate string `json:"remote_date"`
}

func newReport(s Status, remoteDate string) Report {
	r := Report{Status: s, RemoteDate: remoteDate}
	switch s {
	case UpToDate:
		r.Label, r.Color = "Актуально", ColorOK
	case Outdated:
		r.Label, r.Color = "Устарело", ColorBad
	default:
		r.Label, r.Color = "Не установлен", ColorBad
	}
	return r
}

type Config struct {
	HostsPath     string
	Marker        string
	HostsURL      string
	AdditionalURL string
	// FetchTimeout bounds each remote request, Timeout the whole remote phase.
	FetchTimeout time.Duration
	Timeout      time.Duration
}

type Oracle struct {
	cfg      Config
	client   *fetch.Client
	logger   *zap.Logger
	metrics  *metrics.Metrics
	readFile func(string) ([]byte, error)
}

// NewOracle creates an oracle fetching through client, which should carry
// the short status cache TTL.
func NewOracle(cfg Config, client *fetch.Client, logger *zap.Logger, m *metrics.Metrics) *Oracle {
	if cfg.Marker == "" {
		cfg.Marker = hosts.DefaultBypassMarker
	}
	if cfg.HostsPath == "" {
		cfg.HostsPath = hosts.Path()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if client == nil {
		client = fetch.NewClient(fetch.WithCacheTTL(fetch.StatusCacheTTL))
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Oracle{cfg: cfg, client: client, logger: logger, metrics: m, readFile: os.ReadFile}
}

// Installed reports whether the hosts file carries the bypass marker.
func (o *Oracle) Installed() bool {
	return hosts.IsInstalled(o.cfg.HostsPath, o.cfg.Marker)
}

// Check compares the local version markers against the remote ones. It never
// fails: unexpected errors report Outdated.
func (o *Oracle) Check(ctx context.Context) (r Report) {
	defer func() {
		if p := recover(); p != nil {
			o.logger.Error("status check panicked", zap.Any("panic", p))
			r = newReport(Outdated, "")
		}
		if o.metrics != nil {
			o.metrics.StatusChecks.WithLabelValues(r.Status.String()).Inc()
			o.metrics.LastCheckUnix.SetToCurrentTime()
		}
	}()

	if !o.Installed() {
		return newReport(NotInstalled, "")
	}

	raw, err := o.readFile(o.cfg.HostsPath)
	if err != nil {
		o.logger.Warn("read hosts file", zap.String("path", o.cfg.HostsPath), zap.Error(err))
		return newReport(Outdated, "")
	}
	localLine, _ := hosts.ExtractUpdateLine(raw)
	localAdd := hosts.ExtractAdditionalVersion(hosts.Decode(raw))

	remoteLine, remoteDate, remoteAdd, err := o.fetchRemote(ctx)
	if err != nil {
		o.logger.Error("remote status lookup failed", zap.Error(err))
		return newReport(Outdated, "")
	}

	mainMatch := localLine == remoteLine && strings.HasPrefix(localLine, "#")
	var addMatch bool
	if remoteAdd != "" {
		addMatch = localAdd == remoteAdd
	} else {
		addMatch = localAdd == ""
	}

	o.logger.Debug("status compared",
		zap.String("local_line", localLine),
		zap.String("remote_line", remoteLine),
		zap.String("local_additional", localAdd),
		zap.String("remote_additional", remoteAdd))

	if mainMatch && addMatch {
		return newReport(UpToDate, remoteDate)
	}
	return newReport(Outdated, remoteDate)
}

// fetchRemote looks up the remote markers concurrently. Fetch failures
// collapse to ""; only a panic in a lookup is returned as an error.
func (o *Oracle) fetchRemote(ctx context.Context) (line, date, addVersion string, err error) {
	ctx, cancel := context.WithTimeout(ctx, o.cfg.Timeout)
	defer cancel()

	var g errgroup.Group
	g.Go(safe(func() {
		content := o.client.Fetch(ctx, o.cfg.HostsURL, o.cfg.FetchTimeout, true)
		line, date = hosts.ExtractUpdateLine([]byte(content))
	}))
	g.Go(safe(func() {
		addVersion = o.client.FetchAdditional(ctx, o.cfg.AdditionalURL, o.cfg.FetchTimeout).Version
	}))
	if err := g.Wait(); err != nil {
		return "", "", "", err
	}
	return line, date, addVersion, nil
}

func safe(fn func()) func() error {
	return func() (err error) {
		defer func() {
			if p := recover(); p != nil {
				err = fmt.Errorf("status: lookup panicked: %v", p)
			}
		}()
		fn()
		return nil
	}
}
