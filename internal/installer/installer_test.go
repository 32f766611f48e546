package installer

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gajzzs/hostsbypass/internal/fetch"
	"github.com/gajzzs/hostsbypass/internal/fsutil"
	"github.com/gajzzs/hostsbypass/internal/hosts"
	"github.com/gajzzs/hostsbypass/internal/metrics"
	"github.com/gajzzs/hostsbypass/internal/status"
)

const remoteHosts = "# dns.malw.link hosts\n# Последнее обновление: 2024-01-01\n1.2.3.4 a.example\n"

const remoteAdditional = "version_add = \"9\"\nhosts_add = \"\"\"\n    5.5.5.5 e.example\n\"\"\"\n"

// copyElevator stands in for the privileged copy.
type copyElevator struct {
	calls   int
	srcSeen string
	err     error
	panics  bool
}

func (e *copyElevator) Hint() string { return "hint" }

func (e *copyElevator) Replace(_ context.Context, src, dst string) error {
	e.calls++
	e.srcSeen = src
	if e.panics {
		panic("boom")
	}
	if e.err != nil {
		return e.err
	}
	return fsutil.CopyFile(src, dst, 0o644)
}

type fixture struct {
	srv       *httptest.Server
	hostsPath string
	tempDir   string
	elevator  *copyElevator
	slept     []time.Duration
	inst      *Installer
}

func newFixture(t *testing.T, hostsBody, additionalBody string) *fixture {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/hosts", func(w http.ResponseWriter, _ *http.Request) {
		if hostsBody == "" {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(hostsBody))
	})
	mux.HandleFunc("/additional", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(additionalBody))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	f := &fixture{
		srv:       srv,
		hostsPath: filepath.Join(dir, "hosts"),
		tempDir:   filepath.Join(dir, "tmp"),
		elevator:  &copyElevator{},
	}
	require.NoError(t, os.MkdirAll(f.tempDir, 0o755))
	require.NoError(t, os.WriteFile(f.hostsPath, []byte(hosts.DefaultTemplate("linux")), 0o644))

	client := fetch.NewClient(fetch.WithHTTPClient(srv.Client()))
	f.inst = New(Config{
		HostsPath:     f.hostsPath,
		HostsURL:      srv.URL + "/hosts",
		AdditionalURL: srv.URL + "/additional",
		FetchTimeout:  time.Second,
		TempDir:       f.tempDir,
		BackupDir:     filepath.Join(dir, "backups"),
	}, client, f.elevator,
		WithCleaner(fsutil.NewCleaner(3, 0, nil)),
		WithMetrics(metrics.New()),
		WithSleep(func(d time.Duration) { f.slept = append(f.slept, d) }),
	)
	return f
}

func (f *fixture) oracle() *status.Oracle {
	client := fetch.NewClient(fetch.WithHTTPClient(f.srv.Client()), fetch.WithCacheTTL(0))
	return status.NewOracle(status.Config{
		HostsPath:     f.hostsPath,
		HostsURL:      f.srv.URL + "/hosts",
		AdditionalURL: f.srv.URL + "/additional",
		FetchTimeout:  time.Second,
	}, client, nil, nil)
}

func assertTempDirEmpty(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestInstallComposesAndCleansUp(t *testing.T) {
	t.Parallel()

	f := newFixture(t, remoteHosts, remoteAdditional)
	require.True(t, f.inst.Install(context.Background()))

	data, err := os.ReadFile(f.hostsPath)
	require.NoError(t, err)
	content := string(data)
	assert.True(t, strings.HasPrefix(content, remoteHosts))
	assert.Contains(t, content, "\n# additional_hosts_version 9\n5.5.5.5 e.example\n")

	assert.Equal(t, 1, f.elevator.calls)
	assert.Equal(t, f.tempDir, filepath.Dir(f.elevator.srcSeen))
	assertTempDirEmpty(t, f.tempDir)
	assert.Equal(t, []time.Duration{DefaultSettleDelay}, f.slept)
}

func TestInstallThenStatusIsUpToDate(t *testing.T) {
	t.Parallel()

	f := newFixture(t, remoteHosts, remoteAdditional)
	o := f.oracle()
	assert.Equal(t, status.NotInstalled, o.Check(context.Background()).Status)

	require.True(t, f.inst.Install(context.Background()))
	assert.Equal(t, status.UpToDate, o.Check(context.Background()).Status)

	require.True(t, f.inst.Uninstall(context.Background()))
	assert.Equal(t, status.NotInstalled, o.Check(context.Background()).Status)
}

func TestInstallWithoutAdditionalBlock(t *testing.T) {
	t.Parallel()

	f := newFixture(t, remoteHosts, "garbage")
	require.True(t, f.inst.Install(context.Background()))

	data, err := os.ReadFile(f.hostsPath)
	require.NoError(t, err)
	assert.Equal(t, remoteHosts, string(data))
	assert.Equal(t, status.UpToDate, f.oracle().Check(context.Background()).Status)
}

func TestInstallRefusesEmptyContent(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "", remoteAdditional)
	assert.False(t, f.inst.Install(context.Background()))
	assert.Equal(t, 0, f.elevator.calls)

	data, err := os.ReadFile(f.hostsPath)
	require.NoError(t, err)
	assert.Equal(t, hosts.DefaultTemplate("linux"), string(data))
	assert.Empty(t, f.slept)
}

func TestInstallElevationFailure(t *testing.T) {
	t.Parallel()

	f := newFixture(t, remoteHosts, "")
	f.elevator.err = errors.New("user cancelled")

	assert.False(t, f.inst.Install(context.Background()))
	assert.Equal(t, 1, f.elevator.calls)
	assertTempDirEmpty(t, f.tempDir)
	assert.Empty(t, f.slept)
	assert.Equal(t, "hint", f.inst.Hint())
}

func TestInstallRecoversPanic(t *testing.T) {
	t.Parallel()

	f := newFixture(t, remoteHosts, "")
	f.elevator.panics = true

	assert.False(t, f.inst.Install(context.Background()))
	assertTempDirEmpty(t, f.tempDir)
}

func TestUninstallRestoresTemplateAndBacksUp(t *testing.T) {
	t.Parallel()

	f := newFixture(t, remoteHosts, "")
	require.True(t, f.inst.Install(context.Background()))
	require.True(t, f.inst.Uninstall(context.Background()))

	data, err := os.ReadFile(f.hostsPath)
	require.NoError(t, err)
	assert.Equal(t, hosts.SystemDefault(), string(data))

	backups, err := os.ReadDir(filepath.Join(filepath.Dir(f.hostsPath), "backups"))
	require.NoError(t, err)
	require.NotEmpty(t, backups)
	assert.True(t, strings.HasPrefix(backups[0].Name(), "hosts.bak."))
	assertTempDirEmpty(t, f.tempDir)
}

func TestUninstallCustomTemplate(t *testing.T) {
	t.Parallel()

	f := newFixture(t, remoteHosts, "")
	f.inst.cfg.DefaultTemplate = "127.0.0.1 custom\n"
	require.True(t, f.inst.Uninstall(context.Background()))

	data, err := os.ReadFile(f.hostsPath)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1 custom\n", string(data))
}
