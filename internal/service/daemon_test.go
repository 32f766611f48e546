package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gajzzs/hostsbypass/internal/metrics"
	"github.com/gajzzs/hostsbypass/internal/status"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChecker struct {
	mu      sync.Mutex
	reports []status.Status
	calls   int
}

func (f *fakeChecker) Check(ctx context.Context) status.Report {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := f.reports[len(f.reports)-1]
	if f.calls < len(f.reports) {
		s = f.reports[f.calls]
	}
	f.calls++
	return status.Report{Status: s, Label: s.String()}
}

func (f *fakeChecker) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeInstaller struct {
	ok    bool
	calls atomic.Int32
}

func (f *fakeInstaller) Install(ctx context.Context) bool {
	f.calls.Add(1)
	return f.ok
}

func TestRefreshUpdatesOutdated(t *testing.T) {
	checker := &fakeChecker{reports: []status.Status{status.Outdated, status.UpToDate}}
	inst := &fakeInstaller{ok: true}
	d := NewDaemon(Config{AutoUpdate: true}, checker, inst, nil, nil)

	r := d.Refresh(context.Background())
	assert.Equal(t, status.UpToDate, r.Status)
	assert.EqualValues(t, 1, inst.calls.Load())
	assert.Equal(t, 2, checker.Calls())

	last, _, ok := d.Last()
	require.True(t, ok)
	assert.Equal(t, status.UpToDate, last.Status)
}

func TestRefreshLeavesOtherStates(t *testing.T) {
	for _, s := range []status.Status{status.NotInstalled, status.UpToDate} {
		checker := &fakeChecker{reports: []status.Status{s}}
		inst := &fakeInstaller{ok: true}
		d := NewDaemon(Config{AutoUpdate: true}, checker, inst, nil, nil)

		assert.Equal(t, s, d.Refresh(context.Background()).Status)
		assert.Zero(t, inst.calls.Load(), s.String())
	}
}

func TestRefreshWithoutAutoUpdate(t *testing.T) {
	checker := &fakeChecker{reports: []status.Status{status.Outdated}}
	inst := &fakeInstaller{ok: true}
	d := NewDaemon(Config{}, checker, inst, nil, nil)

	assert.Equal(t, status.Outdated, d.Refresh(context.Background()).Status)
	assert.Zero(t, inst.calls.Load())
}

func TestRefreshInstallFailure(t *testing.T) {
	checker := &fakeChecker{reports: []status.Status{status.Outdated}}
	inst := &fakeInstaller{ok: false}
	d := NewDaemon(Config{AutoUpdate: true}, checker, inst, nil, nil)

	assert.Equal(t, status.Outdated, d.Refresh(context.Background()).Status)
	assert.EqualValues(t, 1, inst.calls.Load())
	assert.Equal(t, 1, checker.Calls())
}

func TestHandler(t *testing.T) {
	checker := &fakeChecker{reports: []status.Status{status.UpToDate}}
	m := metrics.New()
	d := NewDaemon(Config{}, checker, nil, m, nil)
	srv := httptest.NewServer(d.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/status")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	d.Refresh(context.Background())

	resp, err = http.Get(srv.URL + "/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "up_to_date", body["status"])
	assert.Contains(t, body, "checked_at")

	m.FetchRequests.Inc()
	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRunWatchesHostsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hosts")
	require.NoError(t, os.WriteFile(path, []byte("127.0.0.1 localhost\n"), 0o644))

	checker := &fakeChecker{reports: []status.Status{status.UpToDate, status.Outdated}}
	inst := &fakeInstaller{ok: true}
	d := NewDaemon(Config{
		HostsPath:     path,
		CheckInterval: time.Hour,
		AutoUpdate:    true,
		WatchHosts:    true,
		Debounce:      20 * time.Millisecond,
	}, checker, inst, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	require.Eventually(t, func() bool { return checker.Calls() >= 1 }, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("# edited\n"), 0o644))
	require.Eventually(t, func() bool { return checker.Calls() >= 2 }, 5*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)

	last, _, _ := d.Last()
	assert.Equal(t, status.Outdated, last.Status)
	assert.Zero(t, inst.calls.Load(), "watcher rechecks must not reinstall")
}

func TestStartStop(t *testing.T) {
	checker := &fakeChecker{reports: []status.Status{status.UpToDate}}
	d := NewDaemon(Config{CheckInterval: time.Hour}, checker, nil, nil, nil)

	require.NoError(t, d.Start(nil))
	assert.Error(t, d.Start(nil))
	require.Eventually(t, func() bool { return checker.Calls() >= 1 }, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, d.Stop(nil))
	assert.Error(t, d.Stop(nil))
}
