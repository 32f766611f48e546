package update

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gajzzs/hostsbypass/internal/fetch"
)

func TestCompare(t *testing.T) {
	t.Parallel()

	tests := []struct {
		a, b string
		want int
	}{
		{"1.2.10", "1.2.9", 1},
		{"1.2.9", "1.2.10", -1},
		{"v1.2.3", "1.2.3", 0},
		{"1.2", "1.2.0", -1},
		{"2.0", "1.99.99", 1},
		{"1.x.3", "1.3", 0},
		{"", "0.0.1", -1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Compare(tt.a, tt.b), "%s vs %s", tt.a, tt.b)
	}
}

func TestParseVersion(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []int{1, 2, 10}, ParseVersion("V1.2.10"))
	assert.Equal(t, []int{1, 3}, ParseVersion("1.rc.3"))
	assert.Empty(t, ParseVersion("dev"))
}

func writeAppInfo(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "app_info.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestCheckNewerRelease(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"version":"1.2.10","download_url":"https://example.com/dl"}`))
	}))
	defer srv.Close()

	path := writeAppInfo(t, `{"version":"1.2.9","update_info_url":"`+srv.URL+`"}`)
	c := NewChecker(fetch.NewClient(fetch.WithHTTPClient(srv.Client())), path, "", "")

	res, err := c.Check(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Newer)
	assert.Equal(t, "1.2.9", res.Local)
	assert.Equal(t, "1.2.10", res.Latest)
	assert.Equal(t, "https://example.com/dl", res.DownloadURL)
}

func TestCheckNoUpdateAndDefaults(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"version":"1.0.0"}`))
	}))
	defer srv.Close()

	c := NewChecker(fetch.NewClient(fetch.WithHTTPClient(srv.Client())), "", srv.URL, "1.0.0")
	res, err := c.Check(context.Background())
	require.NoError(t, err)
	assert.False(t, res.Newer)
	assert.Equal(t, DefaultDownloadURL, res.DownloadURL)
}

func TestCheckErrors(t *testing.T) {
	t.Parallel()

	_, err := NewChecker(nil, filepath.Join(t.TempDir(), "missing.json"), "", "").Check(context.Background())
	assert.True(t, errors.Is(err, ErrNoUpdateURL))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()
	_, err = NewChecker(fetch.NewClient(fetch.WithHTTPClient(srv.Client())), "", srv.URL, "").Check(context.Background())
	assert.True(t, errors.Is(err, ErrNoMetadata))

	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer bad.Close()
	_, err = NewChecker(fetch.NewClient(fetch.WithHTTPClient(bad.Client())), "", bad.URL, "").Check(context.Background())
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNoMetadata))
}

func TestLoadAppInfo(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "0.0.0", LoadAppInfo("").Version)
	assert.Equal(t, "0.0.0", LoadAppInfo(writeAppInfo(t, "{broken")).Version)
	info := LoadAppInfo(writeAppInfo(t, `{"version":"2.1","update_info_url":"u"}`))
	assert.Equal(t, AppInfo{Version: "2.1", UpdateInfoURL: "u"}, info)
}
