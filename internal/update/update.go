// Package update checks whether a newer release of the application exists.
package update

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gajzzs/hostsbypass/internal/fetch"
)

const (
	DefaultDownloadURL = "https://github.com/AvenCores/Goida-AI-Unlocker"
	fallbackVersion    = "0.0.0"
)

var (
	ErrNoUpdateURL = errors.New("update: update url not found")
	ErrNoMetadata  = errors.New("update: could not fetch update metadata")
)

// AppInfo is the local app_info.json shipped next to the binary.
type AppInfo struct {
	Version       string `json:"version"`
	UpdateInfoURL string `json:"update_info_url"`
}

// Release is the remote update metadata.
type Release struct {
	Version     string `json:"version"`
	DownloadURL string `json:"download_url"`
}

type Result struct {
	Local       string
	Latest      string
	DownloadURL string
	Newer       bool
}

type Checker struct {
	appInfoPath string
	infoURL     string
	version     string
	client      *fetch.Client
	timeout     time.Duration
}

// NewChecker reads local metadata from appInfoPath. infoURL overrides the
// update_info_url found there, and version the local version when non-empty.
func NewChecker(client *fetch.Client, appInfoPath, infoURL, version string) *Checker {
	if client == nil {
		client = fetch.NewClient()
	}
	return &Checker{
		appInfoPath: appInfoPath,
		infoURL:     infoURL,
		version:     version,
		client:      client,
		timeout:     fetch.DefaultTimeout,
	}
}

// LoadAppInfo reads path. A missing or malformed file yields version 0.0.0.
func LoadAppInfo(path string) AppInfo {
	info := AppInfo{Version: fallbackVersion}
	if path == "" {
		return info
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return info
	}
	if err := json.Unmarshal(data, &info); err != nil {
		return AppInfo{Version: fallbackVersion}
	}
	if info.Version == "" {
		info.Version = fallbackVersion
	}
	return info
}

func (c *Checker) Check(ctx context.Context) (Result, error) {
	info := LoadAppInfo(c.appInfoPath)
	if c.version != "" {
		info.Version = c.version
	}
	if c.infoURL != "" {
		info.UpdateInfoURL = c.infoURL
	}
	if info.UpdateInfoURL == "" {
		return Result{}, ErrNoUpdateURL
	}

	body := c.client.Fetch(ctx, info.UpdateInfoURL, c.timeout, true)
	if body == "" {
		return Result{}, ErrNoMetadata
	}
	var rel Release
	if err := json.Unmarshal([]byte(body), &rel); err != nil {
		return Result{}, fmt.Errorf("update: decode metadata: %w", err)
	}
	if rel.Version == "" {
		rel.Version = fallbackVersion
	}
	if rel.DownloadURL == "" {
		rel.DownloadURL = DefaultDownloadURL
	}

	return Result{
		Local:       info.Version,
		Latest:      rel.Version,
		DownloadURL: rel.DownloadURL,
		Newer:       Compare(rel.Version, info.Version) > 0,
	}, nil
}

// ParseVersion splits a dotted version into its numeric components, ignoring
// a leading v and any non-numeric component.
func ParseVersion(v string) []int {
	v = strings.Trim(strings.TrimSpace(v), "vV")
	var parts []int
	for _, p := range strings.Split(v, ".") {
		if p == "" || strings.TrimLeft(p, "0123456789") != "" {
			continue
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			continue
		}
		parts = append(parts, n)
	}
	return parts
}

// Compare orders versions as integer tuples: it returns 1 if a > b, -1 if
// a < b and 0 if they are equal. A tuple that is a prefix of another is smaller.
func Compare(a, b string) int {
	pa, pb := ParseVersion(a), ParseVersion(b)
	for i := 0; i < len(pa) && i < len(pb); i++ {
		if pa[i] != pb[i] {
			return cmpInt(pa[i], pb[i])
		}
	}
	return cmpInt(len(pa), len(pb))
}

func cmpInt(a, b int) int {
	switch {
	case a > b:
		return 1
	case a < b:
		return -1
	default:
		return 0
	}
}
