// Package fetch downloads remote hosts content with a short-lived in-memory cache.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/gajzzs/hostsbypass/internal/hosts"
	"github.com/gajzzs/hostsbypass/internal/metrics"
)

const (
	DefaultTimeout  = 10 * time.Second
	DefaultCacheTTL = 300 * time.Second
	// StatusCacheTTL is the TTL used by version-status checks.
	StatusCacheTTL = 60 * time.Second

	userAgent = "hostsbypass"
)

// HTTPClient is the subset of *http.Client the fetcher needs.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type Option func(*Client)

func WithHTTPClient(h HTTPClient) Option {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
		}
	}
}

// WithCache shares an existing cache with the client.
func WithCache(cache *Cache) Option {
	return func(c *Client) {
		if cache != nil {
			c.cache = cache
		}
	}
}

func WithCacheTTL(ttl time.Duration) Option {
	return func(c *Client) {
		c.cache = NewCache(ttl)
	}
}

// WithTimeout sets the timeout used when Fetch is called without one.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

type Client struct {
	httpClient HTTPClient
	cache      *Cache
	timeout    time.Duration
	now        func() time.Time
	logger     *zap.Logger
	metrics    *metrics.Metrics
}

func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient: http.DefaultClient,
		cache:      NewCache(DefaultCacheTTL),
		timeout:    DefaultTimeout,
		now:        time.Now,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Cache returns the cache owned by the client.
func (c *Client) Cache() *Cache {
	return c.cache
}

// Fetch returns the body served at rawURL, or "" if it cannot be fetched.
// Content younger than the cache TTL is returned without network access.
// When bust is set a timestamp query parameter defeats intermediary caches;
// the cache key is always the URL as given.
func (c *Client) Fetch(ctx context.Context, rawURL string, timeout time.Duration, bust bool) string {
	now := c.now()
	if content, ok := c.cache.Get(rawURL, now); ok {
		if c.metrics != nil {
			c.metrics.FetchCacheHits.Inc()
		}
		return content
	}

	if timeout <= 0 {
		timeout = c.timeout
	}
	if c.metrics != nil {
		c.metrics.FetchRequests.Inc()
	}
	content, err := c.get(ctx, rawURL, timeout, bust, now)
	if err != nil {
		if c.metrics != nil {
			c.metrics.FetchFailures.Inc()
		}
		c.logger.Debug("fetch failed", zap.String("url", rawURL), zap.Error(err))
		return ""
	}
	c.cache.Set(rawURL, content, now)
	return content
}

// FetchAdditional fetches and parses the additional hosts resource. Any
// failure yields an empty block.
func (c *Client) FetchAdditional(ctx context.Context, rawURL string, timeout time.Duration) hosts.Additional {
	raw := c.Fetch(ctx, rawURL, timeout, true)
	if raw == "" {
		return hosts.Additional{}
	}
	return hosts.ParseAdditional(raw)
}

func (c *Client) get(ctx context.Context, rawURL string, timeout time.Duration, bust bool, now time.Time) (string, error) {
	target := rawURL
	if bust {
		var err error
		if target, err = withTimestamp(rawURL, now); err != nil {
			return "", err
		}
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", fmt.Errorf("fetch: build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("fetch: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("fetch: read body: %w", err)
	}
	return hosts.Decode(body), nil
}

// withTimestamp appends t=<unix seconds> to rawURL, leaving the rest of
// the URL as given.
func withTimestamp(rawURL string, now time.Time) (string, error) {
	if _, err := url.Parse(rawURL); err != nil {
		return "", fmt.Errorf("fetch: parse url: %w", err)
	}
	base, fragment, hasFragment := strings.Cut(rawURL, "#")
	sep := "?"
	switch {
	case strings.HasSuffix(base, "?"), strings.HasSuffix(base, "&"):
		sep = ""
	case strings.Contains(base, "?"):
		sep = "&"
	}
	out := base + sep + "t=" + strconv.FormatInt(now.Unix(), 10)
	if hasFragment {
		out += "#" + fragment
	}
	return out, nil
}
