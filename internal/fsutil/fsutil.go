// Package fsutil creates the temporary files used during hosts replacement
// and removes them again, deferring stubborn ones to process exit.
package fsutil

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultRetries = 3
	DefaultDelay   = 300 * time.Millisecond
)

// WriteTemp creates a new file in dir (os.TempDir when empty) named after
// pattern and writes content to it.
func WriteTemp(dir, pattern, content string) (string, error) {
	f, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return "", fmt.Errorf("fsutil: create temp file: %w", err)
	}
	name := f.Name()
	if _, err := f.WriteString(content); err != nil {
		f.Close()
		os.Remove(name)
		return "", fmt.Errorf("fsutil: write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(name)
		return "", fmt.Errorf("fsutil: close temp file: %w", err)
	}
	return name, nil
}

// CopyFile copies src to dst, creating or truncating dst with perm.
func CopyFile(src, dst string, perm fs.FileMode) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("fsutil: read %s: %w", src, err)
	}
	if err := os.WriteFile(dst, data, perm); err != nil {
		return fmt.Errorf("fsutil: write %s: %w", dst, err)
	}
	return nil
}

// Cleaner removes files on a best-effort basis.
type Cleaner struct {
	retries int
	delay   time.Duration
	remove  func(string) error
	sleep   func(time.Duration)
	logger  *zap.Logger

	mu       sync.Mutex
	deferred []string
}

func NewCleaner(retries int, delay time.Duration, logger *zap.Logger) *Cleaner {
	if retries <= 0 {
		retries = DefaultRetries
	}
	if delay < 0 {
		delay = DefaultDelay
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cleaner{
		retries: retries,
		delay:   delay,
		remove:  os.Remove,
		sleep:   time.Sleep,
		logger:  logger,
	}
}

// Remove deletes path. Permission errors and transient file locks are
// retried with a delay; a file that still exists afterwards is queued for
// Flush.
func (c *Cleaner) Remove(path string) {
	if path == "" {
		return
	}
	for i := 0; i < c.retries; i++ {
		err := c.remove(path)
		if err == nil || errors.Is(err, fs.ErrNotExist) {
			return
		}
		if !retryable(err) {
			c.logger.Debug("remove temp file", zap.String("path", path), zap.Error(err))
			break
		}
		c.sleep(c.delay)
	}
	if _, err := os.Lstat(path); err == nil {
		c.mu.Lock()
		c.deferred = append(c.deferred, path)
		c.mu.Unlock()
		c.logger.Debug("temp file removal deferred to exit", zap.String("path", path))
	}
}

// Pending returns the paths waiting for Flush.
func (c *Cleaner) Pending() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.deferred))
	copy(out, c.deferred)
	return out
}

// Flush makes a last removal attempt for every deferred path. It is run at
// process exit.
func (c *Cleaner) Flush() {
	c.mu.Lock()
	paths := c.deferred
	c.deferred = nil
	c.mu.Unlock()
	for _, p := range paths {
		if err := c.remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			c.logger.Debug("remove deferred temp file", zap.String("path", p), zap.Error(err))
		}
	}
}
