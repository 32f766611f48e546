package service

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// hostsWatcher watches the directory holding the hosts file, since the
// file itself is replaced rather than edited in place by most tools.
type hostsWatcher struct {
	path     string
	debounce time.Duration
	watcher  *fsnotify.Watcher
	logger   *zap.Logger
}

func newHostsWatcher(path string, debounce time.Duration, logger *zap.Logger) (*hostsWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(filepath.Dir(path)); err != nil {
		w.Close()
		return nil, err
	}
	return &hostsWatcher{
		path:     filepath.Clean(path),
		debounce: debounce,
		watcher:  w,
		logger:   logger,
	}, nil
}

// run sends on changed once per burst of events touching the hosts file.
func (w *hostsWatcher) run(ctx context.Context, changed chan<- struct{}) {
	defer w.watcher.Close()

	timer := time.NewTimer(0)
	if !timer.Stop() {
		select {
		case <-timer.C:
		default:
		}
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(e.Name) != w.path {
				continue
			}
			if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) && !e.Has(fsnotify.Rename) && !e.Has(fsnotify.Remove) {
				continue
			}
			w.logger.Debug("hosts event", zap.String("op", e.Op.String()))
			timer.Reset(w.debounce)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("hosts watcher error", zap.Error(err))
		case <-timer.C:
			select {
			case changed <- struct{}{}:
			default:
			}
		}
	}
}
