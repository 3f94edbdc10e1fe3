package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"github.com/five82/sheetsync/internal/logging"
)

const defaultWatchDebounce = 250 * time.Millisecond

// Watcher reloads the config file when it changes on disk and hands the new
// Config to a callback. Invalid edits are logged and ignored, so the running
// process keeps its last good configuration.
type Watcher struct {
	path     string
	debounce time.Duration
	onChange func(Config)
	watcher  *fsnotify.Watcher
	logger   *logrus.Entry

	mu    sync.Mutex
	timer *time.Timer
}

// NewWatcher watches path. The parent directory is watched rather than the
// file so editors that replace the file on save are still seen.
func NewWatcher(path string, debounce time.Duration, onChange func(Config)) (*Watcher, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return nil, err
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fsw.Add(filepath.Dir(resolved)); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(resolved), err)
	}
	if debounce <= 0 {
		debounce = defaultWatchDebounce
	}
	return &Watcher{
		path:     resolved,
		debounce: debounce,
		onChange: onChange,
		watcher:  fsw,
		logger:   logging.NewLogger("config-watcher"),
	}, nil
}

// Run processes events until ctx is cancelled, then releases the watcher.
func (w *Watcher) Run(ctx context.Context) {
	defer w.stop()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			w.logger.Debugf("fsnotify event: %s op=%v", event.Name, event.Op)
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				w.schedule()
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.WithError(err).Error("watcher error")
		case <-ctx.Done():
			return
		}
	}
}

// schedule coalesces bursts of writes into one reload after the debounce.
func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.reload)
}

func (w *Watcher) reload() {
	cfg, err := Load(w.path)
	if err != nil {
		w.logger.WithError(err).Warn("config reload failed; keeping previous settings")
		return
	}
	w.logger.Infof("config reloaded: %s", filepath.Base(w.path))
	if w.onChange != nil {
		w.onChange(cfg)
	}
}

func (w *Watcher) stop() {
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.mu.Unlock()
	_ = w.watcher.Close()
}
