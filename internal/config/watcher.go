package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/GabrielNunesIT/go-libs/logger"
	"github.com/fsnotify/fsnotify"
)

// Watcher reloads a config file when it changes so tunables such as the
// churn weights can be adjusted during a run.
//
// The parent directory is watched rather than the file itself: editors and
// config management tools usually replace the file by rename, which would
// silently end a watch on the old inode.
type Watcher struct {
	path     string
	onChange chan *Config
	onError  chan error
	debounce time.Duration
	mu       sync.Mutex
	last     *Config
	logger   logger.ILogger
}

// NewWatcher creates a config file watcher.
func NewWatcher(path string, log logger.ILogger) *Watcher {
	return &Watcher{
		path:     filepath.Clean(path),
		onChange: make(chan *Config, 1),
		onError:  make(chan error, 1),
		debounce: 100 * time.Millisecond,
		logger:   log.SubLogger("ConfigWatcher"),
	}
}

// Changes returns the channel that receives validated configs.
func (w *Watcher) Changes() <-chan *Config {
	return w.onChange
}

// Errors returns the channel that receives reload and watch errors.
func (w *Watcher) Errors() <-chan error {
	return w.onError
}

// Start begins watching. The watch ends when ctx is cancelled.
func (w *Watcher) Start(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating config watcher: %w", err)
	}

	dir := filepath.Dir(w.path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watching %s: %w", dir, err)
	}

	w.logger.Debugf("started watching config file: path=%s", w.path)
	go w.watchLoop(ctx, watcher)
	return nil
}

func (w *Watcher) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	defer watcher.Close()

	var debounceTimer *time.Timer
	var debounceChan <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			w.logger.Debug("config watcher stopped")
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}

			w.logger.Debugf("config file change detected: op=%s", event.Op)

			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.NewTimer(w.debounce)
			debounceChan = debounceTimer.C

		case <-debounceChan:
			debounceChan = nil
			w.reload()

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			w.logger.Errorf("fsnotify error: %v", err)
			w.sendError(err)
		}
	}
}

// reload loads and validates the file. Invalid configs are reported on the
// error channel and never reach Changes.
func (w *Watcher) reload() {
	cfg, err := Load(w.path)
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		w.logger.Errorf("failed to reload config: path=%s error=%v", w.path, err)
		w.sendError(err)
		return
	}

	w.mu.Lock()
	w.last = cfg
	w.mu.Unlock()

	w.logger.Infof("config reloaded: path=%s", w.path)

	select {
	case w.onChange <- cfg:
	default:
		// Replace the unread config with the newer one.
		select {
		case <-w.onChange:
		default:
		}
		w.onChange <- cfg
	}
}

func (w *Watcher) sendError(err error) {
	select {
	case w.onError <- err:
	default:
	}
}

// Last returns the last successfully loaded config.
func (w *Watcher) Last() *Config {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.last
}
