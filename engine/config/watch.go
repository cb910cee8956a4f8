package config

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/Carmen-Shannon/oxy-view/common"
	"github.com/fsnotify/fsnotify"
)

// Watcher reloads a configuration file whenever it changes on disk.
type Watcher interface {
	// Close stops watching. It is safe to call more than once.
	//
	// Returns:
	//   - error: an error if the underlying watcher fails to close
	Close() error
}

type watcher struct {
	fs       *fsnotify.Watcher
	path     string
	onChange func(Config)
	done     chan struct{}
	wg       sync.WaitGroup
	once     sync.Once
	closeErr error
}

var _ Watcher = &watcher{}

// Watch starts watching the file at path and calls onChange from a background goroutine with
// every successfully parsed revision. A revision that fails to parse is logged and skipped, so
// the last good configuration stays in effect.
//
// The containing directory is watched rather than the file itself, which keeps the watch alive
// across editors that save by writing a new file and renaming it into place.
//
// Parameters:
//   - path: the TOML file to watch
//   - onChange: receives each new configuration
//
// Returns:
//   - Watcher: the running watcher
//   - error: an error if the watch cannot be established
func Watch(path string, onChange func(Config)) (Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config path: %w", err)
	}
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create config watcher: %w", err)
	}
	if err := fs.Add(filepath.Dir(abs)); err != nil {
		fs.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}

	w := &watcher{
		fs:       fs,
		path:     abs,
		onChange: onChange,
		done:     make(chan struct{}),
	}
	w.wg.Add(1)
	go w.loop()
	return w, nil
}

func (w *watcher) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path || !event.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}
			w.reload()
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			common.Logger().Warn("config watcher error", "path", w.path, "err", err)
		}
	}
}

func (w *watcher) reload() {
	cfg, err := Load(w.path)
	if err != nil {
		common.Logger().Warn("ignoring config change", "err", err)
		return
	}
	common.Logger().Info("config reloaded", "path", w.path)
	w.onChange(cfg)
}

func (w *watcher) Close() error {
	w.once.Do(func() {
		close(w.done)
		w.closeErr = w.fs.Close()
		w.wg.Wait()
	})
	return w.closeErr
}
