package apitools

import (
	"path/filepath"
	"sync"
	"time"

	"mcphub/pkg/logging"

	"github.com/fsnotify/fsnotify"
)

// watcher triggers the reload callback when the tool config file changes.
// Editors often emit bursts of write events, so changes are debounced.
const debounceInterval = 250 * time.Millisecond

type watcher struct {
	fs       *fsnotify.Watcher
	done     chan struct{}
	stopOnce sync.Once
}

func newWatcher(configPath string, onChange func()) (*watcher, error) {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	// Watch the directory: editors replace files on save, which would
	// otherwise drop a watch on the file itself.
	dir := filepath.Dir(configPath)
	if err := fs.Add(dir); err != nil {
		fs.Close()
		return nil, err
	}

	w := &watcher{fs: fs, done: make(chan struct{})}
	target := filepath.Clean(configPath)

	go func() {
		var timer *time.Timer
		var timerC <-chan time.Time
		for {
			select {
			case <-w.done:
				if timer != nil {
					timer.Stop()
				}
				return
			case event, ok := <-fs.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
					continue
				}
				if timer == nil {
					timer = time.NewTimer(debounceInterval)
					timerC = timer.C
				} else {
					timer.Reset(debounceInterval)
				}
			case <-timerC:
				logging.Info("APIToolBridge", "Config file changed, reloading")
				onChange()
			case err, ok := <-fs.Errors:
				if !ok {
					return
				}
				logging.Warn("APIToolBridge", "Config watcher error: %v", err)
			}
		}
	}()

	return w, nil
}

func (w *watcher) stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		w.fs.Close()
	})
}
