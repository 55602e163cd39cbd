package config

import (
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/dshills/keywarp/internal/logging"
)

// Watcher watches a single layout file and fires a callback when it
// changes. The parent directory is watched rather than the file itself so
// editors that replace the file on save are still seen. Bursts of events
// are debounced into one callback.
type Watcher struct {
	watcher  *fsnotify.Watcher
	path     string
	onChange func()

	debounce time.Duration
	log      *logging.Logger

	closeCh   chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup

	totalEvents atomic.Uint64
}

// DefaultDebounce is how long the watcher waits for a burst to settle.
const DefaultDebounce = 250 * time.Millisecond

// NewWatcher starts watching the layout file at path.
func NewWatcher(path string, onChange func(), log *logging.Logger) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		fsw.Close()
		return nil, err
	}

	w := &Watcher{
		watcher:  fsw,
		path:     abs,
		onChange: onChange,
		debounce: DefaultDebounce,
		log:      log.WithComponent("watcher"),
		closeCh:  make(chan struct{}),
	}
	w.wg.Add(1)
	go w.loop()
	return w, nil
}

func (w *Watcher) loop() {
	defer w.wg.Done()

	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.totalEvents.Add(1)
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				fire = timer.C
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}

		case <-fire:
			timer = nil
			fire = nil
			w.log.Debug("layout file changed: %s", w.path)
			w.onChange()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn("watch error: %v", err)

		case <-w.closeCh:
			return
		}
	}
}

// Events returns how many raw change events have been seen.
func (w *Watcher) Events() uint64 { return w.totalEvents.Load() }

// Close stops the watcher.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.closeCh)
		err = w.watcher.Close()
		w.wg.Wait()
	})
	return err
}
