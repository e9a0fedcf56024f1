// Package watcher observes the Homebrew Caskroom directory so installed
// state changes made outside caskctl (a manual `brew install`, an app
// uninstaller) are noticed without a full catalog reload.
package watcher

import (
	"fmt"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/hashicorp/go-hclog"
)

// debounceWindow coalesces the burst of filesystem events one brew
// operation produces into a single callback.
const debounceWindow = 2 * time.Second

// Watcher watches the Caskroom and invokes the callback after changes
// settle. The callback typically re-runs the installed-state probe.
type Watcher struct {
	dir      string
	onChange func()
	logger   hclog.Logger

	fs       *fsnotify.Watcher
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	debounce time.Duration
}

// New creates a Watcher for dir. onChange must not be nil.
func New(dir string, onChange func(), logger hclog.Logger) (*Watcher, error) {
	if onChange == nil {
		return nil, fmt.Errorf("onChange callback cannot be nil")
	}
	if logger == nil {
		logger = hclog.Default()
	}
	return &Watcher{
		dir:      dir,
		onChange: onChange,
		logger:   logger.Named("watcher"),
		stopCh:   make(chan struct{}),
		debounce: debounceWindow,
	}, nil
}

// Start begins watching. Events are debounced; only create/remove/rename
// events trigger the callback since cask installs appear as directory
// creation and removal under the Caskroom.
func (w *Watcher) Start() error {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fs watcher: %w", err)
	}
	if err := fs.Add(w.dir); err != nil {
		fs.Close()
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}
	w.fs = fs

	w.wg.Add(1)
	go w.loop()
	return nil
}

func (w *Watcher) loop() {
	defer w.wg.Done()

	var timer *time.Timer
	var timerCh <-chan time.Time

	for {
		select {
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
				continue
			}
			w.logger.Debug("caskroom change", "path", ev.Name, "op", ev.Op.String())
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerCh = timer.C
			} else {
				if !timer.Stop() {
					<-timer.C
				}
				timer.Reset(w.debounce)
			}

		case <-timerCh:
			timer = nil
			timerCh = nil
			w.onChange()

		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.logger.Warn("fs watch error", "error", err)

		case <-w.stopCh:
			if timer != nil {
				timer.Stop()
			}
			return
		}
	}
}

// Stop halts the watcher and waits for the loop to exit. Safe to call more
// than once.
func (w *Watcher) Stop() error {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		if w.fs != nil {
			w.fs.Close()
		}
		w.wg.Wait()
	})
	return nil
}
