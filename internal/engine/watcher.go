package engine

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// SourceWatcher watches a Datalog source file and invokes a callback when
// it changes, debouncing editor save bursts. It backs the iterative dev
// loop: a changed ruleset invalidates any compiled artifact built from it.
type SourceWatcher struct {
	watcher  *fsnotify.Watcher
	path     string
	onChange func(path string)

	mu       sync.Mutex
	last     time.Time
	debounce time.Duration
	stopCh   chan struct{}
	doneCh   chan struct{}
	running  bool
}

// NewSourceWatcher creates a watcher for one source file. onChange runs on
// the watcher goroutine; keep it short or dispatch.
func NewSourceWatcher(path string, onChange func(path string)) (*SourceWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &SourceWatcher{
		watcher:  w,
		path:     filepath.Clean(path),
		onChange: onChange,
		debounce: 500 * time.Millisecond,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// Start begins watching. Non-blocking; Stop tears it down.
func (sw *SourceWatcher) Start() error {
	sw.mu.Lock()
	if sw.running {
		sw.mu.Unlock()
		return nil
	}
	sw.running = true
	sw.mu.Unlock()

	// Watch the directory, not the file: editors replace files on save,
	// which drops a file-level watch.
	if err := sw.watcher.Add(filepath.Dir(sw.path)); err != nil {
		return err
	}
	go sw.loop()
	return nil
}

// Stop ends the watch and waits for the loop to exit.
func (sw *SourceWatcher) Stop() error {
	sw.mu.Lock()
	if !sw.running {
		sw.mu.Unlock()
		return nil
	}
	sw.running = false
	sw.mu.Unlock()

	close(sw.stopCh)
	<-sw.doneCh
	return sw.watcher.Close()
}

func (sw *SourceWatcher) loop() {
	defer close(sw.doneCh)
	for {
		select {
		case <-sw.stopCh:
			return
		case event, ok := <-sw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != sw.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			sw.mu.Lock()
			now := time.Now()
			fire := now.Sub(sw.last) >= sw.debounce
			if fire {
				sw.last = now
			}
			sw.mu.Unlock()
			if fire {
				sw.onChange(sw.path)
			}
		case _, ok := <-sw.watcher.Errors:
			if !ok {
				return
			}
		}
	}
}
