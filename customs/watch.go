package customs

import (
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watcher signals when discovered resolver descriptors change so the caller
// can rebuild the schema. Events are coalesced into a single-slot channel.
type Watcher struct {
	watcher *fsnotify.Watcher
	events  chan struct{}
	done    chan struct{}
}

// Watch observes the customs directory's query/ and mutation/ subdirectories.
func Watch(dir string) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	for _, sub := range []string{string(KindQuery), string(KindMutation)} {
		// Missing subdirectories are fine; the provider treats them as empty.
		_ = fsw.Add(filepath.Join(dir, sub))
	}

	w := &Watcher{
		watcher: fsw,
		events:  make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	go w.loop()
	return w, nil
}

func (w *Watcher) loop() {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			select {
			case w.events <- struct{}{}:
			default:
			}
		case _, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
		}
	}
}

// Events delivers one signal per burst of descriptor changes.
func (w *Watcher) Events() <-chan struct{} { return w.events }

// Close stops watching.
func (w *Watcher) Close() error {
	close(w.done)
	return w.watcher.Close()
}
