package session

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/cespare/xxhash"
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// Watcher observes the session file for rewrites made by another process.
// Editors and copy tools fire several events per change, so contents are
// fingerprinted and only real changes reach the callback.
type Watcher struct {
	path    string
	watcher *fsnotify.Watcher
	done    chan struct{}

	mu      sync.Mutex
	lastSum uint64
}

// NewWatcher starts watching the directory containing path. The callback
// runs on the watcher goroutine whenever the file's contents change to
// something this process did not write.
func NewWatcher(path string, onChange func()) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(filepath.Dir(path)); err != nil {
		fw.Close()
		return nil, err
	}

	w := &Watcher{
		path:    path,
		watcher: fw,
		done:    make(chan struct{}),
	}
	if data, err := os.ReadFile(path); err == nil {
		w.lastSum = xxhash.Sum64(data)
	}

	go w.loop(onChange)
	return w, nil
}

// Expect records the fingerprint of a payload about to be written by this
// process, so the resulting event is not treated as an external change.
func (w *Watcher) Expect(sum uint64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.lastSum = sum
}

func (w *Watcher) loop(onChange func()) {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if !(event.Op.Has(fsnotify.Create) || event.Op.Has(fsnotify.Write) || event.Op.Has(fsnotify.Rename)) {
				continue
			}
			if !w.changed() {
				continue
			}
			log.Warn().Str("path", w.path).Msg("session file changed outside this process")
			if onChange != nil {
				onChange()
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Err(err).Str("path", w.path).Msg("session watcher error")
		}
	}
}

func (w *Watcher) changed() bool {
	data, err := os.ReadFile(w.path)
	if err != nil {
		return false
	}
	sum := xxhash.Sum64(data)

	w.mu.Lock()
	defer w.mu.Unlock()
	if sum == w.lastSum {
		return false
	}
	w.lastSum = sum
	return true
}

func (w *Watcher) Close() error {
	close(w.done)
	return w.watcher.Close()
}
