package watch

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"tooba/internal/match"
)

// Watcher invalidates the catalog after the library tree has been quiet for
// the debounce window. It never rescans on its own.
type Watcher struct {
	root       string
	debounce   time.Duration
	matcher    *match.Matcher
	invalidate func()
	log        zerolog.Logger
	fw         *fsnotify.Watcher

	mu    sync.Mutex
	timer *time.Timer
}

func New(root string, debounce time.Duration, m *match.Matcher, invalidate func(), log zerolog.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		root:       root,
		debounce:   debounce,
		matcher:    m,
		invalidate: invalidate,
		log:        log.With().Str("component", "watcher").Logger(),
		fw:         fw,
	}
	if err := w.addRecursive(root); err != nil {
		fw.Close()
		return nil, err
	}
	return w, nil
}

func (w *Watcher) addRecursive(dir string) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == dir {
				return err
			}
			w.log.Warn().Err(err).Str("path", p).Msg("not watching")
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if p != w.root && hidden(d.Name()) {
			return filepath.SkipDir
		}
		if err := w.fw.Add(p); err != nil {
			w.log.Warn().Err(err).Str("path", p).Msg("not watching")
		}
		return nil
	})
}

// Run processes events until ctx ends.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fw.Close()
	defer w.stopTimer()
	w.log.Info().Str("root", w.root).Dur("debounce", w.debounce).Msg("watching library")
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.fw.Events:
			if !ok {
				return nil
			}
			w.handle(ev)
		case err, ok := <-w.fw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn().Err(err).Msg("watch error")
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	if hidden(filepath.Base(ev.Name)) || ev.Op == fsnotify.Chmod {
		return
	}
	if ev.Has(fsnotify.Create) {
		if st, err := os.Stat(ev.Name); err == nil && st.IsDir() {
			if err := w.addRecursive(ev.Name); err != nil {
				w.log.Warn().Err(err).Str("path", ev.Name).Msg("not watching")
			}
			w.schedule(ev)
			return
		}
	}
	// a removed directory can no longer be stat'ed, so removals always count
	if ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) || w.relevant(ev.Name) {
		w.schedule(ev)
	}
}

func (w *Watcher) relevant(name string) bool {
	return w.matcher.IsVideo(name) || w.matcher.IsThumbnail(name) || match.IsSidecar(name)
}

func (w *Watcher) schedule(ev fsnotify.Event) {
	w.log.Debug().Str("path", ev.Name).Str("op", ev.Op.String()).Msg("library changed")
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	var t *time.Timer
	t = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		if w.timer == t {
			w.timer = nil
		}
		w.mu.Unlock()
		w.invalidate()
	})
	w.timer = t
}

func (w *Watcher) stopTimer() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
}

func hidden(name string) bool {
	return strings.HasPrefix(name, ".") || strings.HasPrefix(name, "@")
}
