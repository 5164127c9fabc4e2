// Package watch turns file-system notifications into debounced, diffed
// FileChangeEvents.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"

	"github.com/ppiankov/slopwatch/internal/cache"
	"github.com/ppiankov/slopwatch/internal/metrics"
	"github.com/ppiankov/slopwatch/internal/model"
)

// maxPrimeFiles bounds how many files are snapshotted at start
const maxPrimeFiles = 5000

// Options configures a Watcher
type Options struct {
	// Debounce collapses rapid notifications for one path. Default: 300ms
	Debounce time.Duration

	// BufferSize is the size of the event channel. Default: 1024
	BufferSize int

	// Snapshots holds file contents to diff against. Default: in-memory cache
	Snapshots cache.Cache

	Logger *slog.Logger
}

// DefaultOptions returns the default watcher options
func DefaultOptions() Options {
	return Options{
		Debounce:   300 * time.Millisecond,
		BufferSize: 1024,
	}
}

// Watcher watches a directory tree. It can be stopped and started again;
// every Start begins a clean session.
type Watcher struct {
	opts      Options
	snapshots cache.Cache
	logger    *slog.Logger

	mu      sync.Mutex
	session *session
}

type session struct {
	root   string
	filter *Filter
	fsw    *fsnotify.Watcher
	out    chan model.FileChangeEvent
	ctx    context.Context
	cancel context.CancelFunc
	loop   sync.WaitGroup

	mu        sync.Mutex
	closed    bool
	timers    map[string]*time.Timer
	flushes   sync.WaitGroup
	closeOnce sync.Once
}

// New creates a watcher
func New(opts Options) *Watcher {
	defaults := DefaultOptions()
	if opts.Debounce <= 0 {
		opts.Debounce = defaults.Debounce
	}
	if opts.BufferSize <= 0 {
		opts.BufferSize = defaults.BufferSize
	}
	if opts.Snapshots == nil {
		opts.Snapshots = cache.NewMemoryCache(-1, 10*time.Minute)
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &Watcher{
		opts:      opts,
		snapshots: opts.Snapshots,
		logger:    opts.Logger.With("component", "watcher"),
	}
}

// Start watches root recursively and returns the event stream. The stream
// is closed by Stop or when ctx is cancelled.
func (w *Watcher) Start(ctx context.Context, root string, include, exclude []string) (<-chan model.FileChangeEvent, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.session != nil {
		return nil, fmt.Errorf("watcher already started on %s", w.session.root)
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root %s is not a directory", abs)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fsnotify watcher: %w", err)
	}

	_ = w.snapshots.Clear()

	sctx, cancel := context.WithCancel(ctx)
	s := &session{
		root:   abs,
		filter: NewFilter(include, exclude),
		fsw:    fsw,
		out:    make(chan model.FileChangeEvent, w.opts.BufferSize),
		ctx:    sctx,
		cancel: cancel,
		timers: make(map[string]*time.Timer),
	}

	primed, err := w.addRecursive(s, abs, true)
	if err != nil {
		cancel()
		fsw.Close()
		return nil, fmt.Errorf("watching %s: %w", abs, err)
	}

	w.session = s
	s.loop.Add(1)
	go w.processEvents(s)
	go func() {
		<-sctx.Done()
		w.closeSession(s)
	}()

	w.logger.Info("Watching project", "root", abs, "snapshots", primed, "debounce", w.opts.Debounce)
	return s.out, nil
}

// Stop ends the current session and closes its stream. Pending debounced
// events are discarded.
func (w *Watcher) Stop() {
	w.mu.Lock()
	s := w.session
	w.mu.Unlock()

	if s == nil {
		return
	}
	s.cancel()
	w.closeSession(s)
}

// closeSession tears a session down once; concurrent callers wait for it
func (w *Watcher) closeSession(s *session) {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		for path, t := range s.timers {
			t.Stop()
			delete(s.timers, path)
		}
		s.mu.Unlock()

		s.fsw.Close()
		s.loop.Wait()
		s.flushes.Wait()
		close(s.out)

		// Snapshots are cleared while the slot is still held
		w.mu.Lock()
		if w.session == s {
			_ = w.snapshots.Clear()
			w.session = nil
		}
		w.mu.Unlock()

		w.logger.Info("Stopped watching project", "root", s.root)
	})
}

// addRecursive watches every non-excluded directory under dir. When prime
// is set, included files are snapshotted; otherwise they are scheduled as
// fresh changes (files that landed in a newly created directory).
func (w *Watcher) addRecursive(s *session, dir string, prime bool) (int, error) {
	count := 0
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			w.logger.Warn("Skipping unreadable path", "path", path, "error", err)
			metrics.WatchErrors.Inc()
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		rel := s.rel(path)
		if d.IsDir() {
			if s.filter.SkipDir(rel) {
				return filepath.SkipDir
			}
			if err := s.fsw.Add(path); err != nil {
				if path == s.root {
					return err
				}
				w.logger.Warn("Failed to watch directory", "path", rel, "error", err)
				metrics.WatchErrors.Inc()
			}
			return nil
		}

		if !d.Type().IsRegular() || !s.filter.Match(rel) {
			return nil
		}
		if !prime {
			w.schedule(s, path)
			return nil
		}
		if count >= maxPrimeFiles {
			return nil
		}
		if content, ok := w.readFile(path, rel); ok {
			_ = w.snapshots.Set(cache.SnapshotKey(path), content, 0)
			count++
		}
		return nil
	})
	return count, err
}

func (w *Watcher) processEvents(s *session) {
	defer s.loop.Done()

	for {
		select {
		case <-s.ctx.Done():
			return

		case event, ok := <-s.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(s, event)

		case err, ok := <-s.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("Watch error", "error", err)
			metrics.WatchErrors.Inc()
		}
	}
}

func (w *Watcher) handleEvent(s *session, event fsnotify.Event) {
	if event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return
	}

	rel := s.rel(event.Name)

	// New directories are watched and their files reported
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if s.filter.SkipDir(rel) {
				return
			}
			if _, err := w.addRecursive(s, event.Name, false); err != nil {
				w.logger.Warn("Failed to watch new directory", "path", rel, "error", err)
				metrics.WatchErrors.Inc()
			}
			return
		}
	}

	if !s.filter.Match(rel) {
		return
	}
	w.schedule(s, event.Name)
}

// schedule (re)starts the debounce timer of a path
func (w *Watcher) schedule(s *session, path string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	if t, ok := s.timers[path]; ok {
		t.Reset(w.opts.Debounce)
		return
	}
	s.timers[path] = time.AfterFunc(w.opts.Debounce, func() { w.flush(s, path) })
}

// flush emits one event for a path whose notifications have settled
func (w *Watcher) flush(s *session, path string) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	delete(s.timers, path)
	s.flushes.Add(1)
	s.mu.Unlock()
	defer s.flushes.Done()

	event, ok := w.buildEvent(s, path)
	if !ok {
		return
	}

	select {
	case s.out <- event:
		metrics.FileChanges.WithLabelValues(string(event.Kind)).Inc()
	case <-s.ctx.Done():
	}
}

func (w *Watcher) buildEvent(s *session, path string) (model.FileChangeEvent, bool) {
	rel := s.rel(path)
	key := cache.SnapshotKey(path)
	before, hadSnapshot := w.snapshots.Get(key)

	event := model.FileChangeEvent{
		ID:         uuid.NewString(),
		Path:       rel,
		OccurredAt: time.Now(),
	}

	var after []byte
	info, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if !hadSnapshot {
			return event, false
		}
		_ = w.snapshots.Delete(key)
		event.Kind = model.ChangeDelete
	case err != nil:
		w.logger.Warn("Skipping unreadable file", "path", rel, "error", err)
		metrics.WatchErrors.Inc()
		return event, false
	case info.IsDir():
		return event, false
	default:
		content, ok := w.readFile(path, rel)
		if !ok {
			return event, false
		}
		after = content
		_ = w.snapshots.Set(key, content, 0)
		event.Kind = model.ChangeModify
		if !hadSnapshot {
			event.Kind = model.ChangeCreate
		}
	}

	delta, err := computeDelta(rel, before, after)
	if err != nil {
		w.logger.Warn("Failed to diff file", "path", rel, "error", err)
		metrics.WatchErrors.Inc()
		return event, false
	}
	if delta.Empty() && event.Kind == model.ChangeModify {
		return event, false
	}

	event.DiffSummary = delta.Summary
	event.LinesAdded = delta.Added
	event.LinesRemoved = delta.Removed
	return event, true
}

// readFile reads a file for snapshotting; oversized files are skipped
func (w *Watcher) readFile(path, rel string) ([]byte, bool) {
	info, err := os.Stat(path)
	if err != nil {
		w.logger.Warn("Skipping unreadable file", "path", rel, "error", err)
		metrics.WatchErrors.Inc()
		return nil, false
	}
	if info.Size() > maxSnapshotBytes {
		w.logger.Debug("Skipping oversized file", "path", rel, "size", info.Size())
		return nil, false
	}
	content, err := os.ReadFile(path)
	if err != nil {
		w.logger.Warn("Skipping unreadable file", "path", rel, "error", err)
		metrics.WatchErrors.Inc()
		return nil, false
	}
	return content, true
}

func (s *session) rel(path string) string {
	rel, err := filepath.Rel(s.root, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}
