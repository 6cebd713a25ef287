// Package watcher reloads configuration files when they change on disk.
package watcher

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Target is a file to watch and the action to run after it changes.
type Target struct {
	Name   string
	Path   string
	Reload func(ctx context.Context) error
}

type fileState struct {
	modTime time.Time
	size    int64
	exists  bool
}

// Service watches the parent directories of its targets with fsnotify and
// also polls file stats, so changes on filesystems without inotify support
// are still picked up. Bursts of writes are coalesced by a debounce timer.
type Service struct {
	targets      map[string]Target
	logger       *slog.Logger
	debounce     time.Duration
	pollInterval time.Duration

	mu      sync.Mutex
	states  map[string]fileState
	pending map[string]bool
}

// NewService creates a watcher for targets. Targets with an empty path are
// skipped.
func NewService(logger *slog.Logger, targets ...Target) *Service {
	s := &Service{
		targets:      make(map[string]Target),
		logger:       logger.With("component", "file-watcher"),
		debounce:     500 * time.Millisecond,
		pollInterval: 30 * time.Second,
		states:       make(map[string]fileState),
		pending:      make(map[string]bool),
	}
	for _, t := range targets {
		if t.Path == "" || t.Reload == nil {
			continue
		}
		abs, err := filepath.Abs(t.Path)
		if err != nil {
			abs = filepath.Clean(t.Path)
		}
		t.Path = abs
		s.targets[abs] = t
	}
	return s
}

// SetDebounce overrides the default debounce interval (for testing).
func (s *Service) SetDebounce(d time.Duration) {
	s.debounce = d
}

// SetPollInterval overrides the default stat polling interval (for testing).
func (s *Service) SetPollInterval(d time.Duration) {
	s.pollInterval = d
}

// Start blocks until ctx is canceled. If fsnotify is unavailable the
// service runs on polling alone.
func (s *Service) Start(ctx context.Context) {
	if len(s.targets) == 0 {
		return
	}

	for path := range s.targets {
		s.states[path] = statFile(path)
	}

	var eventCh <-chan fsnotify.Event
	var errCh <-chan error
	w, err := fsnotify.NewWatcher()
	if err != nil {
		s.logger.Warn("fsnotify unavailable, polling only", "error", err)
	} else {
		defer w.Close() //nolint:errcheck
		dirs := map[string]bool{}
		for path := range s.targets {
			dirs[filepath.Dir(path)] = true
		}
		for dir := range dirs {
			if err := w.Add(dir); err != nil {
				s.logger.Warn("cannot watch directory, relying on polling", "dir", dir, "error", err)
				continue
			}
			s.logger.Debug("watching directory", "dir", dir)
		}
		eventCh = w.Events
		errCh = w.Errors
	}

	s.logger.Info("file watcher starting", "files", len(s.targets))

	pollTicker := time.NewTicker(s.pollInterval)
	defer pollTicker.Stop()

	debounceTimer := time.NewTimer(0)
	if !debounceTimer.Stop() {
		<-debounceTimer.C
	}
	arm := func() {
		if !debounceTimer.Stop() {
			select {
			case <-debounceTimer.C:
			default:
			}
		}
		debounceTimer.Reset(s.debounce)
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("file watcher stopping")
			return

		case ev, ok := <-eventCh:
			if !ok {
				eventCh = nil
				continue
			}
			if s.handleFSEvent(ev) {
				arm()
			}

		case err, ok := <-errCh:
			if !ok {
				errCh = nil
				continue
			}
			s.logger.Error("fsnotify error", "error", err)

		case <-pollTicker.C:
			if s.poll() {
				arm()
			}

		case <-debounceTimer.C:
			s.reloadPending(ctx)
		}
	}
}

// handleFSEvent marks a target pending when the event concerns it.
func (s *Service) handleFSEvent(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
		return false
	}
	path := filepath.Clean(ev.Name)
	if _, ok := s.targets[path]; !ok {
		return false
	}

	s.mu.Lock()
	s.pending[path] = true
	s.mu.Unlock()
	s.logger.Debug("file changed", "path", path, "op", ev.Op.String())
	return true
}

// poll compares file stats with the last snapshot.
func (s *Service) poll() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := false
	for path := range s.targets {
		cur := statFile(path)
		if cur != s.states[path] {
			s.states[path] = cur
			if cur.exists {
				s.pending[path] = true
				changed = true
			}
		}
	}
	return changed
}

func (s *Service) reloadPending(ctx context.Context) {
	s.mu.Lock()
	paths := make([]string, 0, len(s.pending))
	for p := range s.pending {
		paths = append(paths, p)
	}
	clear(s.pending)
	s.mu.Unlock()

	for _, path := range paths {
		t := s.targets[path]
		if err := t.Reload(ctx); err != nil {
			s.logger.Error("reload failed", "target", t.Name, "path", path, "error", err)
		} else {
			s.logger.Info("reloaded after change", "target", t.Name, "path", path)
		}

		s.mu.Lock()
		s.states[path] = statFile(path)
		s.mu.Unlock()
	}
}

func statFile(path string) fileState {
	info, err := os.Stat(path)
	if err != nil {
		return fileState{}
	}
	return fileState{modTime: info.ModTime(), size: info.Size(), exists: true}
}
