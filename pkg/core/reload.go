package core

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	manifest "github.com/joeydtaylor/steeze-sentinel/pkg/manifest"
	"go.uber.org/zap"
)

const reloadDebounce = 100 * time.Millisecond

// Source holds the current configuration snapshot. Readers get an immutable
// copy per call; Reload swaps the whole snapshot atomically. Only [headers]
// takes effect without a restart.
type Source struct {
	path string
	cur  atomic.Pointer[manifest.Config]
	log  *zap.Logger

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewSource loads path once. A load error here is fatal for the caller.
func NewSource(path string, log *zap.Logger) (*Source, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	s := &Source{path: path, log: log}
	s.cur.Store(&cfg)
	return s, nil
}

// NewStaticSource wraps an in-memory config; Reload and Watch are no-ops.
func NewStaticSource(cfg manifest.Config) *Source {
	s := &Source{log: zap.NewNop()}
	s.cur.Store(&cfg)
	return s
}

func (s *Source) Current() manifest.Config { return *s.cur.Load() }

// Headers implements headers.ConfigSource.
func (s *Source) Headers() manifest.SecurityHeaders { return s.cur.Load().Headers }

func (s *Source) Path() string { return s.path }

// Reload re-reads the file. On error the previous snapshot stays in place.
func (s *Source) Reload() error {
	if s.path == "" {
		return nil
	}
	next, err := LoadConfig(s.path)
	if err != nil {
		s.log.Error("config reload rejected; keeping previous", zap.String("path", s.path), zap.Error(err))
		return err
	}
	prev := s.cur.Swap(&next)
	if restartRequired(*prev, next) {
		s.log.Warn("config changed outside [headers]; restart to apply", zap.String("path", s.path))
	}
	s.log.Info("config reloaded", zap.String("path", s.path))
	return nil
}

// restartRequired reports changes to sections that are bound at startup
// (store, exchanger, router and guards).
func restartRequired(a, b manifest.Config) bool {
	return !reflect.DeepEqual(a.Session, b.Session) ||
		!reflect.DeepEqual(a.Provider, b.Provider) ||
		!reflect.DeepEqual(a.Redis, b.Redis) ||
		!reflect.DeepEqual(a.Server, b.Server) ||
		!reflect.DeepEqual(a.Guards, b.Guards)
}

// Watch reloads the config whenever its file is written, created or renamed
// into place. It watches the parent directory so editor save-by-rename is
// seen. Watching stops when ctx ends or Close is called.
func (s *Source) Watch(ctx context.Context) error {
	if s.path == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.watcher != nil {
		return errors.New("config: already watching")
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(s.path)); err != nil {
		w.Close()
		return fmt.Errorf("config watcher: %w", err)
	}
	s.watcher = w
	s.done = make(chan struct{})
	go s.loop(ctx, w, s.done)
	s.log.Info("watching config", zap.String("path", s.path))
	return nil
}

func (s *Source) loop(ctx context.Context, w *fsnotify.Watcher, done chan struct{}) {
	debounce := time.NewTimer(reloadDebounce)
	debounce.Stop()
	defer debounce.Stop()

	base := filepath.Base(s.path)
	pending := false
	for {
		select {
		case <-ctx.Done():
			return
		case <-done:
			return
		case event, ok := <-w.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != base {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				if !pending {
					pending = true
					debounce.Reset(reloadDebounce)
				}
			}
		case <-debounce.C:
			pending = false
			_ = s.Reload()
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			s.log.Warn("config watcher error", zap.Error(err))
		}
	}
}

// Close stops the watcher, if any.
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.watcher == nil {
		return nil
	}
	close(s.done)
	err := s.watcher.Close()
	s.watcher = nil
	return err
}
