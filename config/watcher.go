/*
DESCRIPTION
  watcher.go watches the config file for modifications and reloads it,
  handing the new value to a caller-supplied callback. Grounded on
  cmd/vidforward's watchFile/onConfigChange pair in the teacher.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2026 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package config

import (
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"

	"github.com/ausocean/utils/logging"
)

// Watcher holds the live, atomically-swappable Config loaded from one
// file, reloaded whenever the file is written.
type Watcher struct {
	path    string
	log     logging.Logger
	current atomic.Pointer[Config]

	mu        sync.Mutex
	onReload  []func(*Config)
	fswatcher *fsnotify.Watcher
}

// NewWatcher loads path once and returns a Watcher serving that value
// until the file changes on disk.
func NewWatcher(path string, log logging.Logger) (*Watcher, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	w := &Watcher{path: path, log: log}
	w.current.Store(cfg)
	return w, nil
}

// Current returns the most recently loaded Config.
func (w *Watcher) Current() *Config { return w.current.Load() }

// OnReload registers fn to run (after Current is updated) whenever the
// file is successfully reloaded. Registration is not safe for
// concurrent use with Start.
func (w *Watcher) OnReload(fn func(*Config)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onReload = append(w.onReload, fn)
}

// Start begins watching the config file's directory for writes (the
// directory, not the file itself, per fsnotify's guidance on atomic
// replace-on-write editors) and reloads on each write event.
func (w *Watcher) Start() error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config: could not create watcher: %w", err)
	}
	w.fswatcher = fw

	abs, err := filepath.Abs(w.path)
	if err != nil {
		return fmt.Errorf("config: could not resolve %s: %w", w.path, err)
	}

	go func() {
		for {
			select {
			case event, ok := <-fw.Events:
				if !ok {
					w.log.Warning("config watcher events channel closed")
					return
				}
				if event.Op&fsnotify.Write == fsnotify.Write && event.Name == abs {
					w.reload()
				}
			case err, ok := <-fw.Errors:
				if !ok {
					w.log.Warning("config watcher errors channel closed")
					return
				}
				w.log.Error("config watcher error", "error", err)
			}
		}
	}()

	if err := fw.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("config: could not watch %s: %w", abs, err)
	}
	return nil
}

// Stop closes the underlying file watcher.
func (w *Watcher) Stop() error {
	if w.fswatcher == nil {
		return nil
	}
	return w.fswatcher.Close()
}

func (w *Watcher) reload() {
	cfg, err := Load(w.path)
	if err != nil {
		w.log.Error("config: reload failed", "path", w.path, "error", err)
		return
	}
	w.current.Store(cfg)
	w.log.Info("config: reloaded", "path", w.path)

	w.mu.Lock()
	callbacks := append([]func(*Config){}, w.onReload...)
	w.mu.Unlock()
	for _, fn := range callbacks {
		fn(cfg)
	}
}
