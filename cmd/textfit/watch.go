/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	applog "textfit/internal/log"
)

// pollInterval is used when fsnotify cannot watch the file.
var pollInterval = time.Second

// fileWatcher signals changes of one file. It watches the parent directory so
// that editors replacing the file by rename are still seen, and falls back to
// polling the modification time when fsnotify is unavailable.
type fileWatcher struct {
	path   string
	events chan struct{} // buffered to 1; bursts coalesce
	done   chan struct{}
	once   sync.Once

	mu      sync.Mutex
	fsw     *fsnotify.Watcher
	polling bool
}

func newFileWatcher(path string) (*fileWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}
	w := &fileWatcher{path: abs, events: make(chan struct{}, 1), done: make(chan struct{})}
	l := applog.WithComponent("watch")

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		l.Info("fsnotify unavailable, polling", slog.Any("err", err))
		w.startPolling()
		return w, nil
	}
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		l.Info("cannot watch directory, polling", slog.String("dir", filepath.Dir(abs)), slog.Any("err", err))
		_ = fsw.Close()
		w.startPolling()
		return w, nil
	}
	w.fsw = fsw
	go w.watch(fsw)
	return w, nil
}

func (w *fileWatcher) Events() <-chan struct{} { return w.events }

// Polling reports whether the watcher fell back to polling.
func (w *fileWatcher) Polling() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.polling
}

func (w *fileWatcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.done)
		w.mu.Lock()
		defer w.mu.Unlock()
		if w.fsw != nil {
			if cerr := w.fsw.Close(); cerr != nil {
				err = fmt.Errorf("close fsnotify watcher: %w", cerr)
			}
			w.fsw = nil
		}
	})
	return err
}

func (w *fileWatcher) watch(fsw *fsnotify.Watcher) {
	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
				w.notify()
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			applog.WithComponent("watch").Info("fsnotify error, switching to polling", slog.Any("err", err))
			w.mu.Lock()
			if w.fsw == fsw {
				_ = fsw.Close()
				w.fsw = nil
			}
			w.mu.Unlock()
			w.startPolling()
			return
		}
	}
}

// startPolling records the baseline modification time before it returns.
func (w *fileWatcher) startPolling() {
	w.mu.Lock()
	w.polling = true
	w.mu.Unlock()
	go w.poll(modTime(w.path), pollInterval)
}

func (w *fileWatcher) poll(last time.Time, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-w.done:
			return
		case <-t.C:
			if m := modTime(w.path); !m.Equal(last) {
				last = m
				w.notify()
			}
		}
	}
}

func modTime(path string) time.Time {
	fi, err := os.Stat(path)
	if err != nil {
		return time.Time{}
	}
	return fi.ModTime()
}

func (w *fileWatcher) notify() {
	select {
	case w.events <- struct{}{}:
	default:
	}
}

// cmdWatch renders the text file once, then again after every change, until
// ctx is cancelled. Render errors are logged and do not stop the loop.
func cmdWatch(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs, f := newFlagSet("watch", stderr)
	if err := fs.Parse(args); err != nil {
		return usageError(err.Error())
	}
	if fs.NArg() != 1 {
		return usageError("watch requires exactly one text file")
	}
	path := fs.Arg(0)
	s, err := newSession(f, stderr)
	if err != nil {
		return err
	}
	w, err := newFileWatcher(path)
	if err != nil {
		return err
	}
	defer func() { _ = w.Close() }()
	l := applog.WithOperation(s.log, "watch")
	l.Info("watching", slog.String("path", path), slog.Bool("polling", w.Polling()), slog.String("out", s.out))

	render := func() {
		data, err := os.ReadFile(path)
		if err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				l.Warn("read text file", slog.Any("err", err))
			}
			return
		}
		wrote, err := s.renderText(ctx, strings.TrimRight(string(data), "\r\n"))
		if err != nil {
			l.Error("render failed", slog.Any("err", err))
			return
		}
		if wrote {
			_, _ = fmt.Fprintln(stdout, s.out)
		}
	}

	render()
	for {
		select {
		case <-ctx.Done():
			l.Info("watch stopped")
			return nil
		case <-w.Events():
			render()
		}
	}
}
