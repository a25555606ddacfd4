// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package logstore

import (
	"context"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// =============================================================================
// LOG FOLLOWER
// =============================================================================

// Follower reports records appended to session logs in a directory.
// Records present when the follower is created are not reported.
type Follower struct {
	dir     string
	watcher *fsnotify.Watcher
	seen    map[string]int // path -> records already reported
	logger  *zap.Logger
}

// NewFollower starts watching dir. The watch is active when it returns, so
// any write after this call is observed by Run.
func NewFollower(dir string, logger *zap.Logger) (*Follower, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, err
	}

	f := &Follower{
		dir:     dir,
		watcher: w,
		seen:    make(map[string]int),
		logger:  logger,
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		w.Close()
		return nil, err
	}
	for _, e := range entries {
		if !isSessionFile(e.Name()) {
			continue
		}
		path := filepath.Join(dir, e.Name())
		recs, err := ReadFile(path)
		if err != nil {
			logger.Debug("skip unreadable log", zap.String("path", path), zap.Error(err))
			continue
		}
		f.seen[path] = len(recs)
	}
	return f, nil
}

// Run calls fn for each new record until ctx is cancelled, then closes the
// watcher. fn runs on the caller's goroutine.
func (f *Follower) Run(ctx context.Context, fn func(Record)) error {
	defer f.watcher.Close()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-f.watcher.Events:
			if !ok {
				return nil
			}
			if !isSessionFile(filepath.Base(event.Name)) {
				continue
			}
			switch {
			case event.Op&(fsnotify.Write|fsnotify.Create) != 0:
				f.emitNew(event.Name, fn)
			case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				delete(f.seen, event.Name)
			}

		case err, ok := <-f.watcher.Errors:
			if !ok {
				return nil
			}
			f.logger.Warn("log watcher error", zap.Error(err))
		}
	}
}

func (f *Follower) emitNew(path string, fn func(Record)) {
	recs, err := ReadFile(path)
	if err != nil {
		f.logger.Debug("read followed log", zap.String("path", path), zap.Error(err))
		return
	}
	start := f.seen[path]
	if start > len(recs) {
		// File was truncated or replaced.
		start = 0
	}
	for _, rec := range recs[start:] {
		fn(rec)
	}
	f.seen[path] = len(recs)
}

// Follow watches dir and calls fn for every record appended after the call,
// until ctx is cancelled.
func Follow(ctx context.Context, dir string, fn func(Record), logger *zap.Logger) error {
	f, err := NewFollower(dir, logger)
	if err != nil {
		return err
	}
	return f.Run(ctx, fn)
}
