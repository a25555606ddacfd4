// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package logstore

import (
	"bytes"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jeranaias/parley/internal/model"
	"github.com/jeranaias/parley/internal/session"
)

const (
	sessionPrefix = "session_"
	exportPrefix  = "export_"
	logExt        = ".md"
	fileTimeFmt   = "20060102_150405"

	// readConcurrency bounds parallel file parsing during export.
	readConcurrency = 4
)

// Options configures a Store.
type Options struct {
	// Dir is the resolved log directory. Ignored when Disabled is set.
	Dir      string
	Disabled bool
	// Warning is surfaced once through TakeWarning.
	Warning string

	Session session.Session

	// IncludePrevious makes exports merge every session file in Dir,
	// not only the active one.
	IncludePrevious bool

	Now    func() time.Time
	Logger *zap.Logger
}

// Store appends exchanges to the active session log and reads logs back
// for export. All methods are safe for concurrent use.
type Store struct {
	mu sync.Mutex

	dir             string
	disabled        bool
	warning         string
	includePrevious bool
	sess            session.Session
	activePath      string

	now    func() time.Time
	logger *zap.Logger
}

// New builds a Store. It does not touch the filesystem; the active file is
// created on first write.
func New(opts Options) *Store {
	s := &Store{
		dir:             opts.Dir,
		disabled:        opts.Disabled || opts.Dir == "",
		warning:         opts.Warning,
		includePrevious: opts.IncludePrevious,
		sess:            opts.Session,
		now:             opts.Now,
		logger:          opts.Logger,
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.sess.ID == "" {
		s.sess = session.New(s.now())
	}
	if !s.disabled {
		s.activePath = filepath.Join(s.dir, sessionFileName(s.sess))
	}
	return s
}

// Open resolves the log directory and builds a Store for sess.
func Open(configuredDir string, sess session.Session, includePrevious bool, logger *zap.Logger) *Store {
	res := ResolveDir(configuredDir, logger)
	return New(Options{
		Dir:             res.Dir,
		Disabled:        res.Disabled,
		Warning:         res.Warning,
		Session:         sess,
		IncludePrevious: includePrevious,
		Logger:          logger,
	})
}

func sessionFileName(sess session.Session) string {
	id := strings.ReplaceAll(sess.ID, "-", "")
	if len(id) > 8 {
		id = id[len(id)-8:]
	}
	return sessionPrefix + sess.StartedAt.UTC().Format(fileTimeFmt) + "_" + id + logExt
}

// Dir returns the log directory, or "" when logging is disabled.
func (s *Store) Dir() string {
	return s.dir
}

// ActivePath returns the path of the current session's log file.
func (s *Store) ActivePath() string {
	return s.activePath
}

// Disabled reports whether records are being dropped.
func (s *Store) Disabled() bool {
	return s.disabled
}

// TakeWarning returns the startup warning the first time it is called and
// "" afterwards.
func (s *Store) TakeWarning() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	w := s.warning
	s.warning = ""
	return w
}

// Write appends one record to the active log. The section is written with a
// single append and synced before returning, so a crash leaves at most one
// incomplete trailing record. Writes are a no-op when logging is disabled.
func (s *Store) Write(ex model.Exchange, meta Metadata) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disabled {
		return nil
	}

	var buf bytes.Buffer
	info, statErr := os.Stat(s.activePath)
	if errors.Is(statErr, fs.ErrNotExist) || (statErr == nil && info.Size() == 0) {
		writeFileHeader(&buf, "Conversation Log", [][2]string{
			{"Session", s.sess.ID},
			{"Started", s.sess.StartedAt.UTC().Format(time.RFC3339)},
		})
	}
	writeSection(&buf, ex, meta)

	f, err := os.OpenFile(s.activePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return &LogWriteError{Path: s.activePath, Err: err}
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = &LogWriteError{Path: s.activePath, Err: cerr}
		}
	}()

	if _, err := f.Write(buf.Bytes()); err != nil {
		return &LogWriteError{Path: s.activePath, Err: err}
	}
	if err := f.Sync(); err != nil {
		return &LogWriteError{Path: s.activePath, Err: err}
	}

	s.logger.Debug("log record written",
		zap.String("path", s.activePath),
		zap.Int("bytes", buf.Len()),
		zap.Bool("failed", ex.Failed()))
	return nil
}

// Records returns the records an export would contain, sorted by timestamp.
func (s *Store) Records() ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recordsLocked()
}

// Recent returns the last n records across the export inputs.
func (s *Store) Recent(n int) ([]Record, error) {
	recs, err := s.Records()
	if err != nil {
		return nil, err
	}
	if n > 0 && len(recs) > n {
		recs = recs[len(recs)-n:]
	}
	return recs, nil
}

func (s *Store) recordsLocked() ([]Record, error) {
	if s.disabled {
		return nil, ErrLoggingDisabled
	}

	paths, err := s.inputPaths()
	if err != nil {
		return nil, err
	}

	perFile := make([][]Record, len(paths))
	var g errgroup.Group
	g.SetLimit(readConcurrency)
	for i, p := range paths {
		i, p := i, p
		g.Go(func() error {
			recs, err := ReadFile(p)
			if err != nil {
				if errors.Is(err, fs.ErrNotExist) {
					return nil
				}
				return err
			}
			perFile[i] = recs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []Record
	for _, recs := range perFile {
		all = append(all, recs...)
	}
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Exchange.Timestamp.Before(all[j].Exchange.Timestamp)
	})
	return all, nil
}

// inputPaths lists export inputs in name order. Export files are never inputs.
func (s *Store) inputPaths() ([]string, error) {
	if !s.includePrevious {
		return []string{s.activePath}, nil
	}
	return SessionFiles(s.dir)
}

// SessionFiles lists the session logs in dir, sorted by name.
func SessionFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, e := range entries {
		if e.Type().IsRegular() && isSessionFile(e.Name()) {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// ReadFile parses the records in one log file.
func ReadFile(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseRecords(f, path)
}

func isSessionFile(name string) bool {
	return strings.HasPrefix(name, sessionPrefix) && strings.HasSuffix(name, logExt)
}

func isExportFile(name string) bool {
	return strings.HasPrefix(name, exportPrefix) && strings.HasSuffix(name, logExt)
}
