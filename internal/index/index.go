// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package index

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/jeranaias/parley/internal/logstore"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	ErrClosed        = errors.New("index closed")
	ErrDatabaseError = errors.New("database error")
)

// FileName is the index database inside the configuration directory.
const FileName = "index.db"

// =============================================================================
// LOG INDEX
// =============================================================================

// Index is a SQLite database mirroring the session logs in one directory.
// The Markdown files stay authoritative; the index can be deleted at any
// time and is rebuilt by Sync.
type Index struct {
	db     *sql.DB
	mu     sync.RWMutex
	logger *zap.Logger
}

// SyncStats reports what a Sync changed.
type SyncStats struct {
	Files     int // session files present
	Indexed   int // files (re)parsed
	Removed   int // files dropped from the index
	Exchanges int // exchanges inserted
}

// Open opens or creates the index database at path.
func Open(path string, logger *zap.Logger) (*Index, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA temp_store=MEMORY",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	if _, err := db.Exec(InitMetadata); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &Index{db: db, logger: logger}, nil
}

// Close closes the database.
func (idx *Index) Close() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.db == nil {
		return nil
	}
	err := idx.db.Close()
	idx.db = nil
	return err
}

// =============================================================================
// SYNC
// =============================================================================

type fileRow struct {
	id      int64
	modTime int64
	size    int64
}

// Sync brings the index in line with the session logs in dir. Files whose
// size or modification time changed are re-parsed; files that disappeared
// are dropped.
func (idx *Index) Sync(ctx context.Context, dir string) (SyncStats, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	var stats SyncStats
	if idx.db == nil {
		return stats, ErrClosed
	}

	paths, err := logstore.SessionFiles(dir)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return stats, err
	}
	stats.Files = len(paths)

	known, err := idx.knownFiles(ctx)
	if err != nil {
		return stats, err
	}

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		info, err := os.Stat(path)
		if err != nil {
			idx.logger.Warn("stat log file", zap.String("path", path), zap.Error(err))
			continue
		}
		row, seen := known[path]
		delete(known, path)
		if seen && row.size == info.Size() && row.modTime == info.ModTime().UnixNano() {
			continue
		}

		n, err := idx.indexFile(ctx, path, info)
		if err != nil {
			return stats, err
		}
		stats.Indexed++
		stats.Exchanges += n
	}

	for path, row := range known {
		if err := idx.dropFile(ctx, row.id); err != nil {
			return stats, err
		}
		idx.logger.Debug("dropped log from index", zap.String("path", path))
		stats.Removed++
	}

	_, err = idx.db.ExecContext(ctx,
		"UPDATE metadata SET value = ? WHERE key = 'last_sync'",
		strconv.FormatInt(time.Now().Unix(), 10))
	if err != nil {
		return stats, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	return stats, nil
}

func (idx *Index) knownFiles(ctx context.Context) (map[string]fileRow, error) {
	rows, err := idx.db.QueryContext(ctx, "SELECT id, path, mod_time, size FROM files")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	known := make(map[string]fileRow)
	for rows.Next() {
		var (
			path string
			row  fileRow
		)
		if err := rows.Scan(&row.id, &path, &row.modTime, &row.size); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
		}
		known[path] = row
	}
	return known, rows.Err()
}

// indexFile replaces everything indexed for path in one transaction.
func (idx *Index) indexFile(ctx context.Context, path string, info os.FileInfo) (int, error) {
	records, err := logstore.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", path, err)
	}

	tx, err := idx.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	defer tx.Rollback()

	var fileID int64
	err = tx.QueryRowContext(ctx, "SELECT id FROM files WHERE path = ?", path).Scan(&fileID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		res, err := tx.ExecContext(ctx,
			"INSERT INTO files (path, mod_time, size, indexed_at) VALUES (?, ?, ?, ?)",
			path, info.ModTime().UnixNano(), info.Size(), time.Now().Unix())
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrDatabaseError, err)
		}
		if fileID, err = res.LastInsertId(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrDatabaseError, err)
		}
	case err != nil:
		return 0, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	default:
		if _, err := tx.ExecContext(ctx, "DELETE FROM exchanges WHERE file_id = ?", fileID); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrDatabaseError, err)
		}
		_, err = tx.ExecContext(ctx,
			"UPDATE files SET mod_time = ?, size = ?, indexed_at = ? WHERE id = ?",
			info.ModTime().UnixNano(), info.Size(), time.Now().Unix(), fileID)
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrDatabaseError, err)
		}
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO exchanges
			(file_id, ts, model, user_query, assistant_response, error_note, temperature, response_ns)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	defer stmt.Close()

	for _, rec := range records {
		ex := rec.Exchange
		_, err := stmt.ExecContext(ctx, fileID, ex.Timestamp.UnixNano(), ex.Model,
			ex.UserQuery, ex.AssistantResponse, ex.ErrorNote,
			rec.Metadata.Temperature, int64(rec.Metadata.ResponseTime))
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrDatabaseError, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	return len(records), nil
}

func (idx *Index) dropFile(ctx context.Context, fileID int64) error {
	tx, err := idx.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM exchanges WHERE file_id = ?", fileID); err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM files WHERE id = ?", fileID); err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	return tx.Commit()
}

// =============================================================================
// STATISTICS
// =============================================================================

// Stats holds index statistics.
type Stats struct {
	Files     int
	Exchanges int
	LastSync  time.Time
}

// Stats returns counts of indexed files and exchanges.
func (idx *Index) Stats(ctx context.Context) (Stats, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	var s Stats
	if idx.db == nil {
		return s, ErrClosed
	}
	if err := idx.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM files").Scan(&s.Files); err != nil {
		return s, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	if err := idx.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM exchanges").Scan(&s.Exchanges); err != nil {
		return s, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	var last string
	if err := idx.db.QueryRowContext(ctx, "SELECT value FROM metadata WHERE key = 'last_sync'").Scan(&last); err != nil {
		return s, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	if secs, err := strconv.ParseInt(last, 10, 64); err == nil && secs > 0 {
		s.LastSync = time.Unix(secs, 0)
	}
	return s, nil
}
