// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package index

const (
	// SchemaVersion tracks the database schema version for migrations
	SchemaVersion = 1
)

// Schema is the SQLite schema: one row per log file, one row per exchange,
// and an external-content FTS5 table over the exchange text.
const Schema = `
CREATE TABLE IF NOT EXISTS metadata (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
) WITHOUT ROWID;

-- Files table: tracks indexed log files by size and modification time
CREATE TABLE IF NOT EXISTS files (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    path TEXT NOT NULL UNIQUE,
    mod_time INTEGER NOT NULL,  -- Unix nanoseconds
    size INTEGER NOT NULL,
    indexed_at INTEGER NOT NULL -- Unix seconds
);

CREATE TABLE IF NOT EXISTS exchanges (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    file_id INTEGER NOT NULL,
    ts INTEGER NOT NULL,        -- Unix nanoseconds, UTC
    model TEXT NOT NULL DEFAULT '',
    user_query TEXT NOT NULL,
    assistant_response TEXT NOT NULL DEFAULT '',
    error_note TEXT NOT NULL DEFAULT '',
    temperature REAL NOT NULL DEFAULT 0,
    response_ns INTEGER NOT NULL DEFAULT 0,
    FOREIGN KEY(file_id) REFERENCES files(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_exchanges_file_id ON exchanges(file_id);
CREATE INDEX IF NOT EXISTS idx_exchanges_ts ON exchanges(ts);

CREATE VIRTUAL TABLE IF NOT EXISTS exchanges_fts USING fts5(
    user_query,
    assistant_response,
    content='exchanges',
    content_rowid='id',
    tokenize='porter unicode61'
);

CREATE TRIGGER IF NOT EXISTS exchanges_ai AFTER INSERT ON exchanges BEGIN
    INSERT INTO exchanges_fts(rowid, user_query, assistant_response)
    VALUES (new.id, new.user_query, new.assistant_response);
END;

CREATE TRIGGER IF NOT EXISTS exchanges_ad AFTER DELETE ON exchanges BEGIN
    INSERT INTO exchanges_fts(exchanges_fts, rowid, user_query, assistant_response)
    VALUES ('delete', old.id, old.user_query, old.assistant_response);
END;
`

// InitMetadata initializes the metadata table with default values
const InitMetadata = `
INSERT OR IGNORE INTO metadata (key, value) VALUES ('schema_version', '1');
INSERT OR IGNORE INTO metadata (key, value) VALUES ('created_at', strftime('%s', 'now'));
INSERT OR IGNORE INTO metadata (key, value) VALUES ('last_sync', '0');
`
