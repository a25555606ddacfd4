// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logstore persists conversation exchanges as append-only Markdown
// logs, one file per session, and provides export, retention cleanup and
// live following of those logs.
//
// # Files
//
//   - session_<YYYYMMDD_HHMMSS>_<id>.md: the append-only log of one session
//   - export_<YYYYMMDD_HHMMSS>_<hex>.md: a merged, timestamp-ordered export
//
// Export files are never read back as export inputs, so exporting twice
// produces the same sections in two different files.
//
// # Usage
//
//	store := logstore.Open(cfg.Logging.Dir, sess, false, logger)
//	if err := store.Write(ex, logstore.Metadata{Temperature: 0.7}); err != nil {
//	    // warn, keep going
//	}
//	path, err := store.ExportFull("")
package logstore
