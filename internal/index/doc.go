// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package index maintains a SQLite full-text index over the Markdown
// conversation logs, for "parley logs search".
//
// The logs stay the source of truth. Sync re-parses session files whose
// size or modification time changed and drops files that were deleted, so
// the database can be removed at any time.
//
// # Usage
//
//	idx, err := index.Open(filepath.Join(configDir, index.FileName), logger)
//	if err != nil {
//	    return err
//	}
//	defer idx.Close()
//
//	if _, err := idx.Sync(ctx, logDir); err != nil {
//	    return err
//	}
//	hits, err := idx.Search(ctx, "kubernetes ingress", 10)
package index
