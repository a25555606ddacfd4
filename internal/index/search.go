// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package index

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jeranaias/parley/internal/logstore"
)

// DefaultLimit caps results when the caller passes a non-positive limit.
const DefaultLimit = 20

// Hit is one matching exchange.
type Hit struct {
	logstore.Record

	// Rank is the bm25 score; lower is a better match.
	Rank float64
}

// Search returns exchanges whose query or response contains every term in
// query, best matches first.
func (idx *Index) Search(ctx context.Context, query string, limit int) ([]Hit, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if idx.db == nil {
		return nil, ErrClosed
	}

	fts := buildFTSQuery(query)
	if fts == "" {
		return []Hit{}, nil
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	rows, err := idx.db.QueryContext(ctx, `
		SELECT
			e.ts, e.model, e.user_query, e.assistant_response, e.error_note,
			e.temperature, e.response_ns, f.path,
			bm25(exchanges_fts) AS rank
		FROM exchanges_fts
		JOIN exchanges e ON e.id = exchanges_fts.rowid
		JOIN files f ON f.id = e.file_id
		WHERE exchanges_fts MATCH ?
		ORDER BY rank, e.ts
		LIMIT ?`, fts, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	hits := []Hit{}
	for rows.Next() {
		var (
			h          Hit
			ts, respNS int64
		)
		ex := &h.Exchange
		if err := rows.Scan(&ts, &ex.Model, &ex.UserQuery, &ex.AssistantResponse, &ex.ErrorNote,
			&h.Metadata.Temperature, &respNS, &h.Source, &h.Rank); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
		}
		ex.Timestamp = time.Unix(0, ts).UTC()
		h.Metadata.ResponseTime = time.Duration(respNS)
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	return hits, nil
}

// buildFTSQuery quotes each whitespace-separated term so FTS5 operators in
// user input are matched literally. Terms are ANDed.
func buildFTSQuery(query string) string {
	terms := strings.Fields(query)
	quoted := make([]string, 0, len(terms))
	for _, t := range terms {
		quoted = append(quoted, `"`+strings.ReplaceAll(t, `"`, `""`)+`"`)
	}
	return strings.Join(quoted, " ")
}
