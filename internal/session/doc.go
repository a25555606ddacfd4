// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session holds the state scoped to one running process.
//
// # Key Types
//
//   - Session: process identity (UUIDv7) and start time, used to name log files
//   - History: ordered in-memory exchanges with Append, Clear, Recent and All
//
// # Usage
//
//	h := session.NewHistory()
//	if err := h.Append(ex); err != nil {
//	    // ErrInvalidExchange: one side of the pair was blank
//	}
//	last := h.Recent(session.ViewLimit)
//
// History is created empty at process start and discarded at exit.
package session
