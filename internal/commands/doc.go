// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package commands classifies queries and runs the control commands.
//
// A query is either one of the control phrases below or a chat message:
//
//   - clear history: forget the conversation so far
//   - view history: show the last five exchanges
//   - export full log: write every logged exchange to a new file
//   - generate image <prompt>: ask the image provider for a picture
//
// Matching is case-insensitive after Unicode normalization and only at
// the start of the query on word boundaries. The first matching command
// wins; anything else non-empty is chat.
//
// # Usage
//
//	router := commands.NewRouter(commands.Config{History: h, Logs: store, Chat: chat})
//	items := router.Handle(ctx, "View History")
package commands
