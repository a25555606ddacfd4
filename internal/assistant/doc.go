// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package assistant ties the conversation core together. An Orchestrator
// owns the session history, usage quota and log store, classifies each
// query through the command router and runs chat queries against the
// completion provider with bounded retries.
//
// Every exchange that reaches the provider is logged exactly once, failed
// ones with an error note. Only successful completions count toward the
// quota and only complete pairs enter the history.
//
// # Usage
//
//	orch := assistant.New(cfg, assistant.Options{Logger: logger})
//	for _, item := range orch.Handle(ctx, "view history") {
//	    fmt.Println(item.Title)
//	}
package assistant
