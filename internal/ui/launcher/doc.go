// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package launcher is the full-screen front end: a single input line and the
list of items the assistant returned for the last query.

Enter submits the input, or activates the selected item when the input is
empty. Ctrl+Y copies the selected item's payload. Esc cancels an in-flight
query, and quits when nothing is running.

	orch := assistant.New(cfg, assistant.Options{})
	if err := launcher.Run(ctx, orch, orch.Theme()); err != nil {
		return err
	}
*/
package launcher
