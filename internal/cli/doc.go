// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package cli implements the parley command line.

# Commands

	parley                      Start the full-screen launcher (default)
	parley ask "question"       Run one query and print the result
	parley chat                 Interactive line-mode session
	parley logs export          Export all conversation logs to one file
	parley logs cleanup         Delete logs past the retention period
	parley logs show            Print the most recent logged exchanges
	parley logs tail            Follow the log directory for new exchanges
	parley logs search TERMS    Full-text search over logged exchanges
	parley config show|path|init|get|set

# Global Flags

	--config PATH   Use a specific configuration file
	--verbose, -v   Debug diagnostics on stderr
	--json          Machine-readable output where supported
*/
package cli
