// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared across parley.
//
// # Key Functions
//
// String Utilities:
//   - TruncateRunes, TruncateWidth: UTF-8 safe truncation with ellipsis
//   - Wrap: display-width aware word wrapping
//   - OneLine: collapse whitespace for single-line previews
//
// File Operations:
//   - AtomicWriteFile: crash-safe file writing with fsync
//   - ExpandHome: "~" expansion for configured paths
//
// # Usage
//
//	display := util.TruncateRunes(longText, 50)
//	wrapped := util.Wrap(response, 80)
//	err := util.AtomicWriteFile(path, data, 0644)
package util
