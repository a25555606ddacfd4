// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the theme table and terminal styles for parley.
//
// A theme is a row in a lookup table, not a branch in formatting code:
// each Theme carries its icon set, default wrap width, emphasis flag and
// palette. Hosts call Theme.Styles to get lipgloss styles.
//
// # Usage
//
//	theme := styles.MustLookup(cfg.UI.Theme)
//	icon := theme.Icon(model.ItemResponse)
//	fmt.Println(theme.Styles().RenderItem(item))
package styles
