// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

// =============================================================================
// DISPLAY ITEMS
// =============================================================================

// ItemKind classifies a display item so hosts can pick styling.
type ItemKind int

const (
	ItemInfo ItemKind = iota
	ItemResponse
	ItemHistory
	ItemWarning
	ItemError
)

// String returns a short name for the kind.
func (k ItemKind) String() string {
	switch k {
	case ItemResponse:
		return "response"
	case ItemHistory:
		return "history"
	case ItemWarning:
		return "warning"
	case ItemError:
		return "error"
	default:
		return "info"
	}
}

// ActionKind is what a host does when the user activates an item.
type ActionKind int

const (
	ActionNone ActionKind = iota
	ActionCopy
)

// Action is the on-activate behavior attached to an item.
type Action struct {
	Kind    ActionKind
	Payload string
}

// CopyAction returns an action copying text to the clipboard.
func CopyAction(text string) Action {
	return Action{Kind: ActionCopy, Payload: text}
}

// Item is one row the host shell renders.
type Item struct {
	Title    string
	Subtitle string
	// Icon is a theme-selected glyph or icon path.
	Icon   string
	Kind   ItemKind
	Action Action
}

// HasAction reports whether activating the item does anything.
func (i Item) HasAction() bool {
	return i.Action.Kind != ActionNone && i.Action.Payload != ""
}
