// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"strings"
)

// =============================================================================
// COMMAND DEFINITION
// =============================================================================

// Kind identifies what a query asks for.
type Kind int

const (
	KindChat Kind = iota
	KindClear
	KindView
	KindExport
	KindImage
)

func (k Kind) String() string {
	switch k {
	case KindClear:
		return "clear"
	case KindView:
		return "view"
	case KindExport:
		return "export"
	case KindImage:
		return "image"
	default:
		return "chat"
	}
}

// Command is a control phrase recognized at the start of a query.
type Command struct {
	Kind Kind

	// Phrase is the words that trigger the command (e.g., "clear history").
	Phrase string

	// Usage shows argument syntax (e.g., "generate image <prompt>").
	Usage string

	// Description is shown in help and completion.
	Description string

	// TakesArgs is true when the text after the phrase is meaningful.
	TakesArgs bool

	words []string
}

// =============================================================================
// COMMAND REGISTRY
// =============================================================================

// Registry holds the control commands in precedence order.
type Registry struct {
	ordered []*Command
	byKind  map[Kind]*Command
}

// NewRegistry creates a registry with the built-in commands.
func NewRegistry() *Registry {
	r := &Registry{byKind: make(map[Kind]*Command)}
	r.registerBuiltins()
	return r
}

func (r *Registry) registerBuiltins() {
	r.Register(&Command{
		Kind:        KindClear,
		Phrase:      "clear history",
		Usage:       "clear history",
		Description: "Forget the conversation so far",
	})
	r.Register(&Command{
		Kind:        KindView,
		Phrase:      "view history",
		Usage:       "view history",
		Description: "Show the last few exchanges",
	})
	r.Register(&Command{
		Kind:        KindExport,
		Phrase:      "export full log",
		Usage:       "export full log",
		Description: "Write every logged exchange to a new file",
	})
	r.Register(&Command{
		Kind:        KindImage,
		Phrase:      "generate image",
		Usage:       "generate image <prompt>",
		Description: "Create an image from a description",
		TakesArgs:   true,
	})
}

// Register adds a command after the existing ones. Earlier commands win
// when phrases overlap.
func (r *Registry) Register(cmd *Command) {
	cmd.words = strings.Fields(Normalize(cmd.Phrase))
	r.ordered = append(r.ordered, cmd)
	if _, ok := r.byKind[cmd.Kind]; !ok {
		r.byKind[cmd.Kind] = cmd
	}
}

// Get returns the command for kind, or nil.
func (r *Registry) Get(kind Kind) *Command {
	return r.byKind[kind]
}

// All returns the commands in precedence order.
func (r *Registry) All() []*Command {
	out := make([]*Command, len(r.ordered))
	copy(out, r.ordered)
	return out
}
