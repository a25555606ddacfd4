// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"strings"
)

// Complete returns the command phrases that extend partial, in precedence
// order. Commands taking arguments are suggested with a trailing space.
// An empty partial suggests nothing, so a plain Tab does not swallow chat.
func (r *Registry) Complete(partial string) []string {
	folded := Normalize(partial)
	if folded == "" {
		return nil
	}
	// Keep a trailing space so "clear " still narrows to "clear history".
	if strings.HasSuffix(partial, " ") {
		folded += " "
	}

	var out []string
	for _, cmd := range r.ordered {
		phrase := strings.Join(cmd.words, " ")
		if !strings.HasPrefix(phrase, folded) {
			continue
		}
		s := cmd.Phrase
		if cmd.TakesArgs {
			s += " "
		}
		out = append(out, s)
	}
	return out
}
