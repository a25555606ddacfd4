// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"errors"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// ErrEmptyQuery is returned for input with no visible characters.
var ErrEmptyQuery = errors.New("empty query")

// =============================================================================
// PARSE RESULT
// =============================================================================

// ParseResult is the classification of one query.
type ParseResult struct {
	// Command is the matched control command, nil for chat.
	Command *Command

	Kind Kind

	// Args is the text after the command phrase with its original case.
	// For chat it is the whole query.
	Args string

	// RawInput is the NFC-normalized, trimmed query.
	RawInput string
}

// IsCommand reports whether the query matched a control command.
func (r ParseResult) IsCommand() bool {
	return r.Command != nil
}

// =============================================================================
// PARSER
// =============================================================================

// Parser classifies queries against a registry.
type Parser struct {
	registry *Registry
}

// NewParser creates a new parser with the given registry.
func NewParser(registry *Registry) *Parser {
	return &Parser{registry: registry}
}

// Normalize applies NFC and Unicode case folding and trims the result.
func Normalize(s string) string {
	// A Caser is stateful; build one per call.
	return cases.Fold().String(norm.NFC.String(strings.TrimSpace(s)))
}

// Parse classifies input. Command phrases match case-insensitively at the
// start of the query on word boundaries, so "clear historyx" is chat.
func (p *Parser) Parse(input string) (ParseResult, error) {
	text := norm.NFC.String(strings.TrimSpace(input))
	if text == "" {
		return ParseResult{}, ErrEmptyQuery
	}

	words := splitWords(text)
	for _, cmd := range p.registry.ordered {
		if n, ok := matchWords(words, cmd.words); ok {
			args := ""
			if n < len(words) {
				args = strings.TrimSpace(text[words[n-1].end:])
			}
			return ParseResult{Command: cmd, Kind: cmd.Kind, Args: args, RawInput: text}, nil
		}
	}
	return ParseResult{Kind: KindChat, Args: text, RawInput: text}, nil
}

// word is one whitespace-delimited token and the byte offset after it.
type word struct {
	text string
	end  int
}

func splitWords(s string) []word {
	var out []word
	start := -1
	for i, r := range s {
		if unicode.IsSpace(r) {
			if start >= 0 {
				out = append(out, word{text: s[start:i], end: i})
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		out = append(out, word{text: s[start:], end: len(s)})
	}
	return out
}

func matchWords(words []word, phrase []string) (int, bool) {
	if len(phrase) == 0 || len(words) < len(phrase) {
		return 0, false
	}
	for i, want := range phrase {
		if Normalize(words[i].text) != want {
			return 0, false
		}
	}
	return len(phrase), true
}
