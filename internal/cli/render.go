// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/parley/internal/model"
	"github.com/jeranaias/parley/internal/ui/styles"
)

// =============================================================================
// STYLES
// =============================================================================

var (
	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FB7185")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FBBF24")).
			Bold(true)

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#A78BFA")).
			Bold(true)

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6C7086"))
)

// =============================================================================
// MARKDOWN RENDERING
// =============================================================================

// renderMarkdown renders content for a terminal of the given width.
// It returns content unchanged when rendering fails.
func renderMarkdown(content string, width int) string {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return content
	}
	rendered, err := r.Render(content)
	if err != nil {
		return content
	}
	return rendered
}

// =============================================================================
// ITEM OUTPUT
// =============================================================================

// itemPrinter writes assistant items to a stream.
type itemPrinter struct {
	w      io.Writer
	styles styles.Styles

	// markdown renders response bodies through glamour. Only set for
	// terminals; piped output stays plain.
	markdown bool
	width    int
}

func newItemPrinter(w io.Writer, theme styles.Theme, markdown bool) *itemPrinter {
	return &itemPrinter{
		w:        w,
		styles:   theme.Styles(),
		markdown: markdown,
		width:    GetTerminalWidth(),
	}
}

func (p *itemPrinter) print(items []model.Item) {
	for _, item := range items {
		if p.markdown && item.Kind == model.ItemResponse && item.HasAction() {
			fmt.Fprintln(p.w, p.styles.Icon.Render(item.Icon)+p.styles.TitleStyle(item.Kind).Render(item.Title))
			fmt.Fprint(p.w, renderMarkdown(item.Action.Payload, p.width))
			continue
		}
		fmt.Fprintln(p.w, p.styles.RenderItem(item))
	}
}

// firstError returns the first error item, if any.
func firstError(items []model.Item) (model.Item, bool) {
	for _, it := range items {
		if it.Kind == model.ItemError {
			return it, true
		}
	}
	return model.Item{}, false
}

// itemError turns an error item into an error value.
func itemError(it model.Item) error {
	msg := it.Title
	if it.Subtitle != "" {
		msg += ": " + strings.ReplaceAll(it.Subtitle, "\n", " ")
	}
	return &shownError{Err: fmt.Errorf("%s", msg)}
}
