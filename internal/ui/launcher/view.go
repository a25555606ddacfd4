// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package launcher

import (
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/lipgloss"
)

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(m.input.View())
	b.WriteString("\n\n")

	if m.busy {
		b.WriteString(m.styles.Muted.Render(m.spinner.View() + " thinking..."))
		b.WriteString("\n\n")
	}

	for i, item := range m.items {
		row := m.styles.RenderItem(item)
		if i == m.cursor {
			row = m.styles.Selected.Width(m.width).Render(row)
		}
		b.WriteString(row)
		b.WriteString("\n")
	}

	if m.status != "" {
		b.WriteString("\n")
		b.WriteString(m.styles.Muted.Render(m.status))
	}

	b.WriteString("\n")
	h := help.New()
	h.Width = m.width
	b.WriteString(lipgloss.NewStyle().MarginTop(1).Render(h.ShortHelpView(m.keys.ShortHelp())))
	return b.String()
}
