// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/jeranaias/parley/internal/model"
)

// Name identifies a theme.
type Name string

const (
	Dark  Name = "dark"
	Light Name = "light"
)

// IconSet holds the glyph shown next to each kind of item.
type IconSet struct {
	Response string
	History  string
	Info     string
	Warning  string
	Error    string
}

// Theme is one row of the theme table.
type Theme struct {
	Name  Name
	Icons IconSet

	// WrapWidth is used when the configuration asks for the theme default.
	WrapWidth int

	// Emphasize renders response text bold for contrast.
	Emphasize bool

	accent, text, muted, warn, danger, selection string
}

var table = map[Name]Theme{
	Dark: {
		Name: Dark,
		Icons: IconSet{
			Response: "◆",
			History:  "◷",
			Info:     "●",
			Warning:  "▲",
			Error:    "✖",
		},
		WrapWidth: 72,
		Emphasize: true,
		accent:    "#A78BFA",
		text:      "#CDD6F4",
		muted:     "#6C7086",
		warn:      "#FBBF24",
		danger:    "#FB7185",
		selection: "#313244",
	},
	Light: {
		Name: Light,
		Icons: IconSet{
			Response: "◇",
			History:  "◴",
			Info:     "○",
			Warning:  "△",
			Error:    "✕",
		},
		WrapWidth: 80,
		accent:    "#7C3AED",
		text:      "#1F2937",
		muted:     "#9CA3AF",
		warn:      "#D97706",
		danger:    "#E11D48",
		selection: "#E5E5E5",
	},
}

// Names lists the known themes.
func Names() []Name {
	return []Name{Dark, Light}
}

// Lookup returns the table row for a theme name (case-insensitive).
func Lookup(name string) (Theme, error) {
	theme, ok := table[Name(strings.ToLower(strings.TrimSpace(name)))]
	if !ok {
		return Theme{}, fmt.Errorf("unknown theme %q", name)
	}
	return theme, nil
}

// MustLookup is Lookup for names already validated by the config layer.
// Unknown names fall back to the dark theme.
func MustLookup(name string) Theme {
	theme, err := Lookup(name)
	if err != nil {
		return table[Dark]
	}
	return theme
}

// Icon returns the glyph for an item kind.
func (s Theme) Icon(kind model.ItemKind) string {
	switch kind {
	case model.ItemResponse:
		return s.Icons.Response
	case model.ItemHistory:
		return s.Icons.History
	case model.ItemWarning:
		return s.Icons.Warning
	case model.ItemError:
		return s.Icons.Error
	default:
		return s.Icons.Info
	}
}

// DetectName picks a theme from the terminal background.
func DetectName() Name {
	if termenv.HasDarkBackground() {
		return Dark
	}
	return Light
}

// ConfigureOutput sets the lipgloss color profile from the environment of w,
// so NO_COLOR and pipes get plain text.
func ConfigureOutput(w io.Writer) {
	lipgloss.SetColorProfile(termenv.NewOutput(w).EnvColorProfile())
}

// =============================================================================
// TERMINAL STYLES
// =============================================================================

// Styles are the lipgloss styles hosts render items with.
type Styles struct {
	Icon     lipgloss.Style
	Title    lipgloss.Style
	Subtitle lipgloss.Style
	Selected lipgloss.Style
	Warning  lipgloss.Style
	Error    lipgloss.Style
	Muted    lipgloss.Style
	Prompt   lipgloss.Style
	Response lipgloss.Style
}

// Styles builds the lipgloss styles for the theme.
func (s Theme) Styles() Styles {
	return Styles{
		Icon:     lipgloss.NewStyle().Foreground(lipgloss.Color(s.accent)).PaddingRight(1),
		Title:    lipgloss.NewStyle().Foreground(lipgloss.Color(s.text)).Bold(true),
		Subtitle: lipgloss.NewStyle().Foreground(lipgloss.Color(s.muted)),
		Selected: lipgloss.NewStyle().Background(lipgloss.Color(s.selection)),
		Warning:  lipgloss.NewStyle().Foreground(lipgloss.Color(s.warn)).Bold(true),
		Error:    lipgloss.NewStyle().Foreground(lipgloss.Color(s.danger)).Bold(true),
		Muted:    lipgloss.NewStyle().Foreground(lipgloss.Color(s.muted)).Italic(true),
		Prompt:   lipgloss.NewStyle().Foreground(lipgloss.Color(s.accent)).Bold(true),
		Response: lipgloss.NewStyle().Foreground(lipgloss.Color(s.text)).Bold(s.Emphasize),
	}
}

// TitleStyle returns the title style for an item kind.
func (st Styles) TitleStyle(kind model.ItemKind) lipgloss.Style {
	switch kind {
	case model.ItemWarning:
		return st.Warning
	case model.ItemError:
		return st.Error
	default:
		return st.Title
	}
}

// RenderItem renders one item as a title line plus an indented subtitle.
func (st Styles) RenderItem(item model.Item) string {
	var b strings.Builder
	b.WriteString(st.Icon.Render(item.Icon))
	b.WriteString(st.TitleStyle(item.Kind).Render(item.Title))
	if item.Subtitle != "" {
		for _, line := range strings.Split(item.Subtitle, "\n") {
			b.WriteString("\n  ")
			b.WriteString(st.Subtitle.Render(line))
		}
	}
	return b.String()
}
