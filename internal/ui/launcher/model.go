// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package launcher

import (
	"context"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/parley/internal/model"
	"github.com/jeranaias/parley/internal/ui/styles"
)

// Handler runs one query. *assistant.Orchestrator satisfies it.
type Handler interface {
	Handle(ctx context.Context, query string) []model.Item
}

// CopyFunc places text on the clipboard.
type CopyFunc func(text string) error

// resultMsg carries the items produced for one submitted query.
type resultMsg struct {
	query string
	items []model.Item
}

// copiedMsg reports the outcome of a clipboard write.
type copiedMsg struct{ err error }

// Model is the launcher's bubbletea model: one input line above the items
// returned for the last query.
type Model struct {
	handler Handler
	copy    CopyFunc
	keys    KeyMap

	input   textinput.Model
	spinner spinner.Model

	items  []model.Item
	cursor int
	status string

	busy   bool
	ctx    context.Context
	cancel context.CancelFunc

	theme  styles.Theme
	styles styles.Styles
	width  int
}

// New creates a launcher model for handler.
func New(ctx context.Context, handler Handler, theme styles.Theme) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask anything, or try \"view history\""
	ti.CharLimit = 4096
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Spinner{
		Frames: []string{"|", "/", "-", "\\"},
		FPS:    spinner.Line.FPS,
	}

	if ctx == nil {
		ctx = context.Background()
	}

	return Model{
		handler: handler,
		copy:    clipboard.WriteAll,
		keys:    DefaultKeyMap(),
		input:   ti,
		spinner: sp,
		ctx:     ctx,
		theme:   theme,
		styles:  theme.Styles(),
		width:   80,
	}
}

// WithCopy replaces the clipboard writer.
func (m Model) WithCopy(fn CopyFunc) Model {
	m.copy = fn
	return m
}

// Items returns the items currently shown.
func (m Model) Items() []model.Item { return m.items }

// Busy reports whether a query is in flight.
func (m Model) Busy() bool { return m.busy }

// Status returns the footer status line.
func (m Model) Status() string { return m.status }

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.input.Width = max(msg.Width-4, 10)
		return m, nil

	case resultMsg:
		m.busy = false
		if m.cancel != nil {
			m.cancel()
			m.cancel = nil
		}
		m.items = msg.items
		m.cursor = 0
		m.status = ""
		return m, nil

	case copiedMsg:
		if msg.err != nil {
			m.status = "Copy failed: " + msg.err.Error()
		} else {
			m.status = "Copied to clipboard"
		}
		return m, nil

	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		if m.cancel != nil {
			m.cancel()
		}
		return m, tea.Quit

	case key.Matches(msg, m.keys.Cancel):
		if m.busy && m.cancel != nil {
			m.cancel()
			m.status = "Cancelling..."
			return m, nil
		}
		return m, tea.Quit

	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil

	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.items)-1 {
			m.cursor++
		}
		return m, nil

	case key.Matches(msg, m.keys.Copy):
		return m, m.copySelected()

	case key.Matches(msg, m.keys.Submit):
		if m.busy {
			return m, nil
		}
		query := m.input.Value()
		if strings.TrimSpace(query) == "" {
			return m, m.copySelected()
		}
		return m.submit(query)
	}

	if m.busy {
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) submit(query string) (tea.Model, tea.Cmd) {
	ctx, cancel := context.WithCancel(m.ctx)
	m.busy = true
	m.cancel = cancel
	m.status = ""
	m.input.Reset()

	handler := m.handler
	run := func() tea.Msg {
		return resultMsg{query: query, items: handler.Handle(ctx, query)}
	}
	return m, tea.Batch(run, m.spinner.Tick)
}

// copySelected copies the payload of the selected item, if it has one.
func (m Model) copySelected() tea.Cmd {
	if m.cursor >= len(m.items) || !m.items[m.cursor].HasAction() {
		return nil
	}
	payload := m.items[m.cursor].Action.Payload
	copyFn := m.copy
	return func() tea.Msg {
		return copiedMsg{err: copyFn(payload)}
	}
}

// Run starts the launcher on the terminal and blocks until the user quits.
func Run(ctx context.Context, handler Handler, theme styles.Theme) error {
	p := tea.NewProgram(New(ctx, handler, theme), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}
