// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jeranaias/parley/internal/commands"
	"github.com/jeranaias/parley/internal/config"
	"github.com/jeranaias/parley/internal/model"
	"github.com/jeranaias/parley/internal/ui/launcher"
)

// historyFileName holds line-editor history inside the config directory.
const historyFileName = "chat_history"

// =============================================================================
// INPUT
// =============================================================================

// lineReader reads one line of user input per call.
type lineReader interface {
	ReadLine(prompt string) (string, error)
	Close()
}

// linerReader provides history and tab completion on a real terminal.
type linerReader struct {
	line        *liner.State
	historyFile string
	logger      *zap.Logger
}

func newLinerReader(registry *commands.Registry, logger *zap.Logger) *linerReader {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)
	line.SetCompleter(registry.Complete)

	r := &linerReader{line: line, logger: logger}
	if dir, err := config.ConfigDir(); err == nil {
		r.historyFile = filepath.Join(dir, historyFileName)
		if f, err := os.Open(r.historyFile); err == nil {
			if _, err := line.ReadHistory(f); err != nil {
				logger.Debug("could not read chat history", zap.Error(err))
			}
			f.Close()
		}
	}
	return r
}

func (r *linerReader) ReadLine(prompt string) (string, error) {
	input, err := r.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		r.line.AppendHistory(input)
	}
	return input, nil
}

// Close saves history with owner-only permissions and restores the terminal.
func (r *linerReader) Close() {
	defer r.line.Close()
	if r.historyFile == "" {
		return
	}
	if err := os.MkdirAll(filepath.Dir(r.historyFile), 0700); err != nil {
		return
	}
	f, err := os.OpenFile(r.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		r.logger.Debug("could not save chat history", zap.Error(err))
		return
	}
	defer f.Close()
	if _, err := r.line.WriteHistory(f); err != nil {
		r.logger.Debug("could not save chat history", zap.Error(err))
	}
}

// scanReader reads piped input. The prompt is not echoed.
type scanReader struct {
	scanner *bufio.Scanner
}

func (r *scanReader) ReadLine(string) (string, error) {
	if !r.scanner.Scan() {
		if err := r.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return r.scanner.Text(), nil
}

func (r *scanReader) Close() {}

// =============================================================================
// COMMAND
// =============================================================================

func newChatCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive session",
		Long: `Start a line-mode session. Every line is handled like a launcher query;
Tab completes command phrases. Type "exit" or press Ctrl+D to leave.
Ctrl+C cancels a request in flight.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var reader lineReader
			if a.interactive() {
				reader = newLinerReader(commands.NewRegistry(), a.logger)
			} else {
				reader = &scanReader{scanner: bufio.NewScanner(a.in)}
			}
			defer reader.Close()
			return a.chatLoop(cmd.Context(), reader)
		},
	}
}

func (a *app) chatLoop(ctx context.Context, reader lineReader) error {
	orch := a.newOrchestrator(a.cfg, a.logger)
	printer := newItemPrinter(a.out, orch.Theme(), a.interactive())

	if a.interactive() {
		fmt.Fprintln(a.out, mutedStyle.Render(`parley chat - "exit" or Ctrl+D to quit`))
	}

	for {
		input, err := reader.ReadLine(promptStyle.Render("parley> "))
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		if strings.EqualFold(input, "exit") || strings.EqualFold(input, "quit") {
			return nil
		}

		printer.print(a.handleInterruptible(ctx, orch, input))
	}
}

// handleInterruptible runs one query; Ctrl+C cancels it without ending the
// session.
func (a *app) handleInterruptible(ctx context.Context, h launcher.Handler, input string) []model.Item {
	reqCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	defer signal.Stop(sigCh)

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-sigCh:
			fmt.Fprintln(a.errOut, "\n"+warningStyle.Render("[Cancelled]"))
			cancel()
		case <-done:
		}
	}()

	return h.Handle(reqCtx, input)
}
