// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jeranaias/parley/internal/config"
	"github.com/jeranaias/parley/internal/index"
	"github.com/jeranaias/parley/internal/logstore"
	"github.com/jeranaias/parley/internal/util"
)

func newLogsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Manage conversation logs",
		Long: `Inspect and maintain the Markdown conversation logs.

Logs live in logging.dir (default ~/.parley/logs), one file per session.`,
	}
	cmd.AddCommand(
		newLogsExportCmd(a),
		newLogsCleanupCmd(a),
		newLogsShowCmd(a),
		newLogsTailCmd(a),
		newLogsSearchCmd(a),
	)
	return cmd
}

func newLogsExportCmd(a *app) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write every logged exchange to one Markdown file",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			path, err := a.openStore().ExportFull(dir)
			if a.jsonOut {
				if err != nil {
					return printJSONError(a.out, "logs export", err)
				}
				return NewJSONResponse("logs export", map[string]string{"path": path}).Print(a.out)
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, path)
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "target directory (default: the log directory)")
	return cmd
}

func newLogsCleanupCmd(a *app) *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete logs older than the retention period",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("days") {
				days = a.cfg.Logging.RetentionDays
			}
			report, err := a.openStore().Cleanup(days)
			if a.jsonOut {
				if err != nil {
					return printJSONError(a.out, "logs cleanup", err)
				}
				return NewJSONResponse("logs cleanup", report).Print(a.out)
			}
			if err != nil {
				return err
			}
			for _, p := range report.Deleted {
				fmt.Fprintln(a.out, mutedStyle.Render("deleted "+p))
			}
			for _, p := range report.Failed {
				fmt.Fprintln(a.errOut, warningStyle.Render("could not delete "+p))
			}
			fmt.Fprintf(a.out, "%d of %d log files removed\n", len(report.Deleted), report.Scanned)
			return nil
		},
	}
	cmd.Flags().IntVar(&days, "days", 0, "retention in days (default: logging.retention_days, 0 disables)")
	return cmd
}

func newLogsShowCmd(a *app) *cobra.Command {
	var count int
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the most recent logged exchanges",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			if count < 1 {
				return &UsageError{Message: "--count must be at least 1"}
			}
			records, err := a.openStore().Recent(count)
			if a.jsonOut {
				if err != nil {
					return printJSONError(a.out, "logs show", err)
				}
				return NewJSONResponse("logs show", records).Print(a.out)
			}
			if err != nil {
				return err
			}
			if len(records) == 0 {
				fmt.Fprintln(a.out, "No logged exchanges.")
				return nil
			}
			for _, rec := range records {
				printRecord(a.out, rec)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 5, "number of exchanges to show")
	return cmd
}

func newLogsTailCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "tail",
		Short: "Print new exchanges as they are logged",
		Long: `Watch the log directory and print each exchange as it is written,
including those from other running sessions. Ctrl+C stops.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store := a.openStore()
			if store.Disabled() {
				return fmt.Errorf("log directory unavailable: %s", store.TakeWarning())
			}

			ctx, stop := signalContext(cmd.Context())
			defer stop()

			fmt.Fprintln(a.errOut, mutedStyle.Render("following "+store.Dir()))
			err := logstore.Follow(ctx, store.Dir(), func(rec logstore.Record) {
				printRecord(a.out, rec)
			}, a.logger.Named("follow"))
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
}

func newLogsSearchCmd(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "search <terms>",
		Short: "Full-text search over logged exchanges",
		Long: `Search every session log for exchanges containing all of the terms.

A search index is kept next to the configuration file and refreshed
from the logs on each search.`,
		Example: `  parley logs search goroutine leak
  parley logs search --limit 50 kubernetes`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store := a.openStore()
			if store.Disabled() {
				return fmt.Errorf("log directory unavailable: %s", store.TakeWarning())
			}
			dir, err := config.ConfigDir()
			if err != nil {
				return &ConfigError{Err: err}
			}

			idx, err := index.Open(filepath.Join(dir, index.FileName), a.logger.Named("index"))
			if err != nil {
				return err
			}
			defer idx.Close()

			ctx := cmd.Context()
			if _, err := idx.Sync(ctx, store.Dir()); err != nil {
				return err
			}
			hits, err := idx.Search(ctx, strings.Join(args, " "), limit)
			if err != nil {
				return err
			}

			if a.jsonOut {
				return NewJSONResponse("logs search", hits).Print(a.out)
			}
			if len(hits) == 0 {
				fmt.Fprintln(a.out, "No matches.")
				return nil
			}
			for _, h := range hits {
				printRecord(a.out, h.Record)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", index.DefaultLimit, "maximum number of results")
	return cmd
}

// printRecord writes one logged exchange in a compact form.
func printRecord(w io.Writer, rec logstore.Record) {
	ex := rec.Exchange
	header := fmt.Sprintf("%s  %s", ex.Timestamp.Local().Format(time.DateTime), ex.Model)
	fmt.Fprintln(w, promptStyle.Render(header))
	fmt.Fprintf(w, "  User: %s\n", util.TruncateWidth(util.OneLine(ex.UserQuery), 100))
	if ex.Failed() {
		fmt.Fprintf(w, "  %s\n", errorStyle.Render("Error: "+util.OneLine(ex.ErrorNote)))
	} else {
		fmt.Fprintf(w, "  Assistant: %s\n", util.TruncateWidth(util.OneLine(ex.AssistantResponse), 100))
	}
}

// printJSONError prints a failure envelope and marks err as already shown.
func printJSONError(w io.Writer, command string, err error) error {
	if perr := NewJSONErrorResponse(command, err).Print(w); perr != nil {
		return perr
	}
	return &shownError{Err: err}
}
