// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jeranaias/parley/internal/assistant"
	"github.com/jeranaias/parley/internal/config"
	"github.com/jeranaias/parley/internal/logging"
	"github.com/jeranaias/parley/internal/logstore"
	"github.com/jeranaias/parley/internal/session"
	"github.com/jeranaias/parley/internal/ui/launcher"
	"github.com/jeranaias/parley/internal/ui/styles"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// app carries state shared by all commands of one invocation.
type app struct {
	in     io.Reader
	out    io.Writer
	errOut io.Writer

	configPath string
	verbose    bool
	jsonOut    bool

	cfg    *config.Config
	logger *zap.Logger

	// newOrchestrator builds the assistant; tests replace it.
	newOrchestrator func(cfg *config.Config, logger *zap.Logger) *assistant.Orchestrator
	// interactive reports whether stdin and stdout are terminals.
	interactive func() bool
}

func newApp(in io.Reader, out, errOut io.Writer) *app {
	return &app{
		in:     in,
		out:    out,
		errOut: errOut,
		newOrchestrator: func(cfg *config.Config, logger *zap.Logger) *assistant.Orchestrator {
			return assistant.New(cfg, assistant.Options{Logger: logger})
		},
		interactive: func() bool { return IsTTY() && IsStdoutTTY() },
	}
}

// Execute runs the command line and returns the process exit code.
func Execute() int {
	a := newApp(os.Stdin, os.Stdout, os.Stderr)
	root := newRootCmd(a)
	if err := root.ExecuteContext(context.Background()); err != nil {
		var shown *shownError
		if !errors.As(err, &shown) {
			fmt.Fprintf(a.errOut, "%s %v\n", errorStyle.Render("Error:"), err)
		}
		return ExitCode(err)
	}
	return ExitSuccess
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "parley",
		Short: "A conversational assistant for the terminal",
		Long: `parley sends your questions to a chat-completion provider and keeps
a Markdown log of every exchange.

Typing one of these phrases runs a command instead of a chat:
  clear history            Forget the conversation so far
  view history             Show the last five exchanges
  export full log          Write every logged exchange to one file
  generate image <prompt>  Ask the image provider for a picture`,
		Version:       fmt.Sprintf("%s (commit %s, built %s)", Version, GitCommit, BuildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup()
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
		RunE: a.runLauncher,
	}
	root.SetIn(a.in)
	root.SetOut(a.out)
	root.SetErr(a.errOut)

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "configuration file (default ~/.parley/config.toml)")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "write debug diagnostics to stderr")
	flags.BoolVar(&a.jsonOut, "json", false, "machine-readable output")

	root.AddCommand(
		newAskCmd(a),
		newChatCmd(a),
		newLogsCmd(a),
		newConfigCmd(a),
	)
	return root
}

// setup loads configuration and builds the diagnostic logger.
func (a *app) setup() error {
	var (
		cfg *config.Config
		err error
	)
	if a.configPath != "" {
		cfg, err = config.LoadFromPath(a.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return &ConfigError{Err: err}
	}
	a.cfg = cfg

	opts := logging.Options{Level: cfg.Logging.Level, Verbose: a.verbose}
	if dir, err := config.ConfigDir(); err == nil {
		opts.Dir = dir
	}
	logger, err := logging.New(opts)
	if err != nil {
		// Diagnostics are optional; carry on without them.
		fmt.Fprintf(a.errOut, "%s %v\n", warningStyle.Render("Warning:"), err)
		logger = zap.NewNop()
	}
	a.logger = logger.With(zap.String("version", Version))
	styles.ConfigureOutput(a.out)
	return nil
}

// openStore opens the log store for maintenance commands. Those always see
// every session file, not just the one they would write.
func (a *app) openStore() *logstore.Store {
	return logstore.Open(a.cfg.Logging.Dir, session.New(time.Now()), true, a.logger.Named("logstore"))
}

// signalContext is cancelled on Ctrl+C or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func (a *app) runLauncher(cmd *cobra.Command, _ []string) error {
	if !a.interactive() {
		return cmd.Help()
	}
	orch := a.newOrchestrator(a.cfg, a.logger)
	return launcher.Run(cmd.Context(), orch, orch.Theme())
}
