// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"strings"

	"github.com/spf13/cobra"
)

func newAskCmd(a *app) *cobra.Command {
	var plain bool

	cmd := &cobra.Command{
		Use:   "ask <query>",
		Short: "Run a single query and print the result",
		Long: `Run one query through the assistant and print the resulting items.

The query may be a chat message or one of the command phrases, for example
"view history" or "generate image a lighthouse at dusk".`,
		Example: `  parley ask "What is the capital of France?"
  parley ask --json "export full log"
  parley ask generate image a red fox in snow`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext(cmd.Context())
			defer stop()

			query := strings.Join(args, " ")
			orch := a.newOrchestrator(a.cfg, a.logger)
			items := orch.Handle(ctx, query)

			if a.jsonOut {
				resp := NewJSONResponse("ask", toJSONItems(items))
				if it, failed := firstError(items); failed {
					resp = NewJSONErrorResponse("ask", itemError(it))
					resp.Data = toJSONItems(items)
				}
				if err := resp.Print(a.out); err != nil {
					return err
				}
			} else {
				markdown := !plain && IsStdoutTTY()
				newItemPrinter(a.out, orch.Theme(), markdown).print(items)
			}

			if it, failed := firstError(items); failed {
				return itemError(it)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&plain, "plain", false, "do not render Markdown")
	return cmd
}
