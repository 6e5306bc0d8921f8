package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/slipstream/tvrenamer/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var page, pageSize int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List journaled rename batches",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			journal, err := ctx.history(cmd.Context())
			if err != nil {
				return err
			}
			resp, err := journal.List(cmd.Context(), history.ListOptions{Page: page, PageSize: pageSize})
			if err != nil {
				return err
			}
			if useJSON(cmd, ctx.flags.json) {
				return writeJSON(cmd, resp)
			}

			rows := make([][]string, 0, len(resp.Items))
			for _, b := range resp.Items {
				rows = append(rows, []string{
					b.ID,
					b.CreatedAt.Local().Format(time.DateTime),
					strconv.Itoa(b.Applied),
					strconv.Itoa(b.RolledBack),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Batch", "Created", "Applied", "Rolled back"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight},
			))
			fmt.Fprintf(cmd.OutOrStdout(), "Page %d of %d (%d batches)\n", resp.Page, max(resp.TotalPages, 1), resp.TotalCount)
			return nil
		},
	}
	cmd.Flags().IntVar(&page, "page", 1, "Page to show")
	cmd.Flags().IntVar(&pageSize, "page-size", 20, "Batches per page")

	cmd.AddCommand(newHistoryShowCommand(ctx))
	cmd.AddCommand(newHistoryPruneCommand(ctx))
	return cmd
}

func newHistoryShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <batch-id>",
		Short: "Show the renames of one batch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			journal, err := ctx.history(cmd.Context())
			if err != nil {
				return err
			}
			entries, err := journal.GetBatch(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if useJSON(cmd, ctx.flags.json) {
				return writeJSON(cmd, entries)
			}

			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				rows = append(rows, []string{strconv.Itoa(e.Seq), string(e.Status), e.Source, e.Target})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"#", "Status", "Source", "Target"},
				rows,
				[]columnAlignment{alignRight},
			))
			return nil
		},
	}
}

func newHistoryPruneCommand(ctx *commandContext) *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete journal batches older than the retention period",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			journal, err := ctx.history(cmd.Context())
			if err != nil {
				return err
			}
			if days == 0 {
				days = ctx.config.Database.RetentionDays
			}
			n, err := journal.CleanupOldEntries(cmd.Context(), days)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Pruned %d batches\n", n)
			return nil
		},
	}
	cmd.Flags().IntVar(&days, "older-than", 0, "Retention in days (default from config)")
	return cmd
}
