package main

import (
	"github.com/spf13/cobra"

	"github.com/slipstream/tvrenamer/internal/renamer"
)

func newUndoCommand(ctx *commandContext) *cobra.Command {
	var planPath string

	cmd := &cobra.Command{
		Use:   "undo [batch-id]",
		Short: "Revert an applied batch",
		Long: "Undo renames the files of an applied batch back to their original names, most\n" +
			"recent rename first. Without arguments it reverts the last batch in the journal.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runCtx := cmd.Context()

			svc, err := ctx.executor(runCtx, false)
			if err != nil {
				return err
			}
			if err := ctx.acquireLock(); err != nil {
				return err
			}

			var plan *renamer.Plan
			if planPath != "" {
				if plan, err = renamer.LoadPlan(planPath); err != nil {
					return err
				}
			} else {
				journal, err := ctx.history(runCtx)
				if err != nil {
					return err
				}
				batchID := ""
				if len(args) == 1 {
					batchID = args[0]
				} else if batchID, err = journal.LastBatchID(runCtx); err != nil {
					return err
				}
				if plan, err = journal.UndoPlan(runCtx, batchID); err != nil {
					return err
				}
			}

			_, runErr := svc.Undo(runCtx, plan)
			if planPath != "" {
				if err := renamer.SavePlan(planPath, plan); err != nil {
					return err
				}
			}
			if err := writePlan(cmd, ctx.flags.json, plan); err != nil {
				return err
			}
			return runErr
		},
	}

	cmd.Flags().StringVarP(&planPath, "plan", "p", "", "Undo the renames recorded in a plan file instead of the journal")
	return cmd
}
