package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/slipstream/tvrenamer/internal/renamer"
)

func newApplyCommand(ctx *commandContext) *cobra.Command {
	var planPath string

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Apply a plan saved with plan --out",
		Long: "Apply re-checks a saved plan against the filesystem, then performs its planned\n" +
			"renames. The plan file is updated with the outcome so it can be undone.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			runCtx := cmd.Context()

			plan, err := renamer.LoadPlan(planPath)
			if err != nil {
				return err
			}
			if plan.Summary().Applied > 0 {
				return errors.New("plan has already been applied; use undo to revert it")
			}

			svc, err := ctx.executor(runCtx, plan.Overwrite)
			if err != nil {
				return err
			}
			if err := ctx.acquireLock(); err != nil {
				return err
			}

			svc.Recheck(plan)
			_, runErr := svc.Execute(runCtx, plan, true)
			if err := renamer.SavePlan(planPath, plan); err != nil {
				return err
			}
			if err := writePlan(cmd, ctx.flags.json, plan); err != nil {
				return err
			}
			return runErr
		},
	}

	cmd.Flags().StringVarP(&planPath, "plan", "p", "", "Plan file to apply")
	_ = cmd.MarkFlagRequired("plan")
	return cmd
}
