package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/slipstream/tvrenamer/internal/library/scanner"
	"github.com/slipstream/tvrenamer/internal/renamer"
)

func newPlanCommand(ctx *commandContext) *cobra.Command {
	var (
		apply       bool
		out         string
		opts        engineOptions
		skipRenamed bool
	)

	cmd := &cobra.Command{
		Use:   "plan <path>...",
		Short: "Plan renames for episode files (and apply them with --apply)",
		Long: "Plan resolves every file against the metadata provider and prints the proposed\n" +
			"renames. Directories are scanned recursively for video files. Nothing on disk\n" +
			"changes unless --apply is given.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runCtx := cmd.Context()
			log := ctx.logger()

			scan, err := scanner.NewService(log).Collect(runCtx, args)
			if err != nil {
				return err
			}
			for _, se := range scan.Errors {
				log.Warn().Str("path", se.Path).Str("error", se.Error).Msg("Skipped unreadable path")
			}

			svc, err := ctx.engine(runCtx, opts)
			if err != nil {
				return err
			}

			found := scan.Files
			if skipRenamed {
				journal, err := ctx.history(runCtx)
				if err != nil {
					return err
				}
				if found, err = journal.FilterJournaled(runCtx, found); err != nil {
					return err
				}
			}

			files := make([]renamer.RawFile, len(found))
			for i, f := range found {
				files[i] = renamer.RawFile{Path: f.Path}
			}

			if apply {
				if err := ctx.acquireLock(); err != nil {
					return err
				}
			}

			plan, runErr := svc.Run(runCtx, files, apply)
			if plan != nil && out != "" {
				if err := renamer.SavePlan(out, plan); err != nil {
					return err
				}
				log.Info().Str("path", out).Msg("Saved rename plan")
			}
			if plan != nil {
				if err := writePlan(cmd, ctx.flags.json, plan); err != nil {
					return err
				}
			}
			if errors.Is(runErr, renamer.ErrCancelled) {
				return fmt.Errorf("run cancelled: %w", runErr)
			}
			return runErr
		},
	}

	f := cmd.Flags()
	f.BoolVar(&apply, "apply", false, "Rename the files instead of only printing the plan")
	f.StringVarP(&out, "out", "o", "", "Save the plan to a YAML file for a later apply")
	f.StringVar(&opts.showID, "show-id", "", "Provider show id to use for every file, skipping search")
	f.StringVar(&opts.showTitle, "show-title", "", "Show title to use with --show-id")
	f.BoolVar(&opts.overwrite, "overwrite", false, "Replace files that already exist at a target path")
	f.IntVar(&opts.concurrency, "concurrency", 0, "Files resolved at once (default from config)")
	f.BoolVar(&skipRenamed, "skip-renamed", false, "Skip files an earlier applied batch produced")

	return cmd
}
