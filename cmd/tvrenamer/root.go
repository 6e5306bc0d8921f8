package main

import (
	"github.com/spf13/cobra"
)

// newRootCommand returns the command tree and a cleanup that releases the
// journal, lock and log file opened while running it.
func newRootCommand() (*cobra.Command, func() error) {
	flags := &globalFlags{}
	ctx := newCommandContext(flags)

	rootCmd := &cobra.Command{
		Use:           "tvrenamer",
		Short:         "Rename TV episode files using show metadata",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flags.config, "config", "c", "", "Configuration file path")
	pf.StringVar(&flags.logLevel, "log-level", "", "Log level (trace, debug, info, warn, error)")
	pf.BoolVar(&flags.json, "json", false, "Write JSON instead of a table")
	pf.BoolVar(&flags.mock, "mock", false, "Use the offline fixture catalogue instead of a remote provider")

	rootCmd.AddCommand(newPlanCommand(ctx))
	rootCmd.AddCommand(newApplyCommand(ctx))
	rootCmd.AddCommand(newUndoCommand(ctx))
	rootCmd.AddCommand(newHistoryCommand(ctx))

	return rootCmd, ctx.close
}
