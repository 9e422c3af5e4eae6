package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var configFlag string
	cc := newCommandContext(&configFlag)
	return buildRootCommand(cc, &configFlag)
}

func buildRootCommand(cc *commandContext, configFlag *string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "pipelinectl",
		Short:         "Maintenance commands for the asset production pipeline",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	rootCmd.PersistentFlags().StringVarP(configFlag, "config", "c", "", "YAML config file (overrides PIPELINE_CONFIG_FILE)")

	rootCmd.AddCommand(newSweepCommand(cc))
	rootCmd.AddCommand(newOrphansCommand(cc))
	rootCmd.AddCommand(newRefreshRollupsCommand(cc))
	rootCmd.AddCommand(newDeadLettersCommand(cc))
	return rootCmd
}
