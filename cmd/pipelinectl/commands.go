package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/charpstar/pipeline-backend/internal/platform/dbctx"
)

func newSweepCommand(cc *commandContext) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Delete allocation lists that have no assets left",
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, closeFn, err := cc.load(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()
			out := cmd.OutOrStdout()

			return withLock(deps.LockDir, "sweep", func() error {
				if dryRun {
					report, err := deps.Cleanup.FindOrphans(cmd.Context())
					if err != nil {
						return err
					}
					fmt.Fprintln(out, renderOrphans(report, true))
					printInfo(out, "dry run: %d list(s) would be deleted", report.OrphanedCount)
					return nil
				}
				res, err := deps.Cleanup.SweepAll(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintln(out, renderSweep(res))
				if len(res.Errors) > 0 {
					printWarning(out, "%d list(s) failed; see errors above", len(res.Errors))
					return nil
				}
				printSuccess(out, "deleted %d list(s), %d remaining", res.DeletedCount, res.RemainingCount)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report empty lists without deleting them")
	return cmd
}

func newOrphansCommand(cc *commandContext) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "orphans",
		Short: "Report allocation lists with no assets",
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, closeFn, err := cc.load(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()
			out := cmd.OutOrStdout()

			report, err := deps.Cleanup.FindOrphans(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(out, renderOrphans(report, !all))
			printInfo(out, "%d orphaned, %d active, %d total", report.OrphanedCount, report.ActiveCount, report.TotalLists)
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Include active lists in the table")
	return cmd
}

func newRefreshRollupsCommand(cc *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh-rollups",
		Short: "Recompute the approval status of every allocation list",
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, closeFn, err := cc.load(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()
			out := cmd.OutOrStdout()

			return withLock(deps.LockDir, "refresh-rollups", func() error {
				res, err := deps.Rollup.RefreshAll(cmd.Context())
				if err != nil {
					return err
				}
				if res.Failed > 0 {
					printWarning(out, "checked %d, updated %d, failed %d", res.Checked, res.Updated, res.Failed)
					return nil
				}
				printSuccess(out, "checked %d, updated %d", res.Checked, res.Updated)
				return nil
			})
		},
	}
}

func newDeadLettersCommand(cc *commandContext) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "dead-letters",
		Short: "List side-effect tasks that exhausted their attempts",
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, closeFn, err := cc.load(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()
			out := cmd.OutOrStdout()

			rows, err := deps.Tasks.ListDead(dbctx.Context{Ctx: cmd.Context()}, limit)
			if err != nil {
				return err
			}
			if len(rows) == 0 {
				printSuccess(out, "no dead-lettered tasks")
				return nil
			}
			fmt.Fprintln(out, renderDeadLetters(rows))
			printWarning(out, "%d dead-lettered task(s)", len(rows))
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum rows to show")
	return cmd
}
