package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sandevgo/tuskthread/internal/transport/cli"
	"github.com/sandevgo/tuskthread/pkg/srv"
)

var versionPath string

var historyCmd = &cobra.Command{
	Use:          "history",
	Short:        "Print a stored conversation",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, flushLog := setupLogger(cmd.Context())
		defer flushLog()

		a, err := newApp(ctx, false)
		if err != nil {
			return err
		}
		defer srv.StopServices(ctx, a.services)

		h, err := a.manager.GetHistory(ctx, slotKey(), versionPath)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), cli.RenderHistory(h))
		return nil
	},
}

var versionsCmd = &cobra.Command{
	Use:          "versions [turn]",
	Short:        "List the versions of one turn or of all turns",
	Args:         cobra.MaximumNArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		turnID := 0
		if len(args) == 1 {
			if _, err := fmt.Sscanf(args[0], "%d", &turnID); err != nil {
				return fmt.Errorf("turn must be a number: %w", err)
			}
		}

		ctx, flushLog := setupLogger(cmd.Context())
		defer flushLog()

		a, err := newApp(ctx, false)
		if err != nil {
			return err
		}
		defer srv.StopServices(ctx, a.services)

		infos, err := a.manager.GetVersions(ctx, slotKey(), turnID)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), cli.RenderVersions(infos))
		return nil
	},
}

func init() {
	historyCmd.Flags().StringVarP(&versionPath, "path", "p", "", "show the branch through <turn_id>:<version_id>")
	rootCmd.AddCommand(historyCmd, versionsCmd)
}
