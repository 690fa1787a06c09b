package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/sandevgo/tuskthread/internal/transport/cli"
	"github.com/sandevgo/tuskthread/pkg/log"
	"github.com/sandevgo/tuskthread/pkg/srv"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat in the terminal",
	Long:  `Opens a REPL on the conversation of --user. Plain lines are messages; /help lists the branch commands.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		var flushLog func()
		ctx, flushLog = setupLogger(ctx)
		defer flushLog()

		logger := log.FromCtx(ctx)

		a, err := newApp(ctx, true)
		if err != nil {
			return err
		}

		repl, err := cli.NewReadLine(a.manager, slotKey(), a.cfg.GetInputHistoryPath())
		if err != nil {
			srv.StopServices(ctx, a.services)
			return err
		}

		runCtx, cancel := context.WithCancel(ctx)
		srv.StartServices(runCtx, a.services)

		err = repl.Start(ctx)
		if err != nil && ctx.Err() == nil {
			logger.Error().Err(err).Msg("chat stopped")
		} else {
			err = nil
		}

		// background loops end with runCtx, then every service is stopped
		cancel()
		srv.StopServices(ctx, a.services)
		if closeErr := repl.Shutdown(ctx); closeErr != nil {
			logger.Debug().Err(closeErr).Msg("failed to close readline")
		}

		logger.Info().Msg("tuskthread has been shut down gracefully")
		return err
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
}
