package main

import (
	"github.com/spf13/cobra"

	"github.com/sandevgo/tuskthread/internal/config"
	"github.com/sandevgo/tuskthread/internal/service/installer"
	"github.com/sandevgo/tuskthread/pkg/log"
)

var (
	force    bool
	defaults bool
)

var initCmd = &cobra.Command{
	Use:          "init",
	Short:        "Configure the LLM provider and write the runtime .env",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, flushLog := setupLogger(cmd.Context())
		defer flushLog()
		logger := log.FromCtx(ctx)

		cfg := config.NewDefaultConfig()
		cfg.RuntimePath = config.GetRuntimePath()

		if defaults {
			envPath, err := installer.SaveEnv(cfg, force)
			if err != nil {
				return err
			}
			logger.Info().Str("path", envPath).Msg("Wrote default configuration. Set LLM_API_KEY and run 'tuskthread chat'.")
			return nil
		}

		state, err := installer.RunWizard(installer.NewInstallState(cfg, force))
		if err != nil {
			return err
		}
		logger.Info().
			Str("path", state.EnvPath).
			Str("provider", state.Config.Provider).
			Str("model", state.Config.Model).
			Msg("Configuration saved. Run 'tuskthread chat' to start.")
		return nil
	},
}

func init() {
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing .env")
	initCmd.Flags().BoolVar(&defaults, "defaults", false, "write the default configuration without prompting")
	rootCmd.AddCommand(initCmd)
}
