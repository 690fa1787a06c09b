package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/sandevgo/tuskthread/internal/config"
	"github.com/sandevgo/tuskthread/internal/core"
	"github.com/sandevgo/tuskthread/internal/service/ui"
	"github.com/sandevgo/tuskthread/pkg/log"
)

var (
	debug    bool
	user     string
	question string
	answer   string
)

var rootCmd = &cobra.Command{
	Use:     "tuskthread",
	Short:   "TuskThread — branching conversations with long memory",
	Long:    `TuskThread keeps long chat conversations bounded: recent turns stay verbatim, older ones are archived into summaries, and every edit or regeneration opens a branch you can return to.`,
	Version: core.TaskVersion,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	// Global flags available to all subcommands
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", config.IsDebug(), "enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&user, "user", "u", defaultUser(), "user the conversation belongs to")
	rootCmd.PersistentFlags().StringVar(&question, "question", "cli", "question context of the conversation")
	rootCmd.PersistentFlags().StringVar(&answer, "answer", "cli", "answer context of the conversation")
}

func setupLogger(ctx context.Context) (context.Context, func()) {
	isDebug := debug || config.IsDebug()
	return log.NewContextWithLogger(ctx, isDebug)
}

func slotKey() core.SlotKey {
	return core.SlotKey{User: user, Question: question, Answer: answer}
}

func defaultUser() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "local"
}

func CustomizeHelp(rootCmd *cobra.Command) {
	cobra.AddTemplateFunc("StyleTitle", func(s string) string { return ui.TitleStyle.Render(s) })
	cobra.AddTemplateFunc("StyleUsage", func(s string) string { return ui.UsageStyle.Render(s) })
	cobra.AddTemplateFunc("StyleFlag", func(s string) string { return ui.FlagStyle.Render(s) })
	cobra.AddTemplateFunc("StyleDesc", func(s string) string { return ui.DescStyle.Render(s) })

	template := `
{{StyleTitle "USAGE"}}
  {{StyleUsage .UseLine}}
{{if gt (len .Commands) 0}}{{StyleTitle "AVAILABLE COMMANDS"}}
{{range .Commands}}{{if (or .IsAvailableCommand (eq .Name "help"))}}
  {{rpad .Name .NamePadding}} {{StyleDesc .Short}}{{end}}
{{end}}{{end}}
{{if .HasAvailableLocalFlags}}{{StyleTitle "FLAGS"}}
{{.LocalFlags.FlagUsages | trimTrailingWhitespaces | StyleFlag}}
{{end}}
`
	rootCmd.SetHelpTemplate(template)
}
