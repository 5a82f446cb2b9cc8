// Command calbot runs the calbot Discord bot and offers local access to its
// System F pipeline.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/calypso-lang/calypso-bot/logging"
	"github.com/calypso-lang/calypso-bot/pipeline"
)

var (
	// Global flags
	configPath string
	logLevel   string
	logFormat  string

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "calbot",
	Short: "calbot - a Discord bot for the Calypso language",
	Long: `calbot is a Discord bot that parses, resolves and typechecks terms of
an extended System F.

Use "calbot run" to connect to Discord, or "calbot eval" to run the
pipeline locally.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		logger, err = logging.New(logging.Options{Level: logLevel, Format: logFormat})
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: search calbot.yaml, config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "console", "Log format: json or console")

	runCmd.Flags().BoolVar(&watchConfig, "watch-config", false, "Reload prefix, owners and status when the config file changes")

	evalCmd.Flags().StringVarP(&evalStage, "stage", "s", "infer", "Last stage to run: parse, resolve or infer")
	evalCmd.Flags().IntVarP(&evalWidth, "width", "w", 80, "Line width for rendered terms")

	watchCmd.Flags().StringVarP(&evalStage, "stage", "s", "infer", "Last stage to run: parse, resolve or infer")
	watchCmd.Flags().IntVarP(&evalWidth, "width", "w", 80, "Line width for rendered terms")

	rootCmd.AddCommand(runCmd, evalCmd, watchCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		// Reports from the pipeline have already been printed.
		if !pipeline.Reported(err) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}
