package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ghabxph/dash-on-slack/internal/config"
	"github.com/ghabxph/dash-on-slack/internal/logging"
	"github.com/ghabxph/dash-on-slack/internal/version"
)

var envFile string

var rootCmd = &cobra.Command{
	Use:           "dash",
	Short:         "Dash: temporary Slack channels",
	Long:          `Dash creates short-lived Slack channels, closes them and shares their outcome.`,
	Version:       version.GetBuildInfo(),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// A missing .env is fine; the environment may already be set
		if err := godotenv.Load(envFile); err != nil && cmd.Flags().Changed("env-file") {
			return fmt.Errorf("failed to load %s: %w", envFile, err)
		}
		return nil
	},
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "environment file to load before reading configuration")

	rootCmd.AddCommand(newServeCommand())
	rootCmd.AddCommand(newVersionCommand())
	rootCmd.AddCommand(newStoreCommand())
}

// loadConfig reads and validates the environment and builds the logger.
func loadConfig() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	logger, err := logging.NewLogger(cfg.LogLevel, cfg.LogFormat, cfg.EnableDebug)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Run: func(cmd *cobra.Command, args []string) {
			info := version.GetVersionInfo()
			fmt.Fprintf(cmd.OutOrStdout(), "dash %s\n", version.GetBuildInfo())
			if info["git_hash"] != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "commit %s\n", info["git_hash"])
			}
		},
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
