package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ghabxph/dash-on-slack/internal/bot"
	"github.com/ghabxph/dash-on-slack/internal/claude"
	"github.com/ghabxph/dash-on-slack/internal/metrics"
	"github.com/ghabxph/dash-on-slack/internal/repository"
	"github.com/ghabxph/dash-on-slack/internal/version"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the bot until interrupted",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger.Info("Starting dash",
		zap.String("version", version.GetVersion()),
		zap.String("build", version.GetBuildInfo()))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := repository.NewInstallationStore(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to open installation store: %w", err)
	}
	defer store.Close()

	summarizer := claude.NewSummarizer(cfg, logger)
	if !summarizer.Enabled() {
		logger.Warn("ANTHROPIC_API_KEY not set, AI summaries are disabled")
	}

	service := bot.NewService(cfg, bot.Deps{
		Store:      store,
		Summarizer: summarizer,
		Metrics:    metrics.New(),
	}, logger)

	if err := service.Start(ctx); err != nil {
		return fmt.Errorf("failed to start bot: %w", err)
	}

	<-ctx.Done()
	logger.Info("Shutdown signal received")
	service.Stop()
	return nil
}
