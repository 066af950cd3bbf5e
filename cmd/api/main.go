package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"voice-interviewer-go/internal/config"
	"voice-interviewer-go/internal/logger"
)

var configDir string

func main() {
	root := &cobra.Command{
		Use:           "voice-interviewer",
		Short:         "Adaptive voice interview service",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
	root.PersistentFlags().StringVar(&configDir, "config-dir", "config", "directory holding config.yaml")
	root.AddCommand(serveCmd(), classifyCmd(), guideCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := root.ExecuteContext(ctx)
	stop()
	if err != nil {
		logger.New().WithError(err).Error("command failed")
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, *config.Loader, *logger.Logger, error) {
	cfg, loader, err := config.Load(configDir)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, loader, logger.NewWith(cfg.Log.Level, cfg.Log.File), nil
}
