package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"voice-interviewer-go/internal/config"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the interview HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(ctx context.Context) error {
	cfg, loader, log, err := loadConfig()
	if err != nil {
		return err
	}
	log.WithField("service", "voice-interviewer-go").Info("starting service")
	if f := loader.File(); f != "" {
		log.WithField("config_file", f).Info("config loaded")
	}

	a, err := newApp(cfg, log)
	if err != nil {
		return err
	}

	loader.Watch(func(next *config.Config, err error) {
		if err != nil {
			log.WithError(err).Warn("config reload failed, keeping previous settings")
			return
		}
		log.SetLevel(next.Log.Level)
		log.WithField("level", next.Log.Level).Info("config reloaded")
	})

	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      a.routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", addr).Info("listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server terminated: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
