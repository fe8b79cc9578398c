package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/gilchrisn/network-type-similarity/pkg/pipeline"
	"github.com/gilchrisn/network-type-similarity/pkg/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve analyses over HTTP",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().String("addr", ":8080", "listen address")
	serveCmd.Flags().Int("max-jobs", 4, "concurrent analysis jobs")
}

// bindServeFlags maps changed flags onto server config keys
func bindServeFlags(cmd *cobra.Command, cfg *pipeline.Config) error {
	bindings := map[string]string{
		"addr":     "server.address",
		"max-jobs": "server.max_jobs",
	}
	for flag, key := range bindings {
		if !cmd.Flags().Changed(flag) {
			continue
		}
		if err := cfg.Viper().BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			return fmt.Errorf("failed to bind --%s: %w", flag, err)
		}
	}
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := bindServeFlags(cmd, cfg); err != nil {
		return err
	}

	zerolog.TimeFieldFormat = time.RFC3339
	level, err := zerolog.ParseLevel(cfg.LogLevel())
	if err != nil {
		level = zerolog.InfoLevel
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).Level(level)

	srvCfg, err := server.ConfigFrom(cfg)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	log.Info().
		Str("address", srvCfg.Address).
		Int("max_jobs", srvCfg.Jobs.MaxJobs).
		Dur("job_timeout", srvCfg.Jobs.JobTimeout).
		Msg("Configuration loaded")

	srv := server.New(srvCfg)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-quit:
	}

	log.Info().Msg("Shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info().Msg("Server shutdown complete")
	return nil
}
