package handlers

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"toolscout/internal/config"
	"toolscout/internal/logger"
	"toolscout/internal/research"
	"toolscout/internal/server"
	"toolscout/internal/store"
)

// NewServeCmd creates the serve command for starting the HTTP server
func NewServeCmd() *cobra.Command {
	var (
		port int
		host string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		Long: `Start the ToolScout HTTP server.

The server provides:
  • POST /research/start   start an autonomous research run
  • GET  /research/status  current run status with progress log
  • GET  /research/stream  live progress via Server-Sent Events
  • GET  /research/log     recent finished runs
  • GET  /tools            the current tool catalog
  • GET  /tools/stats      catalog statistics

Examples:
  # Start server on default port 8080
  toolscout serve

  # Start on custom port
  toolscout serve --port 3000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), port, host)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "HTTP server port (default from config: 8080)")
	cmd.Flags().StringVar(&host, "host", "", "HTTP server host (default from config: 0.0.0.0)")

	return cmd
}

func runServe(ctx context.Context, port int, host string) error {
	log := logger.Get()

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	serverCfg := cfg.Server
	if port != 0 {
		serverCfg.Port = port
	}
	if host != "" {
		serverCfg.Host = host
	}

	p, err := buildPipeline(ctx, cfg)
	if err != nil {
		return err
	}
	defer p.close()

	var runLog server.RunLog
	if p.store != nil {
		runLog = p.store
	}

	srv := server.New(p.controller, p.catalog, runLog, serverCfg)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- srv.Start()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		log.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, cancel := context.WithTimeout(context.Background(), serverCfg.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// interface satisfaction checks
var (
	_ server.ResearchController = (*research.Controller)(nil)
	_ server.RunLog             = (*store.Store)(nil)
)
