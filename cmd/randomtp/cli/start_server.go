package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/rtpcraft/randomtp/internal/api"
	"github.com/rtpcraft/randomtp/internal/config"
	"github.com/rtpcraft/randomtp/internal/observability/metrics"
	"github.com/rtpcraft/randomtp/internal/observability/tracing"
)

const shutdownTimeout = 15 * time.Second

func StartServerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start-server",
		Short: "Starts the random teleport server",
		Args:  cobra.ExactArgs(0),
		RunE:  startServer,
	}

	return cmd
}

func startServer(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ctx = tracing.InjectTraceID(ctx)
	log := log.Ctx(ctx)

	// load config
	cfgPath := GetConfigPath()
	cfg, err := config.New(cfgPath)
	if err != nil {
		return fmt.Errorf("error while loading config file %s: %w", cfgPath, err)
	}

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	a.start(ctx)

	// initialize metrics with the metrics port from config
	metricsPort := cfg.Metrics.GetMetricsPort()
	metrics.Init(metricsPort)

	server := api.New(&cfg.Server, a.service, a.roster)
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start()
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("Shutting down")
	case err = <-serverErr:
		log.Error().Err(err).Msg("Api server stopped")
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	if shutdownErr := server.Shutdown(shutdownCtx); shutdownErr != nil {
		log.Error().Err(shutdownErr).Msg("Failed to shut down api server")
	}
	if stopErr := a.stop(shutdownCtx); stopErr != nil {
		log.Error().Err(stopErr).Msg("Failed to stop service cleanly")
	}

	return err
}
