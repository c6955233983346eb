package cli

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/miradorstack/mirador-intel/internal/api"
	"github.com/miradorstack/mirador-intel/internal/jobs"
	"github.com/miradorstack/mirador-intel/internal/metrics"
)

func newServeCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the gRPC server, metrics endpoint and snooze sweeper",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), opts)
		},
	}
}

func runServe(parent context.Context, opts *rootOptions) error {
	cfg, logger, err := loadConfig(opts, os.Stdout)
	if err != nil {
		return err
	}
	logger.Info("starting mirador-intel", slog.String("address", cfg.Server.Address), slog.String("version", Version))

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		return err
	}

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := NewApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer app.Close(context.Background())

	server, err := api.NewServer(cfg.Server, app.Service, logger)
	if err != nil {
		return err
	}

	var sweeper *jobs.SnoozeSweeper
	if cfg.Jobs.SnoozeSweepEnabled {
		sweeper, err = jobs.NewSnoozeSweeper(app.Learning, app.Cache, cfg.Jobs.SnoozeSweepInterval, nil, logger)
		if err != nil {
			return err
		}
		if err := sweeper.Start(ctx); err != nil {
			return err
		}
	}

	var metricsServer *http.Server
	if cfg.Server.MetricsAddress != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer = &http.Server{
			Addr:         cfg.Server.MetricsAddress,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 15 * time.Second,
		}
		go func() {
			logger.Info("metrics server listening", slog.String("address", cfg.Server.MetricsAddress))
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server exited", slog.Any("error", err))
				stop()
			}
		}()
	}

	logger.Info("gRPC server listening", slog.String("address", server.Address()))
	serveErr := server.Run(ctx)
	if serveErr != nil {
		logger.Error("gRPC server exited", slog.Any("error", serveErr))
	}
	stop()
	logger.Info("shutting down")

	if sweeper != nil {
		if err := sweeper.Stop(); err != nil {
			logger.Warn("snooze sweeper shutdown", slog.Any("error", err))
		}
	}

	if metricsServer != nil {
		metricsCtx, cancelMetrics := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(metricsCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server shutdown", slog.Any("error", err))
		}
		cancelMetrics()
	}

	logger.Info("mirador-intel stopped")
	return serveErr
}
