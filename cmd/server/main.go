package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"airquality-platform/internal/config"
	"airquality-platform/internal/handlers"
	"airquality-platform/internal/models"
	"airquality-platform/internal/services"
	"airquality-platform/pkg/logging"
	"airquality-platform/pkg/metrics"
)

const version = "1.0.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		cfgFile    string
		runOnStart bool
	)
	v := viper.New()

	cmd := &cobra.Command{
		Use:           "airquality-server",
		Short:         "Serve air quality analysis results over HTTP",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadWith(v, cfgFile)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			return serve(cfg, runOnStart)
		},
	}

	cmd.Flags().StringVar(&cfgFile, "config", "", "config file (YAML)")
	cmd.Flags().BoolVar(&runOnStart, "run-on-start", true, "run the analysis once before serving")
	cmd.Flags().Int("port", 8080, "HTTP listen port")
	cmd.Flags().String("data-source", config.SourceFiles, "where batches are loaded from (files, postgres)")
	cmd.Flags().String("data-dir", "./data", "directory of station CSV files")
	cmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	_ = v.BindPFlag("server.port", cmd.Flags().Lookup("port"))
	_ = v.BindPFlag("data.source", cmd.Flags().Lookup("data-source"))
	_ = v.BindPFlag("data.dir", cmd.Flags().Lookup("data-dir"))
	_ = v.BindPFlag("logging.level", cmd.Flags().Lookup("log-level"))

	return cmd
}

func serve(cfg *config.Config, runOnStart bool) error {
	logLevel, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return err
	}
	logger := logging.NewStructuredLogger("airquality-api", version, logLevel)

	ctx := context.Background()
	logger.Info(ctx, "[STARTUP] Starting air quality API server", logging.Fields{
		"version":     version,
		"server_host": cfg.Server.Host,
		"server_port": cfg.Server.Port,
		"data_source": cfg.Data.Source,
	})

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metricsCollector := metrics.NewCollector(cfg.Metrics.Namespace, registry)

	backend, err := services.OpenBackend(ctx, cfg, logger, metricsCollector)
	if err != nil {
		return err
	}
	defer backend.Close()

	analysisService := services.NewAnalysisService(backend.Source, logger, metricsCollector)

	if runOnStart {
		// a failed first run leaves the API up; clients see 503 until a refresh succeeds
		if _, err := analysisService.Run(ctx); err != nil {
			logger.Warn(ctx, "[STARTUP_RUN] Initial analysis failed", logging.Fields{
				"error": err.Error(),
				"kind":  models.ErrorKind(err),
			})
		}
	}

	analysisHandler := handlers.NewAnalysisHandler(analysisService, backend.Store, logger, metricsCollector)

	router := mux.NewRouter()
	analysisHandler.RegisterRoutes(router)
	router.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info(ctx, "[SERVER_START] HTTP server listening", logging.Fields{
			"address": server.Addr,
		})
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		logger.Error(ctx, "[SERVER_ERROR] Server failed", logging.Fields{}, err)
		return fmt.Errorf("server failed: %w", err)
	case <-quit:
	}

	logger.Info(ctx, "[SHUTDOWN] Shutting down server...", logging.Fields{})

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "[SHUTDOWN_ERROR] Server forced to shutdown", logging.Fields{}, err)
		return err
	}

	logger.Info(ctx, "[SHUTDOWN_COMPLETE] Server stopped", logging.Fields{})
	return nil
}
