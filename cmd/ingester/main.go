package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"airquality-platform/internal/config"
	"airquality-platform/internal/repository"
	"airquality-platform/internal/services"
	"airquality-platform/pkg/database"
	"airquality-platform/pkg/logging"
	"airquality-platform/pkg/metrics"
)

const version = "1.0.0"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		cfgFile string
		quiet   bool
	)
	v := viper.New()

	cmd := &cobra.Command{
		Use:           "airquality-ingester",
		Short:         "Load station CSV files into Postgres",
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
			out := cmd.OutOrStdout()
			if quiet {
				out = io.Discard
			}
			return ingest(cmd.Context(), cfg, out)
		},
	}

	cmd.Flags().StringVar(&cfgFile, "config", "", "config file (YAML)")
	cmd.Flags().BoolVar(&quiet, "quiet", false, "suppress the progress bar and summary")
	cmd.Flags().String("data-dir", "./data", "directory containing station CSV files")
	cmd.Flags().String("pattern", "*.csv", "file name pattern inside the data directory")
	cmd.Flags().Int("batch-size", 1000, "number of rows inserted per transaction")
	cmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	_ = v.BindPFlag("data.dir", cmd.Flags().Lookup("data-dir"))
	_ = v.BindPFlag("data.pattern", cmd.Flags().Lookup("pattern"))
	_ = v.BindPFlag("data.batch_size", cmd.Flags().Lookup("batch-size"))
	_ = v.BindPFlag("logging.level", cmd.Flags().Lookup("log-level"))

	return cmd
}

func ingest(ctx context.Context, cfg *config.Config, out io.Writer) error {
	logLevel, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return err
	}
	logger := logging.NewStructuredLogger("airquality-ingester", version, logLevel)

	logger.Info(ctx, "[INGESTER_START] Starting station data ingestion", logging.Fields{
		"version":    version,
		"data_dir":   cfg.Data.Dir,
		"pattern":    cfg.Data.Pattern,
		"batch_size": cfg.Data.BatchSize,
	})

	metricsCollector := metrics.NewCollector(cfg.Metrics.Namespace+"_ingester", prometheus.NewRegistry())

	db, err := database.NewPostgresDB(cfg.Database.Connection(), logger, metricsCollector)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	repo := repository.NewObservationRepository(db, logger, metricsCollector)
	ingestionService := services.NewIngestionService(repo, logger, metricsCollector)

	source := services.NewFileSource(cfg.Data.Dir, cfg.Data.Pattern, logger)
	files, err := source.Files()
	if err != nil {
		return err
	}

	bar := progressbar.NewOptions(len(files),
		progressbar.OptionSetWriter(out),
		progressbar.OptionShowCount(),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("Ingesting station files"),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(out)
		}),
	)

	result, err := ingestionService.IngestDirectory(ctx, source, cfg.Data.BatchSize, bar)
	if err != nil {
		logger.Error(ctx, "[INGESTION_ERROR] Ingestion failed", logging.Fields{}, err)
		return err
	}

	printResult(out, result)

	logger.Info(ctx, "[INGESTER_COMPLETE] Ingestion completed", logging.Fields{
		"total_files":        result.TotalFiles,
		"total_records":      result.TotalRecords,
		"successful_records": result.SuccessfulRecords,
		"failed_records":     result.FailedRecords,
		"duration_seconds":   result.Duration.Seconds(),
	})
	return nil
}

func printResult(out io.Writer, result *services.IngestionResult) {
	fmt.Fprintln(out, strings.Repeat("=", 80))
	fmt.Fprintln(out, "INGESTION COMPLETE")
	fmt.Fprintln(out, strings.Repeat("=", 80))
	fmt.Fprintf(out, "Total Files:        %d\n", result.TotalFiles)
	fmt.Fprintf(out, "Total Records:      %d\n", result.TotalRecords)
	fmt.Fprintf(out, "Successful Records: %d\n", result.SuccessfulRecords)
	fmt.Fprintf(out, "Failed Records:     %d\n", result.FailedRecords)
	fmt.Fprintf(out, "Duration:           %v\n", result.Duration)
	if secs := result.Duration.Seconds(); secs > 0 {
		fmt.Fprintf(out, "Records/Second:     %.2f\n", float64(result.SuccessfulRecords)/secs)
	}

	if len(result.Errors) > 0 {
		fmt.Fprintf(out, "\nErrors (%d):\n", len(result.Errors))
		for i, errMsg := range result.Errors {
			if i == 10 {
				fmt.Fprintf(out, "  ... and %d more errors\n", len(result.Errors)-10)
				break
			}
			fmt.Fprintf(out, "  - %s\n", errMsg)
		}
	}
}
