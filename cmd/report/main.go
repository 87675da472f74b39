package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"airquality-platform/internal/config"
	"airquality-platform/internal/report"
	"airquality-platform/internal/services"
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
	var cfgFile string
	v := viper.New()

	cmd := &cobra.Command{
		Use:           "airquality-report",
		Short:         "Run the analysis once and print the report",
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
			return run(cmd.Context(), cfg, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&cfgFile, "config", "", "config file (YAML)")
	cmd.Flags().String("data-source", config.SourceFiles, "where batches are loaded from (files, postgres)")
	cmd.Flags().String("data-dir", "./data", "directory of station CSV files")
	cmd.Flags().String("xlsx", "", "also write the result tables to this workbook")
	cmd.Flags().Int("preview-rows", report.DefaultPreviewRows, "rows shown in the data preview")
	cmd.Flags().String("log-level", "warn", "log level (debug, info, warn, error)")

	_ = v.BindPFlag("data.source", cmd.Flags().Lookup("data-source"))
	_ = v.BindPFlag("data.dir", cmd.Flags().Lookup("data-dir"))
	_ = v.BindPFlag("report.xlsx_path", cmd.Flags().Lookup("xlsx"))
	_ = v.BindPFlag("report.preview_rows", cmd.Flags().Lookup("preview-rows"))
	_ = v.BindPFlag("logging.level", cmd.Flags().Lookup("log-level"))

	return cmd
}

func run(ctx context.Context, cfg *config.Config, out io.Writer) error {
	logLevel, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return err
	}
	logger := logging.NewStructuredLogger("airquality-report", version, logLevel)
	logger.SetOutput(os.Stderr)

	metricsCollector := metrics.NewCollector(cfg.Metrics.Namespace+"_report", prometheus.NewRegistry())

	backend, err := services.OpenBackend(ctx, cfg, logger, metricsCollector)
	if err != nil {
		return err
	}
	defer backend.Close()

	result, err := services.NewAnalysisService(backend.Source, logger, metricsCollector).Run(ctx)
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	if err := report.NewTextWriter(out, cfg.Report.PreviewRows).Write(result); err != nil {
		return err
	}

	if path := cfg.Report.XLSXPath; path != "" {
		if err := report.SaveWorkbook(path, result); err != nil {
			return err
		}
		logger.Info(ctx, "[REPORT_XLSX] Workbook written", logging.Fields{"path": path})
	}
	return nil
}
