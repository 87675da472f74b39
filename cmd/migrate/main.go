package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"airquality-platform/internal/config"
	"airquality-platform/pkg/database"
	"airquality-platform/pkg/logging"
	"airquality-platform/pkg/metrics"
)

const schemaMigration = "001_create_schema"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		cfgFile string
		dir     string
	)
	v := viper.New()

	run := func(direction string) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadWith(v, cfgFile)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			path := filepath.Join(dir, fmt.Sprintf("%s.%s.sql", schemaMigration, direction))
			return migrate(cmd.Context(), cfg, path)
		}
	}

	cmd := &cobra.Command{
		Use:           "airquality-migrate",
		Short:         "Create or drop the observation schema",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML)")
	cmd.PersistentFlags().StringVar(&dir, "dir", "migrations", "directory holding the migration files")
	cmd.PersistentFlags().String("db-host", "localhost", "database host")
	_ = v.BindPFlag("database.host", cmd.PersistentFlags().Lookup("db-host"))

	cmd.AddCommand(
		&cobra.Command{Use: "up", Short: "Apply the schema", Args: cobra.NoArgs, RunE: run("up")},
		&cobra.Command{Use: "down", Short: "Drop the schema", Args: cobra.NoArgs, RunE: run("down")},
	)
	return cmd
}

func migrate(ctx context.Context, cfg *config.Config, path string) error {
	logLevel, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return err
	}
	logger := logging.NewStructuredLogger("airquality-migrate", "1.0.0", logLevel)
	metricsCollector := metrics.NewCollector(cfg.Metrics.Namespace+"_migrate", prometheus.NewRegistry())

	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read migration file: %w", err)
	}

	db, err := database.NewPostgresDB(cfg.Database.Connection(), logger, metricsCollector)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	logger.Info(ctx, "[MIGRATION_START] Running migration", logging.Fields{"file": path})

	if _, err := db.ExecContext(ctx, "migration", string(content)); err != nil {
		return fmt.Errorf("failed to execute migration %s: %w", path, err)
	}

	logger.Info(ctx, "[MIGRATION_COMPLETE] Migration completed successfully", logging.Fields{"file": path})
	return nil
}
