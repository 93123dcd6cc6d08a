// EcoFlow - Eco-commerce dimensional warehouse ETL
// Extracts staged sales data, applies SCD Type 2 dimension loading, and
// maintains a DuckDB star schema with quality auditing.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ecoflow/ecoflow/pkg/config"
	"github.com/ecoflow/ecoflow/pkg/generate"
	"github.com/ecoflow/ecoflow/pkg/pipeline"
	"github.com/ecoflow/ecoflow/pkg/warehouse"
	"github.com/ecoflow/ecoflow/pkg/watch"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

// CLI flags
var (
	configPath   string
	stagingDir   string
	streamingDir string
	dbPath       string
	verbose      bool

	// bootstrap flags
	fromDate string
	toDate   string

	// generate flags
	genDate string
	genSeed int64
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "ecoflow",
	Short: "EcoFlow - eco-commerce warehouse ETL",
	Long: `EcoFlow ingests staged sales, product and customer files, cleans and
enriches them, and loads a DuckDB dimensional warehouse with SCD Type 2
history and full quality auditing.`,
	Version: fmt.Sprintf("%s (%s)", version, commit),
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute one pipeline run over the staging directory",
	Long: `Run the full pipeline once: extract every staged file, merge streaming
price updates, transform, and load dimensions and facts.

Examples:
  ecoflow run
  ecoflow run --staging ./staging --db eco_warehouse.db
  ecoflow run --config ecoflow.yaml --verbose`,
	RunE: runOnce,
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the staging directories and run on new files",
	Long: `Watch the batch and streaming staging directories and trigger a pipeline
run whenever file activity settles. Runs until interrupted.`,
	RunE: runWatch,
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the warehouse schema",
	Long:  `Create the warehouse tables, sequences and health view. Idempotent.`,
	RunE:  runInit,
}

var bootstrapCmd = &cobra.Command{
	Use:   "bootstrap",
	Short: "Seed the calendar and location dimensions",
	Long: `Populate static reference data: sentinel dimension members, the calendar
dimension with South African public holidays, and the seed cities.

Examples:
  ecoflow bootstrap
  ecoflow bootstrap --from 2023-01-01 --to 2027-12-31`,
	RunE: runBootstrap,
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate sample staging data",
	Long: `Write one day of realistic sample staging files, quality issues included,
into the staging directories.

Examples:
  ecoflow generate
  ecoflow generate --date 2026-08-01 --seed 42`,
	RunE: runGenerate,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "ecoflow.yaml", "Config file path")
	rootCmd.PersistentFlags().StringVar(&stagingDir, "staging", "", "Staging directory (overrides config)")
	rootCmd.PersistentFlags().StringVar(&streamingDir, "streaming", "", "Streaming updates directory (overrides config)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Warehouse database path (overrides config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	bootstrapCmd.Flags().StringVar(&fromDate, "from", "2023-01-01", "Calendar start date (YYYY-MM-DD)")
	bootstrapCmd.Flags().StringVar(&toDate, "to", "2027-12-31", "Calendar end date (YYYY-MM-DD)")

	generateCmd.Flags().StringVar(&genDate, "date", "", "Business date (YYYY-MM-DD, default today)")
	generateCmd.Flags().Int64Var(&genSeed, "seed", time.Now().UnixNano(), "Random seed")

	rootCmd.AddCommand(runCmd, watchCmd, initCmd, bootstrapCmd, generateCmd)
}

// setup loads configuration, applies flag overrides and builds the logger.
func setup() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	if stagingDir != "" {
		cfg.Staging.Dir = stagingDir
	}
	if streamingDir != "" {
		cfg.Staging.StreamingDir = streamingDir
	}
	if dbPath != "" {
		cfg.Warehouse.Path = dbPath
	}

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(log)
	return cfg, log, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runOnce(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	ctx, stop := signalContext()
	defer stop()

	return pipeline.NewRunner(cfg, log).Run(ctx)
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	ctx, stop := signalContext()
	defer stop()

	w, err := watch.NewWatcher(log)
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Watch(cfg.Staging.Dir); err != nil {
		return err
	}
	if err := w.Watch(cfg.Staging.StreamingDir); err != nil {
		return err
	}

	runner := pipeline.NewRunner(cfg, log)
	w.OnBatch = runner.Run

	log.Info("watching for staging activity, ctrl-c to stop")
	if err := w.Run(ctx); err != nil && err != context.Canceled {
		return err
	}
	return nil
}

func runInit(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	ctx, stop := signalContext()
	defer stop()

	db, err := warehouse.Open(cfg.Warehouse)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := warehouse.Init(ctx, db); err != nil {
		return err
	}
	log.Info("warehouse schema created", "path", cfg.Warehouse.Path)
	return nil
}

func runBootstrap(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	ctx, stop := signalContext()
	defer stop()

	from, err := time.Parse("2006-01-02", fromDate)
	if err != nil {
		return fmt.Errorf("invalid --from date: %w", err)
	}
	to, err := time.Parse("2006-01-02", toDate)
	if err != nil {
		return fmt.Errorf("invalid --to date: %w", err)
	}
	if to.Before(from) {
		return fmt.Errorf("--to %s is before --from %s", toDate, fromDate)
	}

	db, err := warehouse.Open(cfg.Warehouse)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := warehouse.Init(ctx, db); err != nil {
		return err
	}
	return warehouse.NewBootstrap(db, log).Run(ctx, from, to)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}

	date := time.Now()
	if genDate != "" {
		date, err = time.Parse("2006-01-02", genDate)
		if err != nil {
			return fmt.Errorf("invalid --date: %w", err)
		}
	}

	return generate.NewGenerator(log, genSeed).Run(cfg.Staging.Dir, cfg.Staging.StreamingDir, date)
}
