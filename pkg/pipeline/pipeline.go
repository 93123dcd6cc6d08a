// Package pipeline orchestrates one end-to-end run: extract, transform,
// dimension and fact loading, and audit logging.
package pipeline

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/ecoflow/ecoflow/pkg/config"
	"github.com/ecoflow/ecoflow/pkg/extract"
	"github.com/ecoflow/ecoflow/pkg/quality"
	"github.com/ecoflow/ecoflow/pkg/transform"
	"github.com/ecoflow/ecoflow/pkg/warehouse"
)

// Runner executes pipeline runs against a configured warehouse.
type Runner struct {
	cfg      *config.Config
	log      *slog.Logger
	openDB   func() (*sql.DB, error)
	detector transform.Detector
}

// NewRunner creates a runner. The warehouse handle is opened per run and
// closed before Run returns.
func NewRunner(cfg *config.Config, log *slog.Logger) *Runner {
	if log == nil {
		log = slog.Default()
	}
	return &Runner{
		cfg:    cfg,
		log:    log,
		openDB: func() (*sql.DB, error) { return warehouse.Open(cfg.Warehouse) },
	}
}

// SetOpenDB overrides how the warehouse handle is acquired. Used in tests.
func (r *Runner) SetOpenDB(open func() (*sql.DB, error)) {
	if open != nil {
		r.openDB = open
	}
}

// SetDetector overrides the outlier detector for subsequent runs.
func (r *Runner) SetDetector(d transform.Detector) {
	r.detector = d
}

// Run executes one full pipeline run. Any stage error aborts the run; a
// best-effort failure record is written before returning so the audit trail
// never shows a silent gap.
func (r *Runner) Run(ctx context.Context) error {
	runID := uuid.NewString()
	log := r.log.With("run_id", runID)
	log.Info("pipeline run starting", "staging", r.cfg.Staging.Dir)

	db, err := r.openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	if err := warehouse.Init(ctx, db); err != nil {
		return r.fail(ctx, db, log, err)
	}

	ex, err := extract.NewExtractor(log).ExtractAll(ctx, r.cfg.Staging.Dir, r.cfg.Staging.StreamingDir)
	if err != nil {
		return r.fail(ctx, db, log, err)
	}
	if ex.Empty() {
		if len(ex.Updates) == 0 {
			log.Warn("no data found in staging, nothing to do")
			return nil
		}
		// Streaming-only run: promote the updates to a products batch so
		// price changes still flow into the dimension.
		log.Info("streaming-only run, loading price updates as products",
			"updates", len(ex.Updates))
		ex.Products = extract.UpdatesAsProducts(ex.Updates)
	}

	tr := transform.NewTransformer(r.cfg.Transform, log)
	if r.detector != nil {
		tr.SetDetector(r.detector)
	}
	snap := tr.Apply(ex)

	audit := quality.NewLogger(db, log)
	if err := audit.RecordSnapshot(ctx, snap); err != nil {
		log.Error("failed to record quality metrics, continuing", "error", err)
	}

	scd := warehouse.NewSCDLoader(db, log)
	if _, err := scd.Load(ctx, warehouse.ProductDimension, warehouse.ProductRows(snap.Products)); err != nil {
		return r.fail(ctx, db, log, fmt.Errorf("product dimension load failed: %w", err))
	}
	if _, err := scd.Load(ctx, warehouse.CustomerDimension, warehouse.CustomerRows(snap.Customers)); err != nil {
		return r.fail(ctx, db, log, fmt.Errorf("customer dimension load failed: %w", err))
	}

	facts := warehouse.NewFactLoader(db, log, r.cfg.Load.SentinelID)
	loaded, err := facts.Load(ctx, snap.Sales)
	if err != nil {
		return r.fail(ctx, db, log, fmt.Errorf("fact load failed: %w", err))
	}

	if err := audit.RecordLoad(ctx, loaded, quality.StatusSuccess); err != nil {
		log.Error("failed to record load metadata", "error", err)
	}
	log.Info("pipeline run complete", "facts_loaded", loaded)
	return nil
}

// fail records the failure in the audit tables before surfacing the error.
// Audit write failures are logged, never allowed to mask the original error.
func (r *Runner) fail(ctx context.Context, db *sql.DB, log *slog.Logger, err error) error {
	log.Error("pipeline run failed", "error", err)

	audit := quality.NewLogger(db, log)
	if aerr := audit.RecordFailure(ctx); aerr != nil {
		log.Error("failed to record failure marker", "error", aerr)
	}
	if aerr := audit.RecordLoad(ctx, 0, quality.StatusFailed); aerr != nil {
		log.Error("failed to record failed load metadata", "error", aerr)
	}
	return err
}
