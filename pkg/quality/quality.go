// Package quality computes per-dataset quality metrics and records them,
// together with load metadata, in the warehouse audit tables.
package quality

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/ecoflow/ecoflow/internal/model"
)

// Quality and load statuses as stored in the audit tables.
const (
	StatusPass    = "PASS"
	StatusWarning = "WARNING"
	StatusFailed  = "FAILED"
	StatusSuccess = "SUCCESS"
)

// FailureMarker is the table_name written to the quality log when a run
// aborts, so dashboards can tell a failed run from an empty one.
const FailureMarker = "PIPELINE_ERROR"

// Metrics summarizes the quality of one dataset after transformation.
type Metrics struct {
	Table      string
	TotalRows  int
	NullCells  int
	Duplicates int
	Status     string
}

// Record is any typed row that can report its null attribute cells.
type Record interface {
	comparable
	NullCells() int
}

// Analyze computes metrics for one dataset. Duplicates are counted over whole
// rows; a row identical to one already seen counts as one duplicate. Any null
// cells demote the status to WARNING, duplicates alone do not.
func Analyze[T Record](table string, rows []T) Metrics {
	m := Metrics{Table: table, TotalRows: len(rows), Status: StatusPass}

	seen := make(map[T]bool, len(rows))
	for _, r := range rows {
		m.NullCells += r.NullCells()
		if seen[r] {
			m.Duplicates++
			continue
		}
		seen[r] = true
	}

	if m.NullCells > 0 {
		m.Status = StatusWarning
	}
	return m
}

// Logger persists quality metrics and load metadata. Audit writes are
// best-effort from the pipeline's point of view: callers log and continue.
type Logger struct {
	db  *sql.DB
	log *slog.Logger
	now func() time.Time
}

// NewLogger creates an audit logger on the given handle.
func NewLogger(db *sql.DB, log *slog.Logger) *Logger {
	if log == nil {
		log = slog.Default()
	}
	return &Logger{db: db, log: log, now: time.Now}
}

// Record writes one metrics row to data_quality_log.
func (l *Logger) Record(ctx context.Context, m Metrics) error {
	_, err := l.db.ExecContext(ctx,
		"INSERT INTO data_quality_log (table_name, total_rows, null_counts, duplicate_counts, status) VALUES (?, ?, ?, ?, ?)",
		m.Table, m.TotalRows, m.NullCells, m.Duplicates, m.Status)
	if err != nil {
		return fmt.Errorf("failed to record quality metrics for %s: %w", m.Table, err)
	}
	l.log.Info("quality metrics recorded", "table", m.Table,
		"rows", m.TotalRows, "nulls", m.NullCells, "duplicates", m.Duplicates, "status", m.Status)
	return nil
}

// RecordSnapshot analyzes and records every non-empty dataset of a snapshot.
func (l *Logger) RecordSnapshot(ctx context.Context, snap *model.Snapshot) error {
	if len(snap.Sales) > 0 {
		if err := l.Record(ctx, Analyze(model.DatasetSales, snap.Sales)); err != nil {
			return err
		}
	}
	if len(snap.Products) > 0 {
		if err := l.Record(ctx, Analyze(model.DatasetProducts, snap.Products)); err != nil {
			return err
		}
	}
	if len(snap.Customers) > 0 {
		if err := l.Record(ctx, Analyze(model.DatasetCustomers, snap.Customers)); err != nil {
			return err
		}
	}
	return nil
}

// RecordFailure writes the failure marker after a run aborts.
func (l *Logger) RecordFailure(ctx context.Context) error {
	return l.Record(ctx, Metrics{Table: FailureMarker, Status: StatusFailed})
}

// RecordLoad writes one metadata_loads row for the run.
func (l *Logger) RecordLoad(ctx context.Context, rowsLoaded int, status string) error {
	_, err := l.db.ExecContext(ctx,
		"INSERT INTO metadata_loads (load_timestamp, rows_loaded, status) VALUES (?, ?, ?)",
		l.now(), rowsLoaded, status)
	if err != nil {
		return fmt.Errorf("failed to record load metadata: %w", err)
	}
	l.log.Info("load metadata recorded", "rows", rowsLoaded, "status", status)
	return nil
}
