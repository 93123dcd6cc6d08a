package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
)

// Engine performs conflict-safe bulk upserts. It is the single write path the
// dimension and fact loaders share.
type Engine struct {
	db  *sql.DB
	log *slog.Logger
}

// NewEngine creates an upsert engine on the given handle.
func NewEngine(db *sql.DB, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{db: db, log: log}
}

// Upsert bulk-inserts rows with an update-on-conflict clause keyed on
// keyColumns. When the target lacks the expected uniqueness constraint it
// falls back to a plain bulk insert, logged, trading duplicate risk for
// availability. Each attempt is all-or-nothing: a failure rolls back the
// whole batch.
func (e *Engine) Upsert(ctx context.Context, table string, columns []string, rows [][]any, keyColumns []string) (int, error) {
	if len(rows) == 0 {
		e.log.Info("no rows to upsert", "table", table)
		return 0, nil
	}

	args := make([]any, 0, len(rows)*len(columns))
	for _, row := range rows {
		if len(row) != len(columns) {
			return 0, fmt.Errorf("upsert into %s: row has %d values, want %d", table, len(row), len(columns))
		}
		args = append(args, row...)
	}

	err := e.execBatch(ctx, buildInsert(table, columns, len(rows), keyColumns), args)
	if err == nil {
		e.log.Info("upserted rows", "table", table, "rows", len(rows))
		return len(rows), nil
	}
	if !isMissingConstraint(err) {
		return 0, fmt.Errorf("upsert into %s failed: %w", table, err)
	}

	e.log.Warn("no unique constraint for upsert, falling back to plain insert",
		"table", table, "keys", keyColumns)
	if err := e.execBatch(ctx, buildInsert(table, columns, len(rows), nil), args); err != nil {
		return 0, fmt.Errorf("fallback insert into %s failed: %w", table, err)
	}
	e.log.Info("inserted rows without conflict handling", "table", table, "rows", len(rows))
	return len(rows), nil
}

// execBatch runs one statement in its own transaction.
func (e *Engine) execBatch(ctx context.Context, query string, args []any) error {
	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// buildInsert renders a multi-row INSERT, with an ON CONFLICT clause when key
// columns are given.
func buildInsert(table string, columns []string, rowCount int, keyColumns []string) string {
	placeholder := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ") + ")"
	values := strings.TrimSuffix(strings.Repeat(placeholder+", ", rowCount), ", ")

	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES %s",
		table, strings.Join(columns, ", "), values)

	if len(keyColumns) > 0 {
		keys := make(map[string]bool, len(keyColumns))
		for _, k := range keyColumns {
			keys[k] = true
		}
		var updates []string
		for _, c := range columns {
			if !keys[c] {
				updates = append(updates, fmt.Sprintf("%s = EXCLUDED.%s", c, c))
			}
		}
		if len(updates) == 0 {
			fmt.Fprintf(&b, " ON CONFLICT (%s) DO NOTHING", strings.Join(keyColumns, ", "))
		} else {
			fmt.Fprintf(&b, " ON CONFLICT (%s) DO UPDATE SET %s",
				strings.Join(keyColumns, ", "), strings.Join(updates, ", "))
		}
	}
	return b.String()
}

// isMissingConstraint matches the binder error raised when the conflict
// target has no backing unique or primary key constraint.
func isMissingConstraint(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "conflict target") ||
		strings.Contains(msg, "no unique or primary key")
}

// isDuplicateKey matches a unique-constraint violation, e.g. two runs racing
// to insert the same new dimension key.
func isDuplicateKey(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") ||
		(strings.Contains(msg, "unique") && strings.Contains(msg, "violat"))
}
