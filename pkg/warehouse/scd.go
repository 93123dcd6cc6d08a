package warehouse

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/ecoflow/ecoflow/internal/model"
)

// Forever is the open effective_end of a current dimension row. DuckDB casts
// the string to its special infinity timestamp, mirroring the warehouse
// convention the dashboards expect.
const Forever = "infinity"

// Dimension describes one SCD Type 2 dimension table: its business-key column
// and the attribute columns whose changes open a new version.
type Dimension struct {
	Table   string
	Key     string
	Tracked []string
}

// The two history-preserving dimensions of the warehouse.
var (
	ProductDimension = Dimension{
		Table:   "dim_product",
		Key:     "product_name",
		Tracked: []string{"category", "price", "carbon_footprint_rating"},
	}
	CustomerDimension = Dimension{
		Table:   "dim_customer",
		Key:     "email",
		Tracked: []string{"customer_name", "loyalty_level", "join_date"},
	}
)

// Row is one incoming dimension row: the business key plus tracked attribute
// values aligned with Dimension.Tracked.
type Row struct {
	Key   string
	Attrs []any
}

// Result summarizes one dimension load.
type Result struct {
	Inserted int // new business keys
	Updated  int // changed keys: expired + re-inserted
	Skipped  int // active keys with no tracked change
	Dropped  int // invalid or duplicate business keys
}

// SCDLoader applies SCD Type 2 semantics per business key.
type SCDLoader struct {
	db     *sql.DB
	engine *Engine
	log    *slog.Logger
	now    func() time.Time
}

// NewSCDLoader creates a dimension loader on the given handle.
func NewSCDLoader(db *sql.DB, log *slog.Logger) *SCDLoader {
	if log == nil {
		log = slog.Default()
	}
	return &SCDLoader{db: db, engine: NewEngine(db, log), log: log, now: time.Now}
}

// Load applies one incoming batch to a dimension. New keys are inserted as
// current, changed keys are expired and re-inserted atomically, unchanged
// keys are left untouched. At most one version per key is current afterward.
func (l *SCDLoader) Load(ctx context.Context, dim Dimension, incoming []Row) (*Result, error) {
	if dim.Key == "" {
		return nil, fmt.Errorf("dimension %s: business key column not set", dim.Table)
	}
	res := &Result{}
	if len(incoming) == 0 {
		l.log.Info("no incoming rows for dimension", "table", dim.Table)
		return res, nil
	}

	// Drop unusable business keys, then deduplicate by normalized key,
	// keeping the first occurrence.
	valid := make([]Row, 0, len(incoming))
	seen := make(map[string]bool, len(incoming))
	for _, r := range incoming {
		if model.InvalidKey(r.Key) || seen[model.NormKey(r.Key)] {
			res.Dropped++
			continue
		}
		seen[model.NormKey(r.Key)] = true
		valid = append(valid, r)
	}
	if res.Dropped > 0 {
		l.log.Warn("dropped rows with invalid or duplicate business keys",
			"table", dim.Table, "dropped", res.Dropped)
	}
	if len(valid) == 0 {
		return res, nil
	}

	active, err := l.loadActive(ctx, dim)
	if err != nil {
		return res, err
	}

	var fresh, changed []Row
	for _, r := range valid {
		current, ok := active[model.NormKey(r.Key)]
		switch {
		case !ok:
			fresh = append(fresh, r)
		case attrsDiffer(r.Attrs, current):
			changed = append(changed, r)
		default:
			res.Skipped++
		}
	}

	if len(fresh) > 0 {
		if err := l.insertFresh(ctx, dim, fresh); err != nil {
			return res, err
		}
		res.Inserted = len(fresh)
	}

	for _, r := range changed {
		if err := l.applyChange(ctx, dim, r); err != nil {
			if isDuplicateKey(err) {
				l.log.Warn("duplicate insert race on changed key, skipping",
					"table", dim.Table, "key", r.Key)
				continue
			}
			return res, err
		}
		res.Updated++
	}

	l.log.Info("dimension load complete", "table", dim.Table,
		"new", res.Inserted, "changed", res.Updated, "unchanged", res.Skipped)
	return res, nil
}

// loadActive reads all currently-active rows, keyed by normalized business
// key, with tracked attribute values aligned to Dimension.Tracked.
func (l *SCDLoader) loadActive(ctx context.Context, dim Dimension) (map[string][]any, error) {
	cols := append([]string{dim.Key}, dim.Tracked...)
	query := fmt.Sprintf("SELECT %s FROM %s WHERE is_current = TRUE",
		strings.Join(cols, ", "), dim.Table)

	rows, err := l.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to load active %s rows: %w", dim.Table, err)
	}
	defer rows.Close()

	active := make(map[string][]any)
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan active %s row: %w", dim.Table, err)
		}
		active[model.NormKey(canonical(values[0]))] = values[1:]
	}
	return active, rows.Err()
}

// insertFresh inserts first-sighting keys as current versions. It goes through
// the upsert engine keyed on the business key; the dimension carries no unique
// constraint on that column alone (history needs several rows per key), so the
// engine's plain-insert fallback is the expected path.
func (l *SCDLoader) insertFresh(ctx context.Context, dim Dimension, fresh []Row) error {
	now := l.now()
	columns := append(append([]string{dim.Key}, dim.Tracked...),
		"effective_start", "effective_end", "is_current")

	rows := make([][]any, 0, len(fresh))
	for _, r := range fresh {
		row := append(append([]any{r.Key}, r.Attrs...), now, Forever, true)
		rows = append(rows, row)
	}

	_, err := l.engine.Upsert(ctx, dim.Table, columns, rows, []string{dim.Key})
	return err
}

// applyChange expires the active version and inserts the incoming one as
// current, in a single transaction per business key. A crash between the two
// statements must not leave the key with zero current rows.
func (l *SCDLoader) applyChange(ctx context.Context, dim Dimension, r Row) error {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin scd transaction: %w", err)
	}

	now := l.now()
	expire := fmt.Sprintf(
		"UPDATE %s SET is_current = FALSE, effective_end = ? WHERE lower(trim(%s)) = ? AND is_current = TRUE",
		dim.Table, dim.Key)
	if _, err := tx.ExecContext(ctx, expire, now, model.NormKey(r.Key)); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to expire %s key %q: %w", dim.Table, r.Key, err)
	}

	columns := append(append([]string{dim.Key}, dim.Tracked...),
		"effective_start", "effective_end", "is_current")
	insert := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		dim.Table, strings.Join(columns, ", "),
		strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", "))

	args := append(append([]any{r.Key}, r.Attrs...), now, Forever, true)
	if _, err := tx.ExecContext(ctx, insert, args...); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to insert new version for %s key %q: %w", dim.Table, r.Key, err)
	}
	return tx.Commit()
}

// attrsDiffer compares tracked attributes by canonical string value, so a
// DOUBLE read back from the warehouse still matches the float it was written
// from.
func attrsDiffer(incoming, current []any) bool {
	if len(incoming) != len(current) {
		return true
	}
	for i := range incoming {
		if canonical(incoming[i]) != canonical(current[i]) {
			return true
		}
	}
	return false
}

// canonical renders any scanned or bound value as a comparable string.
func canonical(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(x)
	case []byte:
		return strings.TrimSpace(string(x))
	case bool:
		return strconv.FormatBool(x)
	case int:
		return strconv.Itoa(x)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case int64:
		return strconv.FormatInt(x, 10)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case time.Time:
		return x.UTC().Format("2006-01-02 15:04:05")
	case driver.Valuer:
		val, err := x.Value()
		if err != nil {
			return fmt.Sprint(x)
		}
		return canonical(val)
	default:
		return fmt.Sprint(x)
	}
}

// ProductRows converts typed products into SCD input rows.
func ProductRows(products []model.Product) []Row {
	rows := make([]Row, 0, len(products))
	for _, p := range products {
		rows = append(rows, Row{
			Key:   p.Name,
			Attrs: []any{p.Category, p.Price, p.CarbonRating},
		})
	}
	return rows
}

// CustomerRows converts typed customers into SCD input rows.
func CustomerRows(customers []model.Customer) []Row {
	rows := make([]Row, 0, len(customers))
	for _, c := range customers {
		rows = append(rows, Row{
			Key:   c.Email,
			Attrs: []any{c.Name, c.LoyaltyLevel, c.JoinDate},
		})
	}
	return rows
}
