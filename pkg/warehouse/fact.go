package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/ecoflow/ecoflow/internal/model"
)

// factColumns is the fixed projection of fact_sales. Nothing outside this
// whitelist reaches the table.
var factColumns = []string{
	"sale_id", "date_id", "product_id", "customer_id", "location_id",
	"quantity_sold", "revenue", "carbon_savings", "sale_timestamp",
}

// FactLoader resolves natural keys in cleaned sales to dimension surrogate
// keys and upserts the fact table on sale_id.
type FactLoader struct {
	db       *sql.DB
	engine   *Engine
	log      *slog.Logger
	sentinel int64
}

// NewFactLoader creates a fact loader. Unresolved references map to the
// sentinel surrogate id rather than dropping the sale.
func NewFactLoader(db *sql.DB, log *slog.Logger, sentinel int64) *FactLoader {
	if log == nil {
		log = slog.Default()
	}
	return &FactLoader{db: db, engine: NewEngine(db, log), log: log, sentinel: sentinel}
}

// Load maps foreign keys for every sale and upserts the batch. Returns the
// number of fact rows written.
func (l *FactLoader) Load(ctx context.Context, sales []model.Sale) (int, error) {
	if len(sales) == 0 {
		l.log.Info("no fact rows to load")
		return 0, nil
	}

	dates, err := l.lookup(ctx, "SELECT date, date_id FROM dim_date")
	if err != nil {
		return 0, err
	}
	products, err := l.lookup(ctx, "SELECT product_name, product_id FROM dim_product WHERE is_current = TRUE")
	if err != nil {
		return 0, err
	}
	customers, err := l.lookup(ctx, "SELECT email, customer_id FROM dim_customer WHERE is_current = TRUE")
	if err != nil {
		return 0, err
	}
	locations, err := l.lookup(ctx, "SELECT city, location_id FROM dim_location")
	if err != nil {
		return 0, err
	}

	unresolved := 0
	rows := make([][]any, 0, len(sales))
	for _, s := range sales {
		dateID, okD := dates[normDate(s.Date)]
		productID, okP := products[model.NormKey(s.ProductName)]
		customerID, okC := customers[model.NormKey(s.CustomerEmail)]
		locationID, okL := locations[model.NormKey(s.City)]
		if !okD {
			dateID = l.sentinel
		}
		if !okP {
			productID = l.sentinel
		}
		if !okC {
			customerID = l.sentinel
		}
		if !okL {
			locationID = l.sentinel
		}
		if !okD || !okP || !okC || !okL {
			unresolved++
		}

		rows = append(rows, []any{
			s.SaleID, dateID, productID, customerID, locationID,
			int64(math.Round(s.Quantity)), measure(s.Revenue), measure(s.CarbonSavings),
			nullTimestamp(s.SaleTimestamp),
		})
	}
	if unresolved > 0 {
		l.log.Warn("sales with unresolved references mapped to sentinel id",
			"rows", unresolved, "sentinel", l.sentinel)
	}

	n, err := l.engine.Upsert(ctx, "fact_sales", factColumns, rows, []string{"sale_id"})
	if err != nil {
		return 0, err
	}
	l.log.Info("fact table loaded", "rows", n)
	return n, nil
}

// lookup builds a normalized key → surrogate id map from a two-column query.
func (l *FactLoader) lookup(ctx context.Context, query string) (map[string]int64, error) {
	rows, err := l.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("dimension lookup failed: %w", err)
	}
	defer rows.Close()

	m := make(map[string]int64)
	for rows.Next() {
		var key any
		var id int64
		if err := rows.Scan(&key, &id); err != nil {
			return nil, fmt.Errorf("dimension lookup scan failed: %w", err)
		}
		m[model.NormKey(lookupKey(key))] = id
	}
	return m, rows.Err()
}

// lookupKey renders a scanned dimension key for matching. Dates collapse to
// ISO day precision to match normDate.
func lookupKey(v any) string {
	switch x := v.(type) {
	case time.Time:
		return x.Format("2006-01-02")
	case []byte:
		return string(x)
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}

// normDate normalizes a raw sale date to ISO day precision; unparseable
// values pass through and resolve to the sentinel.
func normDate(s string) string {
	for _, layout := range []string{"2006-01-02", "2006-01-02 15:04:05", time.RFC3339, "01/02/2006"} {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.Format("2006-01-02")
		}
	}
	return model.NormKey(s)
}

// measure defaults a missing or non-finite measure to 0.00.
func measure(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// nullTimestamp binds an empty timestamp as NULL.
func nullTimestamp(s string) any {
	if s == "" {
		return nil
	}
	return s
}
