package warehouse

import (
	"context"
	"database/sql"
	"log/slog"
	"time"
)

// seedCities are the initial dim_location members; the sample data covers
// South African cities.
var seedCities = [][]any{
	{"Johannesburg", "South Africa", "Gauteng"},
	{"Cape Town", "South Africa", "Western Cape"},
	{"Durban", "South Africa", "KwaZulu-Natal"},
	{"Pretoria", "South Africa", "Gauteng"},
	{"Bloemfontein", "South Africa", "Free State"},
	{"Gqeberha", "South Africa", "Eastern Cape"},
	{"East London", "South Africa", "Eastern Cape"},
}

// Bootstrap seeds the static reference tables: sentinel members (surrogate id
// 1) for every dimension, the calendar dimension over [from, to], and the
// seed cities. Idempotent: everything goes through keyed upserts.
type Bootstrap struct {
	engine *Engine
	log    *slog.Logger
}

// NewBootstrap creates a bootstrap runner on the given handle.
func NewBootstrap(db *sql.DB, log *slog.Logger) *Bootstrap {
	if log == nil {
		log = slog.Default()
	}
	return &Bootstrap{engine: NewEngine(db, log), log: log}
}

// Run populates sentinel rows, dim_date and dim_location.
func (b *Bootstrap) Run(ctx context.Context, from, to time.Time) error {
	if err := b.seedSentinels(ctx); err != nil {
		return err
	}
	if err := b.seedDates(ctx, from, to); err != nil {
		return err
	}
	if err := b.seedLocations(ctx); err != nil {
		return err
	}
	b.log.Info("warehouse bootstrap complete", "from", from.Format("2006-01-02"), "to", to.Format("2006-01-02"))
	return nil
}

// seedSentinels reserves surrogate id 1 as the "unknown" member of each
// dimension, so unresolved fact references stay joinable.
func (b *Bootstrap) seedSentinels(ctx context.Context) error {
	if _, err := b.engine.Upsert(ctx, "dim_product",
		[]string{"product_id", "product_name", "effective_start", "effective_end", "is_current"},
		[][]any{{1, "unknown", time.Unix(0, 0).UTC(), Forever, false}},
		[]string{"product_id"}); err != nil {
		return err
	}
	if _, err := b.engine.Upsert(ctx, "dim_customer",
		[]string{"customer_id", "email", "effective_start", "effective_end", "is_current"},
		[][]any{{1, "unknown", time.Unix(0, 0).UTC(), Forever, false}},
		[]string{"customer_id"}); err != nil {
		return err
	}
	if _, err := b.engine.Upsert(ctx, "dim_date",
		[]string{"date_id", "date", "year", "quarter", "month", "day", "weekday"},
		[][]any{{1, "1900-01-01", 1900, 1, 1, 1, "Monday"}},
		[]string{"date_id"}); err != nil {
		return err
	}
	_, err := b.engine.Upsert(ctx, "dim_location",
		[]string{"location_id", "city", "country", "region"},
		[][]any{{1, "unknown", "unknown", "unknown"}},
		[]string{"location_id"})
	return err
}

// seedDates fills the calendar dimension one day at a time, with the South
// African public-holiday flag and name.
func (b *Bootstrap) seedDates(ctx context.Context, from, to time.Time) error {
	columns := []string{"date", "year", "quarter", "month", "day", "weekday", "holiday_flag", "holiday_name"}

	var rows [][]any
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		name, isHoliday := zaHoliday(d)
		rows = append(rows, []any{
			d.Format("2006-01-02"),
			d.Year(),
			(int(d.Month())-1)/3 + 1,
			int(d.Month()),
			d.Day(),
			d.Weekday().String(),
			isHoliday,
			nullName(name),
		})
	}

	n, err := b.engine.Upsert(ctx, "dim_date", columns, rows, []string{"date"})
	if err != nil {
		return err
	}
	b.log.Info("dim_date populated", "rows", n)
	return nil
}

func (b *Bootstrap) seedLocations(ctx context.Context) error {
	n, err := b.engine.Upsert(ctx, "dim_location",
		[]string{"city", "country", "region"}, seedCities, []string{"city"})
	if err != nil {
		return err
	}
	b.log.Info("dim_location populated", "rows", n)
	return nil
}

func nullName(s string) any {
	if s == "" {
		return nil
	}
	return s
}
