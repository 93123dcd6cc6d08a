// Package warehouse owns all access to the dimensional warehouse: the DuckDB
// handle, schema DDL, the generic conflict-safe upsert engine, the SCD Type 2
// dimension loader, and the surrogate-key fact loader.
package warehouse

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/marcboeker/go-duckdb"

	"github.com/ecoflow/ecoflow/pkg/config"
)

// Open opens the warehouse database. The handle is scoped to one run: callers
// acquire it at run start and must release it on every exit path.
func Open(cfg config.WarehouseConfig) (*sql.DB, error) {
	db, err := sql.Open("duckdb", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open warehouse: %w", err)
	}

	if cfg.MemoryLimit != "" {
		db.Exec(fmt.Sprintf("SET memory_limit = '%s'", cfg.MemoryLimit))
	}
	if cfg.Threads > 0 {
		db.Exec(fmt.Sprintf("SET threads = %d", cfg.Threads))
	}
	return db, nil
}

// Schema is the warehouse DDL. Surrogate-key sequences start at 2; id 1 is
// reserved for the sentinel "unknown" member of each dimension.
const Schema = `
CREATE SEQUENCE IF NOT EXISTS seq_product_id START 2;
CREATE SEQUENCE IF NOT EXISTS seq_customer_id START 2;
CREATE SEQUENCE IF NOT EXISTS seq_date_id START 2;
CREATE SEQUENCE IF NOT EXISTS seq_location_id START 2;

CREATE TABLE IF NOT EXISTS dim_product (
    product_id              INTEGER PRIMARY KEY DEFAULT nextval('seq_product_id'),
    product_name            VARCHAR NOT NULL,
    category                VARCHAR,
    price                   DOUBLE,
    carbon_footprint_rating INTEGER,
    effective_start         TIMESTAMP,
    effective_end           TIMESTAMP,
    is_current              BOOLEAN
);

CREATE TABLE IF NOT EXISTS dim_customer (
    customer_id     INTEGER PRIMARY KEY DEFAULT nextval('seq_customer_id'),
    customer_name   VARCHAR,
    email           VARCHAR NOT NULL,
    loyalty_level   VARCHAR,
    join_date       DATE,
    effective_start TIMESTAMP,
    effective_end   TIMESTAMP,
    is_current      BOOLEAN
);

CREATE TABLE IF NOT EXISTS dim_date (
    date_id      INTEGER PRIMARY KEY DEFAULT nextval('seq_date_id'),
    date         DATE UNIQUE,
    year         INTEGER,
    quarter      INTEGER,
    month        INTEGER,
    day          INTEGER,
    weekday      VARCHAR,
    holiday_flag BOOLEAN,
    holiday_name VARCHAR
);

CREATE TABLE IF NOT EXISTS dim_location (
    location_id INTEGER PRIMARY KEY DEFAULT nextval('seq_location_id'),
    city        VARCHAR UNIQUE,
    country     VARCHAR,
    region      VARCHAR
);

CREATE TABLE IF NOT EXISTS fact_sales (
    sale_id        VARCHAR PRIMARY KEY,
    date_id        INTEGER,
    product_id     INTEGER,
    customer_id    INTEGER,
    location_id    INTEGER,
    quantity_sold  INTEGER,
    revenue        DOUBLE,
    carbon_savings DOUBLE,
    sale_timestamp TIMESTAMP
);

CREATE TABLE IF NOT EXISTS metadata_loads (
    load_timestamp TIMESTAMP,
    rows_loaded    INTEGER,
    status         VARCHAR
);

CREATE TABLE IF NOT EXISTS data_quality_log (
    logged_at        TIMESTAMP DEFAULT current_timestamp,
    table_name       VARCHAR,
    total_rows       INTEGER,
    null_counts      INTEGER,
    duplicate_counts INTEGER,
    status           VARCHAR
);

CREATE OR REPLACE VIEW v_pipeline_health AS
SELECT
    m.load_timestamp,
    m.rows_loaded,
    m.status,
    (SELECT count(*) FROM fact_sales)                              AS fact_rows,
    (SELECT count(*) FROM dim_product WHERE is_current)            AS current_products,
    (SELECT count(*) FROM dim_customer WHERE is_current)           AS current_customers,
    (SELECT count(*) FROM data_quality_log WHERE status <> 'PASS') AS quality_flags
FROM metadata_loads m
ORDER BY m.load_timestamp DESC;
`

// Init creates the warehouse tables, sequences and the health view consumed
// by the monitoring dashboard. Idempotent.
func Init(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("failed to initialize warehouse schema: %w", err)
	}
	return nil
}
