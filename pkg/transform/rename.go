package transform

import (
	"database/sql"
	"strconv"
	"strings"
	"time"

	"github.com/ecoflow/ecoflow/internal/model"
)

// Source-to-canonical column renames. Generators and third-party extracts use
// short names; the warehouse schema uses the long forms.
var (
	productRenames  = map[string]string{"name": "product_name", "carbon_rating": "carbon_footprint_rating"}
	customerRenames = map[string]string{"name": "customer_name"}
)

// column resolves a canonical column to its source position, honoring renames.
// Returns -1 when the input carries neither the canonical nor a renamed form.
func column(t *model.Table, canonical string, renames map[string]string) int {
	if idx := t.Index(canonical); idx >= 0 {
		return idx
	}
	for src, dst := range renames {
		if dst == canonical {
			if idx := t.Index(src); idx >= 0 {
				return idx
			}
		}
	}
	return -1
}

// Products maps a raw products table onto the canonical product schema.
// Canonical columns absent from the input are created null, one warning each.
func (t *Transformer) Products(raw *model.Table) []model.Product {
	cols := t.resolve(raw, productRenames, "products",
		"product_name", "category", "price", "carbon_footprint_rating")

	out := make([]model.Product, 0, raw.Len())
	for _, row := range raw.Rows {
		out = append(out, model.Product{
			Name:         cell(row, cols["product_name"]),
			Category:     nullString(cell(row, cols["category"])),
			Price:        nullFloat(cell(row, cols["price"])),
			CarbonRating: nullInt(cell(row, cols["carbon_footprint_rating"])),
		})
	}
	return out
}

// Customers maps a raw customers table onto the canonical customer schema.
// Invalid join dates become null so they cannot poison SCD comparisons.
func (t *Transformer) Customers(raw *model.Table) []model.Customer {
	cols := t.resolve(raw, customerRenames, "customers",
		"customer_name", "email", "loyalty_level", "join_date")

	out := make([]model.Customer, 0, raw.Len())
	for _, row := range raw.Rows {
		out = append(out, model.Customer{
			Name:         nullString(cell(row, cols["customer_name"])),
			Email:        cell(row, cols["email"]),
			LoyaltyLevel: nullString(cell(row, cols["loyalty_level"])),
			JoinDate:     nullDate(cell(row, cols["join_date"])),
		})
	}
	return out
}

// resolve maps each canonical column to its source index, warning once per
// canonical column the input lacks.
func (t *Transformer) resolve(raw *model.Table, renames map[string]string, kind string, canonical ...string) map[string]int {
	cols := make(map[string]int, len(canonical))
	for _, name := range canonical {
		idx := column(raw, name, renames)
		if idx < 0 {
			t.log.Warn("missing column, filling with nulls", "dataset", kind, "column", name)
		}
		cols[name] = idx
	}
	return cols
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullFloat(s string) sql.NullFloat64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: f, Valid: true}
}

func nullInt(s string) sql.NullInt64 {
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return sql.NullInt64{Int64: int64(f), Valid: true}
	}
	return sql.NullInt64{}
}

// dateFormats covers the layouts seen in batch extracts.
var dateFormats = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05",
	"01/02/2006",
	time.RFC3339,
}

func nullDate(s string) sql.NullTime {
	if s == "" {
		return sql.NullTime{}
	}
	for _, layout := range dateFormats {
		if ts, err := time.Parse(layout, s); err == nil {
			return sql.NullTime{Time: ts, Valid: true}
		}
	}
	return sql.NullTime{}
}
