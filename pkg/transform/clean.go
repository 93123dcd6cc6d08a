package transform

import (
	"strconv"
	"strings"

	"github.com/ecoflow/ecoflow/internal/model"
)

// CleanSales drops rows with missing sale id, product name or quantity,
// deduplicates by sale id keeping the first occurrence, coerces quantity and
// price to numbers (stripping currency symbols from price), and drops rows
// where either is not strictly positive.
func (t *Transformer) CleanSales(raw *model.Table) []model.Sale {
	out := make([]model.Sale, 0, raw.Len())
	seen := make(map[string]bool, raw.Len())

	dropped := 0
	for _, row := range raw.Rows {
		saleID := strings.TrimSpace(raw.Cell(row, "sale_id"))
		product := strings.TrimSpace(raw.Cell(row, "product_name"))
		qtyRaw := strings.TrimSpace(raw.Cell(row, "quantity"))

		if saleID == "" || product == "" || qtyRaw == "" {
			dropped++
			continue
		}
		if seen[saleID] {
			dropped++
			continue
		}
		// Dedupe keeps the first occurrence even when it then fails the
		// positivity filter, so its duplicates never resurface.
		seen[saleID] = true

		qty, err := strconv.ParseFloat(qtyRaw, 64)
		if err != nil || qty <= 0 {
			dropped++
			continue
		}
		price, err := strconv.ParseFloat(stripNonNumeric(raw.Cell(row, "price")), 64)
		if err != nil || price <= 0 {
			dropped++
			continue
		}

		out = append(out, model.Sale{
			SaleID:        saleID,
			Date:          strings.TrimSpace(raw.Cell(row, "date")),
			SaleTimestamp: strings.TrimSpace(raw.Cell(row, "sale_timestamp")),
			ProductName:   product,
			Quantity:      qty,
			Price:         price,
			CustomerEmail: strings.TrimSpace(raw.Cell(row, "customer_email")),
			City:          strings.TrimSpace(raw.Cell(row, "city")),
		})
	}

	t.log.Info("cleaned sales", "remaining", len(out), "dropped", dropped)
	return out
}

// stripNonNumeric removes everything except digits, the decimal point and a
// leading minus sign, so currency-prefixed prices like "R 180.00" coerce.
func stripNonNumeric(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= '0' && r <= '9' || r == '.' || (r == '-' && i == 0) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
