// Package generate produces realistic sample staging data, quality issues
// included, for demos and end-to-end testing.
package generate

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/ecoflow/ecoflow/internal/model"
)

type catalogProduct struct {
	Name         string  `json:"name"`
	Category     string  `json:"category"`
	Price        float64 `json:"price"`
	CarbonRating int     `json:"carbon_rating"`
}

var catalog = []catalogProduct{
	{"Portable Solar Charger 20W", "Solar", 899.00, 2},
	{"Bamboo Toothbrush Set (4-pack)", "Personal Care", 120.00, 1},
	{"Reusable Beeswax Food Wraps", "Kitchen", 250.00, 1},
	{"Eco-Friendly Laundry Detergent", "Cleaning", 180.00, 3},
	{"Stainless Steel Straw Set", "Kitchen", 89.00, 1},
	{"Recycled Cotton Tote Bag", "Accessories", 150.00, 2},
	{"Solar Garden Lights (6-pack)", "Outdoor", 450.00, 3},
}

// The empty city stands in for missing location data.
var cities = []string{
	"Johannesburg", "Cape Town", "Durban", "Pretoria",
	"Bloemfontein", "Gqeberha", "East London", "",
}

var loyaltyLevels = []string{"Bronze", "Silver", "Gold", "Green Hero"}

var (
	firstNames = []string{"Lesego", "Thabo", "Amahle", "Sipho", "Nomsa", "Lungelo", "Zanele", "Kagiso", "Refilwe", "Mpho"}
	surnames   = []string{"Mokoena", "Nkosi", "Dlamini", "Naidoo", "van der Merwe"}
	domains    = []string{"gmail.com", "outlook.com", "yahoo.co.za", "example.co.za", "mweb.co.za"}
)

// Generator writes one day's worth of sample staging files.
type Generator struct {
	log *slog.Logger
	rng *rand.Rand
}

// NewGenerator creates a generator seeded for reproducible output.
func NewGenerator(log *slog.Logger, seed int64) *Generator {
	if log == nil {
		log = slog.Default()
	}
	return &Generator{log: log, rng: rand.New(rand.NewSource(seed))}
}

// Run writes sales CSV, products JSON, customers XLSX and a streaming price
// update into the staging directories for the given business date.
func (g *Generator) Run(stagingDir, streamingDir string, date time.Time) error {
	if err := os.MkdirAll(stagingDir, 0o755); err != nil {
		return fmt.Errorf("failed to create staging directory: %w", err)
	}
	if err := os.MkdirAll(streamingDir, 0o755); err != nil {
		return fmt.Errorf("failed to create streaming directory: %w", err)
	}

	day := date.Format("2006-01-02")
	if err := g.writeSales(filepath.Join(stagingDir, "sales_"+day+".csv"), date); err != nil {
		return err
	}
	if err := g.writeProducts(filepath.Join(stagingDir, "products_"+day+".json")); err != nil {
		return err
	}
	if err := g.writeCustomers(filepath.Join(stagingDir, "customers_"+day+".xlsx"), date); err != nil {
		return err
	}
	if err := g.writeStreamingUpdate(filepath.Join(streamingDir, "price_update_"+day+".json")); err != nil {
		return err
	}
	g.log.Info("sample data generated", "date", day, "staging", stagingDir)
	return nil
}

// writeSales produces 80-150 sales rows with deliberate quality issues:
// duplicate rows, currency-prefixed prices, missing cities, negative
// quantities and a few extreme outliers.
func (g *Generator) writeSales(path string, date time.Time) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{"sale_id", "date", "sale_timestamp", "product_name", "quantity", "price", "customer_email", "city"}
	if err := w.Write(header); err != nil {
		return err
	}

	day := date.Format("2006-01-02")
	n := 80 + g.rng.Intn(71)
	rows := make([][]string, 0, n)
	for i := 0; i < n; i++ {
		p := catalog[g.rng.Intn(len(catalog))]

		qty := []int{1, 1, 1, 2, 2, 3, 5, 10}[g.rng.Intn(8)]
		if g.rng.Float64() < 0.025 {
			qty = 500 + g.rng.Intn(1500)
		}
		if g.rng.Float64() < 0.02 {
			qty = -qty
		}

		price := strconv.FormatFloat(p.Price, 'f', 2, 64)
		if g.rng.Float64() < 0.15 {
			price = "R" + price
		}

		ts := date.Add(time.Duration(g.rng.Intn(24))*time.Hour +
			time.Duration(g.rng.Intn(60))*time.Minute)

		rows = append(rows, []string{
			strconv.Itoa(100000 + g.rng.Intn(900000)),
			day,
			ts.Format(time.RFC3339),
			p.Name,
			strconv.Itoa(qty),
			price,
			fmt.Sprintf("customer_%d@example.co.za", 100+g.rng.Intn(900)),
			cities[g.rng.Intn(len(cities))],
		})
	}

	// Re-append some rows verbatim so deduplication has work to do.
	for i := 0; i < len(rows)/12; i++ {
		rows = append(rows, rows[g.rng.Intn(len(rows))])
	}
	g.rng.Shuffle(len(rows), func(i, j int) { rows[i], rows[j] = rows[j], rows[i] })

	if err := w.WriteAll(rows); err != nil {
		return err
	}
	w.Flush()
	g.log.Info("wrote sales file", "path", path, "rows", len(rows))
	return w.Error()
}

func (g *Generator) writeProducts(path string) error {
	data, err := json.MarshalIndent(catalog, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	g.log.Info("wrote products file", "path", path, "products", len(catalog))
	return nil
}

// writeCustomers produces a small Excel workbook of new customers, with the
// occasional missing email.
func (g *Generator) writeCustomers(path string, date time.Time) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Customers"
	idx, err := f.NewSheet(sheet)
	if err != nil {
		return err
	}
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	header := []any{"customer_name", "email", "loyalty_level", "join_date"}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}

	n := 5 + g.rng.Intn(11)
	for i := 0; i < n; i++ {
		name := firstNames[g.rng.Intn(len(firstNames))] + " " + surnames[g.rng.Intn(len(surnames))]
		email := strings.ReplaceAll(model.NormKey(name), " ", ".") + "@" + domains[g.rng.Intn(len(domains))]
		if i == 0 && g.rng.Float64() < 0.2 {
			email = ""
		}
		joined := date.AddDate(0, 0, -(10 + g.rng.Intn(720))).Format("2006-01-02")

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []any{name, email, loyaltyLevels[g.rng.Intn(len(loyaltyLevels))], joined}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	g.log.Info("wrote customers file", "path", path, "rows", n)
	return nil
}

// writeStreamingUpdate emits one near-real-time price override for a random
// catalog product.
func (g *Generator) writeStreamingUpdate(path string) error {
	p := catalog[g.rng.Intn(len(catalog))]
	update := model.PriceUpdate{
		ProductName: p.Name,
		NewPrice:    p.Price * (0.85 + g.rng.Float64()*0.3),
	}

	data, err := json.MarshalIndent([]model.PriceUpdate{update}, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	g.log.Info("wrote streaming update", "path", path, "product", update.ProductName)
	return nil
}
