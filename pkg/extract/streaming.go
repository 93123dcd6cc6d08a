package extract

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ecoflow/ecoflow/internal/model"
)

// ReadStreamingUpdates loads every JSON object file from the streaming-update
// directory. A missing directory or an empty set is not an error; the batch
// simply proceeds without overrides.
func (e *Extractor) ReadStreamingUpdates(dir string) []model.PriceUpdate {
	entries, err := os.ReadDir(dir)
	if err != nil {
		e.log.Info("streaming directory not found, skipping", "dir", dir)
		return nil
	}

	var updates []model.PriceUpdate
	for _, entry := range entries {
		if entry.IsDir() || strings.ToLower(filepath.Ext(entry.Name())) != ".json" {
			continue
		}
		path := filepath.Join(dir, entry.Name())

		data, err := os.ReadFile(path)
		if err != nil {
			e.log.Error("failed to read streaming file", "path", path, "error", err)
			continue
		}

		parsed, err := parseUpdates(data)
		if err != nil || len(parsed) == 0 {
			e.log.Warn("invalid streaming update, skipping", "path", path)
			continue
		}
		updates = append(updates, parsed...)
	}

	if len(updates) > 0 {
		e.log.Info("loaded real-time product updates", "count", len(updates))
	}
	return updates
}

// parseUpdates accepts either a single update object or an array of them.
// Updates without a product name are dropped.
func parseUpdates(data []byte) ([]model.PriceUpdate, error) {
	var batch []model.PriceUpdate
	if err := json.Unmarshal(data, &batch); err != nil {
		var single model.PriceUpdate
		if err := json.Unmarshal(data, &single); err != nil {
			return nil, err
		}
		batch = []model.PriceUpdate{single}
	}

	valid := batch[:0]
	for _, u := range batch {
		if u.ProductName != "" {
			valid = append(valid, u)
		}
	}
	return valid, nil
}

// mergeUpdates applies streamed price overrides onto the batch products table.
// The streamed price wins whenever present; an update for a product absent from
// the batch is a logged no-op.
func (e *Extractor) mergeUpdates(products *model.Table, updates []model.PriceUpdate) {
	nameCol := "product_name"
	if !products.HasColumn(nameCol) {
		nameCol = "name"
	}
	if !products.HasColumn(nameCol) || !products.HasColumn("price") {
		e.log.Warn("products dataset lacks name/price columns, cannot apply streaming updates")
		return
	}

	byName := make(map[string]int, products.Len())
	for i, row := range products.Rows {
		byName[model.NormKey(products.Cell(row, nameCol))] = i
	}

	applied := 0
	for _, u := range updates {
		idx, ok := byName[model.NormKey(u.ProductName)]
		if !ok {
			e.log.Warn("streaming update references unknown product, skipping",
				"product", u.ProductName)
			continue
		}
		products.SetCell(idx, "price", strconv.FormatFloat(u.NewPrice, 'f', -1, 64))
		applied++
	}

	e.log.Info("applied streaming updates to products", "applied", applied, "total", len(updates))
}

// UpdatesAsProducts synthesizes a products table from streamed price updates,
// used when a run sees streaming data but no batch catalog at all.
func UpdatesAsProducts(updates []model.PriceUpdate) *model.Table {
	t := model.NewTable("streaming_products", []string{"product_name", "price"})
	for _, u := range updates {
		t.Append([]string{u.ProductName, strconv.FormatFloat(u.NewPrice, 'f', -1, 64)})
	}
	return t
}
