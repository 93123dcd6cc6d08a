// Package extract reads heterogeneous staging files into raw datasets.
//
// Batch extracts (CSV, JSON arrays, Excel workbooks) are classified into
// sales/products/customers by a filename-substring heuristic; near-real-time
// price overrides from the streaming directory are merged into the products
// dataset, with the streamed price winning by presence.
package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/ecoflow/ecoflow/internal/model"
)

// Extractor scans a staging area and produces raw datasets for one run.
type Extractor struct {
	log *slog.Logger
}

// NewExtractor creates an extractor logging to the given logger.
func NewExtractor(log *slog.Logger) *Extractor {
	if log == nil {
		log = slog.Default()
	}
	return &Extractor{log: log}
}

// ExtractAll reads every regular file in the staging directory, classifies the
// resulting datasets, and merges streaming price updates into the products
// dataset when both exist. Only a missing staging directory is fatal; an
// unreadable or unsupported individual file is logged and skipped.
func (e *Extractor) ExtractAll(ctx context.Context, stagingDir, streamingDir string) (*model.Extraction, error) {
	entries, err := os.ReadDir(stagingDir)
	if err != nil {
		return nil, fmt.Errorf("staging directory not found: %s: %w", stagingDir, err)
	}

	// Extraction of independent files is pure, so fan out. Each goroutine
	// writes its own slot.
	tables := make([]*model.Table, len(entries))
	g, _ := errgroup.WithContext(ctx)

	for i, entry := range entries {
		if entry.IsDir() {
			continue
		}
		i := i
		path := filepath.Join(stagingDir, entry.Name())
		g.Go(func() error {
			t, err := ExtractFile(path)
			if err != nil {
				if errors.Is(err, ErrUnsupportedFormat) {
					e.log.Warn("unsupported file type, skipping", "path", path)
				} else {
					e.log.Error("failed to extract file, skipping", "path", path, "error", err)
				}
				return nil
			}
			e.log.Info("extracted file", "path", path, "rows", t.Len())
			tables[i] = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Classify in directory order so a later file wins a name collision
	// deterministically.
	out := &model.Extraction{}
	for i, entry := range entries {
		t := tables[i]
		if t == nil {
			continue
		}
		switch classify(entry.Name()) {
		case model.DatasetSales:
			out.Sales = t
		case model.DatasetProducts:
			out.Products = t
		case model.DatasetCustomers:
			out.Customers = t
		default:
			e.log.Warn("unclassified staging file, ignoring", "file", entry.Name())
		}
	}

	for _, name := range missingDatasets(out) {
		e.log.Warn("missing batch data source", "dataset", name)
	}

	out.Updates = e.ReadStreamingUpdates(streamingDir)
	if len(out.Updates) > 0 {
		if out.Products.Len() > 0 {
			e.log.Info("merging real-time streaming updates into products")
			e.mergeUpdates(out.Products, out.Updates)
		} else {
			e.log.Warn("no batch products found, cannot apply streaming updates")
		}
	}

	return out, nil
}

// classify assigns a dataset name from a filename substring.
func classify(filename string) string {
	name := strings.ToLower(filename)
	switch {
	case strings.Contains(name, "sales"):
		return model.DatasetSales
	case strings.Contains(name, "products"):
		return model.DatasetProducts
	case strings.Contains(name, "customers"):
		return model.DatasetCustomers
	default:
		return ""
	}
}

func missingDatasets(e *model.Extraction) []string {
	var missing []string
	if e.Sales == nil {
		missing = append(missing, model.DatasetSales)
	}
	if e.Products == nil {
		missing = append(missing, model.DatasetProducts)
	}
	if e.Customers == nil {
		missing = append(missing, model.DatasetCustomers)
	}
	return missing
}
