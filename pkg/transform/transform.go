// Package transform turns raw extracted tables into warehouse-ready records:
// canonical column renaming, row-level cleaning, enrichment with computed
// measures, and statistical outlier filtering.
package transform

import (
	"log/slog"

	"github.com/ecoflow/ecoflow/internal/model"
	"github.com/ecoflow/ecoflow/pkg/config"
)

// Transformer applies the full transform stage for one run.
type Transformer struct {
	log           *slog.Logger
	detector      Detector
	minRows       int
	defaultRating int64
}

// NewTransformer creates a transformer with the default IQR outlier detector.
func NewTransformer(cfg config.TransformConfig, log *slog.Logger) *Transformer {
	if log == nil {
		log = slog.Default()
	}
	return &Transformer{
		log:           log,
		detector:      IQRDetector{Contamination: cfg.Contamination},
		minRows:       cfg.OutlierMinRows,
		defaultRating: cfg.DefaultRating,
	}
}

// SetDetector swaps the outlier detector. Used by callers that want a
// different anomaly model than the IQR default.
func (t *Transformer) SetDetector(d Detector) {
	if d != nil {
		t.detector = d
	}
}

// Apply runs rename, clean, enrich and outlier filtering in order. Enrichment
// precedes outlier filtering because revenue is a filtering feature.
func (t *Transformer) Apply(ex *model.Extraction) *model.Snapshot {
	snap := &model.Snapshot{}

	if ex.Products != nil {
		snap.Products = t.Products(ex.Products)
	}
	if ex.Customers != nil {
		snap.Customers = t.Customers(ex.Customers)
	}
	if ex.Sales != nil {
		sales := t.CleanSales(ex.Sales)
		sales = t.EnrichSales(sales, snap.Products)
		sales = t.FilterOutliers(sales)
		snap.Sales = sales
	}

	t.log.Info("transformation complete",
		"sales", len(snap.Sales),
		"products", len(snap.Products),
		"customers", len(snap.Customers))
	return snap
}
