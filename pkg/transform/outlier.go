package transform

import (
	"math"
	"sort"

	"github.com/ecoflow/ecoflow/internal/model"
)

// Point carries the two features the anomaly model scores.
type Point struct {
	Quantity float64
	Revenue  float64
}

// Detector flags anomalous points. Implementations must return one flag per
// input point.
type Detector interface {
	Flags(points []Point) []bool
}

// IQRDetector flags points lying beyond the 1.5×IQR fence on either feature,
// keeping at most the contamination fraction, worst scores first.
type IQRDetector struct {
	Contamination float64
}

// Flags implements Detector.
func (d IQRDetector) Flags(points []Point) []bool {
	n := len(points)
	flags := make([]bool, n)
	if n == 0 {
		return flags
	}

	qty := make([]float64, n)
	rev := make([]float64, n)
	for i, p := range points {
		qty[i] = p.Quantity
		rev[i] = p.Revenue
	}

	qtyFence := newFence(qty)
	revFence := newFence(rev)
	scores := make([]float64, n)
	for i := range points {
		scores[i] = math.Max(qtyFence.score(qty[i]), revFence.score(rev[i]))
	}

	// Budget of flagged rows targets the contamination rate, minimum one when
	// any point breaches the fence.
	budget := int(math.Round(d.Contamination * float64(n)))
	if budget < 1 {
		budget = 1
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool { return scores[order[a]] > scores[order[b]] })

	for _, idx := range order[:budget] {
		if scores[idx] > 0 {
			flags[idx] = true
		}
	}
	return flags
}

// fence holds the Tukey fence for one feature.
type fence struct {
	lo, hi, iqr float64
}

func newFence(values []float64) fence {
	q1 := quantile(values, 0.25)
	q3 := quantile(values, 0.75)
	iqr := q3 - q1
	return fence{lo: q1 - 1.5*iqr, hi: q3 + 1.5*iqr, iqr: iqr}
}

// score returns how far a value sits beyond the fence, in IQR units. Values
// inside the fence score zero.
func (f fence) score(v float64) float64 {
	if f.iqr <= 0 {
		return 0
	}
	switch {
	case v < f.lo:
		return (f.lo - v) / f.iqr
	case v > f.hi:
		return (v - f.hi) / f.iqr
	default:
		return 0
	}
}

// quantile computes a linearly interpolated quantile.
func quantile(values []float64, q float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// FilterOutliers removes statistically anomalous sales. Datasets with fewer
// than the configured minimum rows are passed through unchanged.
func (t *Transformer) FilterOutliers(sales []model.Sale) []model.Sale {
	if len(sales) < t.minRows {
		t.log.Warn("too few rows for outlier detection, skipping", "rows", len(sales))
		return sales
	}

	points := make([]Point, len(sales))
	for i, s := range sales {
		points[i] = Point{Quantity: s.Quantity, Revenue: s.Revenue}
	}

	flags := t.detector.Flags(points)
	kept := sales[:0]
	removed := 0
	for i, s := range sales {
		if flags[i] {
			removed++
			continue
		}
		kept = append(kept, s)
	}

	t.log.Info("removed outliers", "removed", removed, "remaining", len(kept))
	return kept
}
