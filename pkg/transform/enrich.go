package transform

import (
	"sort"
	"strings"

	"github.com/ecoflow/ecoflow/internal/model"
)

// ratingIndex resolves product names to carbon footprint ratings. Exact
// normalized matches are preferred; otherwise the shortest index key that
// contains the queried name wins, ties broken lexicographically.
type ratingIndex struct {
	exact map[string]int64
	keys  []string // sorted by length, then lexicographically
}

func buildRatingIndex(products []model.Product) *ratingIndex {
	ix := &ratingIndex{exact: make(map[string]int64, len(products))}
	for _, p := range products {
		if !p.CarbonRating.Valid {
			continue
		}
		key := model.NormKey(p.Name)
		if key == "" {
			continue
		}
		if _, dup := ix.exact[key]; !dup {
			ix.exact[key] = p.CarbonRating.Int64
			ix.keys = append(ix.keys, key)
		}
	}
	sort.Slice(ix.keys, func(i, j int) bool {
		if len(ix.keys[i]) != len(ix.keys[j]) {
			return len(ix.keys[i]) < len(ix.keys[j])
		}
		return ix.keys[i] < ix.keys[j]
	})
	return ix
}

func (ix *ratingIndex) lookup(name string, fallback int64) int64 {
	key := model.NormKey(name)
	if key == "" {
		return fallback
	}
	if rating, ok := ix.exact[key]; ok {
		return rating
	}
	for _, k := range ix.keys {
		if strings.Contains(k, key) {
			return ix.exact[k]
		}
	}
	return fallback
}

// EnrichSales computes revenue and carbon savings for each cleaned sale.
// With no usable products dataset every sale gets the neutral default rating.
func (t *Transformer) EnrichSales(sales []model.Sale, products []model.Product) []model.Sale {
	ix := buildRatingIndex(products)

	for i := range sales {
		s := &sales[i]
		s.Revenue = s.Quantity * s.Price
		s.CarbonRating = ix.lookup(s.ProductName, t.defaultRating)
		s.CarbonSavings = s.Quantity * float64(10-s.CarbonRating)
	}

	t.log.Info("enriched sales with revenue and carbon savings", "rows", len(sales))
	return sales
}
