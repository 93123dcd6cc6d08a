// Package model defines the typed records exchanged between pipeline stages.
// Each dataset kind carries a fixed field list so stage contracts are checked
// at compile time instead of by column-name presence.
package model

import (
	"database/sql"
	"strings"
)

// Dataset names as they appear in staging filenames and the quality log.
const (
	DatasetSales     = "sales"
	DatasetProducts  = "products"
	DatasetCustomers = "customers"
)

// Sale is one cleaned, enriched sales transaction ready for fact loading.
// SaleID, ProductName, Quantity and Price are guaranteed valid after cleaning;
// the remaining attributes may be blank.
type Sale struct {
	SaleID        string
	Date          string
	SaleTimestamp string
	ProductName   string
	Quantity      float64
	Price         float64
	CustomerEmail string
	City          string
	Revenue       float64
	CarbonRating  int64
	CarbonSavings float64
}

// NullCells counts empty attribute cells for quality metrics.
func (s Sale) NullCells() int {
	n := 0
	for _, v := range []string{s.Date, s.SaleTimestamp, s.CustomerEmail, s.City} {
		if strings.TrimSpace(v) == "" {
			n++
		}
	}
	return n
}

// Product is one product-catalog row. Name is the business key for dim_product.
type Product struct {
	Name         string
	Category     sql.NullString
	Price        sql.NullFloat64
	CarbonRating sql.NullInt64
}

// NullCells counts null attribute cells for quality metrics.
func (p Product) NullCells() int {
	n := 0
	if strings.TrimSpace(p.Name) == "" {
		n++
	}
	if !p.Category.Valid {
		n++
	}
	if !p.Price.Valid {
		n++
	}
	if !p.CarbonRating.Valid {
		n++
	}
	return n
}

// Customer is one customer-directory row. Email is the business key for
// dim_customer.
type Customer struct {
	Name         sql.NullString
	Email        string
	LoyaltyLevel sql.NullString
	JoinDate     sql.NullTime
}

// NullCells counts null attribute cells for quality metrics.
func (c Customer) NullCells() int {
	n := 0
	if !c.Name.Valid {
		n++
	}
	if strings.TrimSpace(c.Email) == "" {
		n++
	}
	if !c.LoyaltyLevel.Valid {
		n++
	}
	if !c.JoinDate.Valid {
		n++
	}
	return n
}

// PriceUpdate is one near-real-time price override from the streaming
// directory.
type PriceUpdate struct {
	ProductName string  `json:"product_name"`
	NewPrice    float64 `json:"new_price"`
}

// Extraction bundles the raw datasets found in one staging scan. Absent
// datasets stay nil.
type Extraction struct {
	Sales     *Table
	Products  *Table
	Customers *Table
	Updates   []PriceUpdate
}

// Empty reports whether the scan found no batch datasets at all.
func (e *Extraction) Empty() bool {
	return e.Sales.Len() == 0 && e.Products.Len() == 0 && e.Customers.Len() == 0
}

// Snapshot is the transformed, warehouse-ready view of one run's data.
type Snapshot struct {
	Sales     []Sale
	Products  []Product
	Customers []Customer
}

// NormKey normalizes a business key for matching: trimmed and lower-cased.
func NormKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// InvalidKey reports whether a business key is unusable: null, blank, or a
// textual nan/nat sentinel leaked from an upstream tool.
func InvalidKey(s string) bool {
	switch NormKey(s) {
	case "", "nan", "nat", "none", "null":
		return true
	}
	return false
}
