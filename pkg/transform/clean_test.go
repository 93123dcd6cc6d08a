package transform

import (
	"testing"

	"github.com/ecoflow/ecoflow/internal/model"
	"github.com/ecoflow/ecoflow/pkg/config"
)

func newTestTransformer() *Transformer {
	return NewTransformer(config.TransformConfig{
		Contamination:  0.02,
		OutlierMinRows: 10,
		DefaultRating:  5,
	}, nil)
}

func salesTable(rows ...[]string) *model.Table {
	t := model.NewTable("sales", []string{"sale_id", "date", "product_name", "quantity", "price", "customer_email", "city"})
	for _, row := range rows {
		t.Append(row)
	}
	return t
}

func TestCleanSalesDropsIncompleteRows(t *testing.T) {
	raw := salesTable(
		[]string{"1", "2026-08-01", "Tote Bag", "2", "150.00", "a@b.co.za", "Durban"},
		[]string{"", "2026-08-01", "Tote Bag", "2", "150.00", "a@b.co.za", "Durban"},
		[]string{"2", "2026-08-01", "", "2", "150.00", "a@b.co.za", "Durban"},
		[]string{"3", "2026-08-01", "Tote Bag", "", "150.00", "a@b.co.za", "Durban"},
	)

	sales := newTestTransformer().CleanSales(raw)
	if len(sales) != 1 {
		t.Fatalf("expected 1 clean row, got %d", len(sales))
	}
	if sales[0].SaleID != "1" {
		t.Errorf("wrong survivor: %q", sales[0].SaleID)
	}
}

func TestCleanSalesDeduplicatesKeepingFirst(t *testing.T) {
	raw := salesTable(
		[]string{"42", "2026-08-01", "Tote Bag", "2", "150.00", "first@b.co.za", "Durban"},
		[]string{"42", "2026-08-02", "Straw Set", "1", "89.00", "second@b.co.za", "Pretoria"},
	)

	sales := newTestTransformer().CleanSales(raw)
	if len(sales) != 1 {
		t.Fatalf("expected 1 row after dedupe, got %d", len(sales))
	}
	if sales[0].CustomerEmail != "first@b.co.za" {
		t.Errorf("dedupe must keep the first occurrence, got %q", sales[0].CustomerEmail)
	}
}

func TestCleanSalesInvalidFirstOccurrenceShadowsDuplicates(t *testing.T) {
	// The first occurrence claims the sale id even though its quantity fails
	// the positivity filter, so the later duplicate must not survive.
	raw := salesTable(
		[]string{"555", "2026-08-01", "Tote Bag", "-5", "150.00", "a@b.co.za", "Durban"},
		[]string{"555", "2026-08-01", "Tote Bag", "2", "150.00", "b@b.co.za", "Durban"},
	)

	sales := newTestTransformer().CleanSales(raw)
	if len(sales) != 0 {
		t.Fatalf("expected both rows dropped, got %d: %+v", len(sales), sales)
	}
}

func TestCleanSalesCoercesCurrencyPrice(t *testing.T) {
	raw := salesTable(
		[]string{"1", "2026-08-01", "Detergent", "3", "R180.00", "a@b.co.za", ""},
	)

	sales := newTestTransformer().CleanSales(raw)
	if len(sales) != 1 {
		t.Fatalf("expected currency price to coerce, got %d rows", len(sales))
	}
	if sales[0].Price != 180 {
		t.Errorf("expected price 180, got %v", sales[0].Price)
	}
}

func TestCleanSalesRejectsNonPositiveValues(t *testing.T) {
	raw := salesTable(
		[]string{"1", "2026-08-01", "Tote Bag", "-2", "150.00", "", ""},
		[]string{"2", "2026-08-01", "Tote Bag", "2", "0", "", ""},
		[]string{"3", "2026-08-01", "Tote Bag", "abc", "150.00", "", ""},
	)

	sales := newTestTransformer().CleanSales(raw)
	if len(sales) != 0 {
		t.Errorf("expected all rows dropped, got %d", len(sales))
	}
}

func TestStripNonNumeric(t *testing.T) {
	cases := map[string]string{
		"R180.00":  "180.00",
		"R 1250.5": "1250.5",
		"-42.1":    "-42.1",
		"12a3":     "123",
	}
	for in, want := range cases {
		if got := stripNonNumeric(in); got != want {
			t.Errorf("stripNonNumeric(%q) = %q, want %q", in, got, want)
		}
	}
}
