package extract

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestExtractFileCSV(t *testing.T) {
	path := writeFile(t, t.TempDir(), "sales.csv",
		"sale_id,product_name,quantity\n1,Tote Bag,2\n2,Straw Set\n")

	table, err := ExtractFile(path)
	if err != nil {
		t.Fatalf("ExtractFile failed: %v", err)
	}
	if table.Len() != 2 {
		t.Fatalf("expected 2 rows, got %d", table.Len())
	}
	if got := table.Cell(table.Rows[0], "product_name"); got != "Tote Bag" {
		t.Errorf("expected 'Tote Bag', got %q", got)
	}
	// Ragged row is padded to the header width.
	if got := table.Cell(table.Rows[1], "quantity"); got != "" {
		t.Errorf("expected padded empty cell, got %q", got)
	}
}

func TestExtractFileJSON(t *testing.T) {
	path := writeFile(t, t.TempDir(), "products.json",
		`[{"name":"Tote Bag","price":150},{"name":"Straw Set","category":"Kitchen"}]`)

	table, err := ExtractFile(path)
	if err != nil {
		t.Fatalf("ExtractFile failed: %v", err)
	}
	// Columns are the sorted union of keys.
	want := []string{"category", "name", "price"}
	if len(table.Columns) != len(want) {
		t.Fatalf("expected columns %v, got %v", want, table.Columns)
	}
	for i, c := range want {
		if table.Columns[i] != c {
			t.Errorf("column %d: expected %q, got %q", i, c, table.Columns[i])
		}
	}
	if got := table.Cell(table.Rows[0], "price"); got != "150" {
		t.Errorf("expected price '150', got %q", got)
	}
	if got := table.Cell(table.Rows[1], "price"); got != "" {
		t.Errorf("expected empty price for missing key, got %q", got)
	}
}

func TestExtractFileExcel(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "customers.xlsx")

	f := excelize.NewFile()
	header := []any{"customer_name", "email"}
	if err := f.SetSheetRow("Sheet1", "A1", &header); err != nil {
		t.Fatal(err)
	}
	row := []any{"Thabo Nkosi", "thabo.nkosi@example.co.za"}
	if err := f.SetSheetRow("Sheet1", "A2", &row); err != nil {
		t.Fatal(err)
	}
	if err := f.SaveAs(path); err != nil {
		t.Fatal(err)
	}
	f.Close()

	table, err := ExtractFile(path)
	if err != nil {
		t.Fatalf("ExtractFile failed: %v", err)
	}
	if table.Len() != 1 {
		t.Fatalf("expected 1 row, got %d", table.Len())
	}
	if got := table.Cell(table.Rows[0], "email"); got != "thabo.nkosi@example.co.za" {
		t.Errorf("unexpected email %q", got)
	}
}

func TestExtractFileCSVMalformedRowIsAnError(t *testing.T) {
	// A bare quote mid-file must not yield a silently truncated table.
	path := writeFile(t, t.TempDir(), "sales.csv",
		"sale_id,product_name\n1,Tote Bag\n2,\"broken\n")

	_, err := ExtractFile(path)
	if err == nil {
		t.Fatal("expected error for malformed csv row")
	}
}

func TestExtractFileUnsupported(t *testing.T) {
	path := writeFile(t, t.TempDir(), "notes.txt", "hello")

	_, err := ExtractFile(path)
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestExtractAllClassifiesDatasets(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "sales_2026-08-01.csv", "sale_id,quantity\n1,2\n")
	writeFile(t, dir, "products_2026-08-01.json", `[{"name":"Tote Bag","price":150}]`)
	writeFile(t, dir, "readme.txt", "not data")

	ex, err := NewExtractor(nil).ExtractAll(context.Background(), dir, filepath.Join(dir, "streaming_updates"))
	if err != nil {
		t.Fatalf("ExtractAll failed: %v", err)
	}
	if ex.Sales.Len() != 1 {
		t.Errorf("expected 1 sales row, got %d", ex.Sales.Len())
	}
	if ex.Products.Len() != 1 {
		t.Errorf("expected 1 product row, got %d", ex.Products.Len())
	}
	if ex.Customers != nil {
		t.Error("expected no customers dataset")
	}
}

func TestExtractAllMissingStagingDirIsFatal(t *testing.T) {
	_, err := NewExtractor(nil).ExtractAll(context.Background(),
		filepath.Join(t.TempDir(), "does-not-exist"), "")
	if err == nil {
		t.Fatal("expected error for missing staging directory")
	}
}

func TestExtractAllSkipsUnreadableFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "sales.csv", "sale_id,quantity\n1,2\n")
	writeFile(t, dir, "products.json", "{not valid json")

	ex, err := NewExtractor(nil).ExtractAll(context.Background(), dir, "")
	if err != nil {
		t.Fatalf("per-file failure should not be fatal: %v", err)
	}
	if ex.Sales.Len() != 1 {
		t.Errorf("expected sales to survive, got %d rows", ex.Sales.Len())
	}
	if ex.Products != nil {
		t.Error("expected broken products file to be skipped")
	}
}
