package extract

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/ecoflow/ecoflow/internal/model"
)

// ErrUnsupportedFormat marks a file extension no reader handles.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// ExtractFile reads a single staging file into a raw table, dispatching on the
// file extension. The caller decides whether a failure is fatal; for staging
// scans it never is.
func ExtractFile(path string) (*model.Table, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return readCSV(path)
	case ".json":
		return readJSONArray(path)
	case ".xlsx", ".xls":
		return readExcel(path)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
}

func readCSV(path string) (*model.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open csv: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1 // tolerate ragged rows; Append pads them

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}

	t := model.NewTable(filepath.Base(path), header)
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv row: %w", err)
		}
		t.Append(row)
	}
	return t, nil
}

// readJSONArray reads a tabular JSON file: one array of flat objects.
// Column order is the sorted union of keys across all objects.
func readJSONArray(path string) (*model.Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read json: %w", err)
	}

	var objects []map[string]any
	if err := json.Unmarshal(data, &objects); err != nil {
		return nil, fmt.Errorf("failed to parse json array %s: %w", path, err)
	}

	keySet := make(map[string]bool)
	for _, obj := range objects {
		for k := range obj {
			keySet[k] = true
		}
	}
	columns := make([]string, 0, len(keySet))
	for k := range keySet {
		columns = append(columns, k)
	}
	sort.Strings(columns)

	t := model.NewTable(filepath.Base(path), columns)
	for _, obj := range objects {
		row := make([]string, len(columns))
		for i, col := range columns {
			row[i] = cellString(obj[col])
		}
		t.Append(row)
	}
	return t, nil
}

func readExcel(path string) (*model.Table, error) {
	xl, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open xlsx: %w", err)
	}
	defer xl.Close()

	sheet := xl.GetSheetName(0)
	if sheet == "" {
		sheets := xl.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("no sheets found in %s", path)
		}
		sheet = sheets[0]
	}

	rows, err := xl.Rows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, fmt.Errorf("xlsx file is empty: %s", path)
	}
	header, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	t := model.NewTable(filepath.Base(path), header)
	for rows.Next() {
		cols, err := rows.Columns()
		if err != nil || len(cols) == 0 {
			continue
		}
		t.Append(cols)
	}
	return t, nil
}

// cellString renders a decoded JSON value as a table cell. Coercion to real
// types happens later in the transform stage.
func cellString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}
