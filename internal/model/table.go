package model

// Table is the raw, untyped output of file extraction: an ordered set of rows
// sharing one column header. Cell values are the verbatim strings read from the
// source file; type coercion happens in the transform stage.
type Table struct {
	Name    string
	Columns []string
	Rows    [][]string
}

// NewTable creates an empty table with the given column header.
func NewTable(name string, columns []string) *Table {
	return &Table{Name: name, Columns: columns}
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Index returns the position of a column, or -1 if absent.
func (t *Table) Index(column string) int {
	for i, c := range t.Columns {
		if c == column {
			return i
		}
	}
	return -1
}

// HasColumn reports whether the table carries the named column.
func (t *Table) HasColumn(column string) bool {
	return t.Index(column) >= 0
}

// Cell returns the value at (row, column), or "" when the column is absent or
// the row is ragged.
func (t *Table) Cell(row []string, column string) string {
	idx := t.Index(column)
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

// SetCell writes a value at (row, column). Rows shorter than the header are
// padded first so ragged source rows stay addressable.
func (t *Table) SetCell(row int, column, value string) {
	idx := t.Index(column)
	if idx < 0 || row < 0 || row >= len(t.Rows) {
		return
	}
	for len(t.Rows[row]) <= idx {
		t.Rows[row] = append(t.Rows[row], "")
	}
	t.Rows[row][idx] = value
}

// Append adds a data row, padding or truncating to the header width.
func (t *Table) Append(row []string) {
	for len(row) < len(t.Columns) {
		row = append(row, "")
	}
	t.Rows = append(t.Rows, row[:len(t.Columns)])
}
